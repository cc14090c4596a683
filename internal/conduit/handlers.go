package conduit

import (
	"context"
	"time"

	"github.com/WhiteDevil-93/hermes-go/internal/aiengine"
	"github.com/WhiteDevil-93/hermes-go/internal/browser"
	"github.com/WhiteDevil-93/hermes-go/internal/obstruction"
	"github.com/WhiteDevil-93/hermes-go/internal/signal"
	"github.com/WhiteDevil-93/hermes-go/internal/telemetry"
	"github.com/WhiteDevil-93/hermes-go/internal/trust"
	"github.com/WhiteDevil-93/hermes-go/internal/urlpolicy"
)

// handleInit validates the target URL against the SSRF policy, starts the
// Browser, and, for ai/hybrid modes, attempts a best-effort AI Engine
// initialization. Failure of the latter demotes the run to
// heuristic-only rather than failing it; a policy rejection fails the run
// outright, before anything is ever navigated to.
func (c *Conduit) handleInit(ctx context.Context) {
	policyResult := urlpolicy.Validate(c.run.TargetURL, urlpolicy.Config{
		AllowedSchemes:      c.run.AllowedSchemes,
		BlockLocalHostnames: c.run.BlockLocalHostnames,
		BlockPrivateIPs:     c.run.BlockPrivateIPs,
	})
	if !policyResult.Allowed {
		c.fail("target URL rejected by policy: " + policyResult.Reason)
		return
	}

	if err := c.browser.Start(ctx); err != nil {
		c.fail("failed to start browser: " + err.Error())
		return
	}

	if c.run.ExtractionMode == "ai" || c.run.ExtractionMode == "hybrid" {
		if err := c.ai.Initialize(ctx); err != nil {
			telemetry.Emit(c.logger, telemetry.ErrAIInitializationFailed, err.Error(), c.run.RunID, string(PhaseInit), nil)
		}
	}

	c.transition(PhaseNavigate, nil)
}

// handleNavigate self-retries in place on failure; only success or retry
// exhaustion changes phase.
func (c *Conduit) handleNavigate(ctx context.Context) {
	result := c.browser.Navigate(ctx, c.run.TargetURL, int(c.run.PageLoadTimeout.Milliseconds()))

	if result.Status == browser.StatusSuccess {
		c.interactionTrace = append(c.interactionTrace, "navigate:"+c.run.TargetURL)
		c.transition(PhaseAssess, nil)
		return
	}

	if c.retriesRemain() {
		c.attempts++
		c.emitter.Emit(signal.RetryAttempt, map[string]any{
			"phase": string(PhaseNavigate), "attempt": c.attempts, "detail": result.Detail,
		})
		c.backoff(ctx)
		return
	}

	c.fail("navigation failed: " + result.Detail)
}

func (c *Conduit) handleAssess(ctx context.Context) {
	snap, err := c.browser.CaptureDOM(ctx)
	if err != nil {
		c.fail("failed to capture DOM: " + err.Error())
		return
	}
	if snap == nil {
		c.fail("failed to capture DOM: no active session")
		return
	}
	c.cachedDOM = snap

	result := obstruction.Detect(snap.HTML)
	c.currentObstruct = result

	if result.ObstructionType == obstruction.None {
		c.transition(PhaseExtract, nil)
		return
	}

	c.emitter.Emit(signal.ObstructionDetected, map[string]any{
		"type": string(result.ObstructionType), "confidence": result.Confidence, "requires_ai": result.RequiresAI,
	})

	if result.ObstructionType == obstruction.HardBlock {
		c.fail("Hard block detected")
		return
	}

	c.transition(PhaseObstruct, map[string]any{
		"obstruction_type": string(result.ObstructionType), "requires_ai": result.RequiresAI,
	})
}

// handleObstruct re-detects from the cached DOM rather than a fresh
// capture: whether a re-capture would be more accurate after an
// AI-generated action sequence is left open by the source material.
func (c *Conduit) handleObstruct(ctx context.Context) {
	result := obstruction.Detect(c.cachedDOM.HTML)
	c.currentObstruct = result

	if result.Selector != "" && !result.RequiresAI {
		clickResult := c.browser.Click(ctx, result.Selector, 500)
		c.emitter.Emit(signal.ActionExecuted, map[string]any{
			"action_type": "click", "selector": result.Selector, "result": string(clickResult.Status),
		})
		if clickResult.Status == browser.StatusSuccess {
			c.interactionTrace = append(c.interactionTrace, "click:"+result.Selector)
			c.attempts = 0
			c.transition(PhaseNavigate, nil)
			return
		}
	}

	if c.ai.IsAvailable() {
		c.transition(PhaseAIReason, nil)
		return
	}

	if c.retriesRemain() {
		c.attempts++
		c.backoff(ctx)
		c.transition(PhaseNavigate, nil)
		return
	}

	c.fail("obstruction could not be resolved without AI")
}

func (c *Conduit) handleAIReason(ctx context.Context) {
	domSize := len(c.cachedDOM.HTML)
	c.emitter.Emit(signal.AIInvoked, map[string]any{
		"request_type": "navigation_plan", "dom_size": domSize, "phase_context": string(PhaseAIReason),
	})

	aiCtx, cancel := c.aiContext(ctx)
	defer cancel()

	start := time.Now()
	plan := c.ai.GenerateNavigationPlan(aiCtx, c.cachedDOM.HTML, string(c.currentObstruct.ObstructionType), c.run.ExtractionSchema, c.priorAIAttempts)
	latencyMs := time.Since(start).Milliseconds()
	c.aiCalls++

	c.emitter.Emit(signal.AIResponded, map[string]any{
		"response_type": "navigation_plan", "function_calls_count": len(plan.Actions),
		"latency_ms": latencyMs, "confidence": plan.Confidence,
	})

	if len(plan.Actions) == 0 {
		c.priorAIAttempts = append(c.priorAIAttempts, aiengine.PriorAttempt{
			Phase: string(PhaseAIReason), Action: "generate_navigation_plan", Detail: "AI returned empty plan", Outcome: "empty",
		})
		if c.retriesRemain() {
			c.attempts++
			c.transition(PhaseNavigate, nil)
			return
		}
		c.fail("AI returned empty plan")
		return
	}

	currentHost := c.currentHost()
	surviving := make([]trust.FunctionCall, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if reason := trust.Validate(action, c.run.AllowCrossOrigin, currentHost); reason != "" {
			c.emitter.Emit(signal.AIRejected, map[string]any{
				"reason": reason, "rejected_action": action.Function, "phase_context": string(PhaseAIReason),
			})
			continue
		}
		surviving = append(surviving, action)
	}

	if len(surviving) == 0 {
		c.priorAIAttempts = append(c.priorAIAttempts, aiengine.PriorAttempt{
			Phase: string(PhaseAIReason), Action: "generate_navigation_plan", Detail: "all actions rejected by allowlist", Outcome: "rejected",
		})
		c.fail("all proposed actions were rejected by allowlist")
		return
	}

	c.pendingPlan = trust.TruncatePlan(surviving)
	c.transition(PhaseExecutePlan, nil)
}

// handleExecutePlan always clears the pending plan and resets attempts
// before transitioning back to ASSESS, success or failure.
func (c *Conduit) handleExecutePlan(ctx context.Context) {
	plan := c.pendingPlan
	c.pendingPlan = nil

	for _, action := range plan {
		result, selector := c.dispatchAction(ctx, action)
		c.emitter.Emit(signal.ActionExecuted, map[string]any{
			"action_type": action.Function, "selector": selector, "result": string(result.Status),
		})
		if result.Status != browser.StatusSuccess {
			c.priorAIAttempts = append(c.priorAIAttempts, aiengine.PriorAttempt{
				Phase: string(PhaseExecutePlan), Action: action.Function, Detail: result.Detail, Outcome: string(result.Status), Selector: selector,
			})
			break
		}
		c.interactionTrace = append(c.interactionTrace, action.Function+":"+selector)
	}

	c.attempts = 0
	c.transition(PhaseAssess, nil)
}

func (c *Conduit) handleValidate(ctx context.Context) {
	records := c.pipeline.ProcessedRecords()

	if len(records) == 0 {
		if c.retriesRemain() && c.ai.IsAvailable() {
			c.attempts++
			c.emitter.Emit(signal.RetryAttempt, map[string]any{"phase": string(PhaseValidate), "attempt": c.attempts, "detail": "zero records extracted"})
			c.transition(PhaseRepair, nil)
			return
		}
		c.fail("no records extracted")
		return
	}

	flagged, total, sumConfidence := 0, 0, 0.0
	for _, rec := range records {
		for _, fv := range rec.Fields {
			total++
			sumConfidence += fv.Confidence
			if fv.Confidence < c.run.MinConfidenceThreshold {
				flagged++
			}
		}
	}

	flaggedRatio := 0.0
	if total > 0 {
		flaggedRatio = float64(flagged) / float64(total)
	}

	if flaggedRatio > 0.5 && c.ai.IsAvailable() && c.retriesRemain() {
		c.attempts++
		c.transition(PhaseRepair, nil)
		return
	}

	confidenceAvg := 0.0
	if total > 0 {
		confidenceAvg = sumConfidence / float64(total)
	}
	c.emitter.Emit(signal.ExtractionComplete, map[string]any{
		"record_count": len(records), "confidence_avg": confidenceAvg, "schema_valid": true, "flagged_fields": flagged,
	})
	c.transition(PhasePersist, nil)
}

func (c *Conduit) handleRepair(ctx context.Context) {
	c.emitter.Emit(signal.AIInvoked, map[string]any{"request_type": "repair", "phase_context": string(PhaseRepair)})

	aiCtx, cancel := c.aiContext(ctx)
	defer cancel()

	partial := recordsAsMaps(c.pipeline.ProcessedRecords())
	start := time.Now()
	result := c.ai.RepairExtraction(aiCtx, partial, c.run.ExtractionSchema, c.cachedDOM.HTML)
	latencyMs := time.Since(start).Milliseconds()
	c.aiCalls++

	for _, raw := range result.Records {
		rec := normalizeAIRecord(raw, c.run.TargetURL, c.cachedDOM.DOMHash, 0.6)
		c.pipeline.AddProcessedRecord(rec)
	}

	c.emitter.Emit(signal.AIResponded, map[string]any{
		"response_type": "repair", "function_calls_count": len(result.Records), "latency_ms": latencyMs, "confidence": result.CompletenessScore,
	})
	c.transition(PhaseValidate, nil)
}

func (c *Conduit) handlePersist(ctx context.Context) {
	metadata := pipelineMetadata(c.run, c.startedAt)
	count, err := c.pipeline.Persist(metadata)
	if err != nil {
		c.fail("persist failed: " + err.Error())
		return
	}
	c.complete(count)
}
