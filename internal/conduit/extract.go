package conduit

import (
	"context"
	"time"

	"github.com/WhiteDevil-93/hermes-go/internal/heuristic"
	"github.com/WhiteDevil-93/hermes-go/internal/pipeline"
	"github.com/WhiteDevil-93/hermes-go/internal/signal"
)

// handleExtract dispatches by extraction mode, falling back to whichever
// configuration is actually usable when the requested mode cannot run.
func (c *Conduit) handleExtract(ctx context.Context) {
	if c.cachedDOM == nil {
		snap, err := c.browser.CaptureDOM(ctx)
		if err != nil || snap == nil {
			c.fail("failed to capture DOM for extraction")
			return
		}
		c.cachedDOM = snap
	}

	_ = c.pipeline.CaptureRaw(c.cachedDOM.HTML, c.cachedDOM.URL, c.cachedDOM.DOMHash, c.interactionTrace, nil)

	hasSelectors := len(c.run.HeuristicSelectors) > 0
	aiAvailable := c.ai.IsAvailable()

	switch {
	case c.run.ExtractionMode == "heuristic" && hasSelectors:
		c.extractHeuristic()
	case c.run.ExtractionMode == "ai" && aiAvailable:
		c.extractAI(ctx)
	case c.run.ExtractionMode == "hybrid":
		records := c.extractHeuristic()
		if anyPartial(records) && aiAvailable {
			c.extractAI(ctx)
		}
	case hasSelectors:
		c.extractHeuristic()
	case aiAvailable:
		c.extractAI(ctx)
	default:
		c.fail("No extraction configuration")
		return
	}

	c.transition(PhaseValidate, nil)
}

func anyPartial(records []pipeline.ExtractionRecord) bool {
	for _, r := range records {
		if r.IsPartial {
			return true
		}
	}
	return false
}

// extractHeuristic walks HeuristicSelectors once (or, with a container
// selector configured, once per matched container) and stages the result
// into the pipeline's processed stage.
func (c *Conduit) extractHeuristic() []pipeline.ExtractionRecord {
	var records []pipeline.ExtractionRecord
	if c.run.ContainerSelector != "" {
		records = heuristic.ExtractList(c.cachedDOM.HTML, c.cachedDOM.URL, c.cachedDOM.DOMHash, c.run.ContainerSelector, c.run.HeuristicSelectors)
	} else {
		records = []pipeline.ExtractionRecord{
			heuristic.ExtractSingle(c.cachedDOM.HTML, c.cachedDOM.URL, c.cachedDOM.DOMHash, c.run.HeuristicSelectors),
		}
	}
	for _, rec := range records {
		c.pipeline.AddProcessedRecord(rec)
	}
	return records
}

// extractAI calls extract_structured and normalizes each raw record into
// an ExtractionRecord before staging it.
func (c *Conduit) extractAI(ctx context.Context) {
	c.emitter.Emit(signal.AIInvoked, map[string]any{"request_type": "extract_structured", "phase_context": string(PhaseExtract)})

	aiCtx, cancel := c.aiContext(ctx)
	defer cancel()

	start := time.Now()
	result := c.ai.ExtractStructured(aiCtx, c.cachedDOM.HTML, c.run.ExtractionSchema, c.cachedDOM.URL)
	latencyMs := time.Since(start).Milliseconds()
	c.aiCalls++

	c.emitter.Emit(signal.AIResponded, map[string]any{
		"response_type": "extract_structured", "function_calls_count": len(result.Records),
		"latency_ms": latencyMs, "confidence": result.CompletenessScore,
	})

	for _, raw := range result.Records {
		rec := normalizeAIRecord(raw, c.cachedDOM.URL, c.cachedDOM.DOMHash, 0.7)
		c.pipeline.AddProcessedRecord(rec)
	}
}

// normalizeAIRecord converts one AI-returned record into an
// ExtractionRecord: a field that is already a {value, confidence} map
// passes through, anything else is wrapped at defaultConfidence — the
// single choke point the polymorphic AI payload shape is normalized at.
func normalizeAIRecord(raw map[string]any, sourceURL, domHash string, defaultConfidence float64) pipeline.ExtractionRecord {
	fields := make(map[string]pipeline.FieldValue, len(raw))
	populated := 0

	for name, v := range raw {
		if m, ok := v.(map[string]any); ok {
			if val, hasValue := m["value"]; hasValue {
				confidence := defaultConfidence
				if conf, ok := m["confidence"].(float64); ok {
					confidence = conf
				}
				var selector *string
				if s, ok := m["source_selector"].(string); ok {
					selector = &s
				}
				fields[name] = pipeline.FieldValue{Value: val, Confidence: confidence, SourceSelector: selector}
				if val != nil {
					populated++
				}
				continue
			}
		}
		fields[name] = pipeline.FieldValue{Value: v, Confidence: defaultConfidence}
		if v != nil {
			populated++
		}
	}

	completeness := 0.0
	if len(fields) > 0 {
		completeness = float64(populated) / float64(len(fields))
	}

	return pipeline.ExtractionRecord{
		Fields: fields,
		Metadata: pipeline.RecordMetadata{
			SourceURL:      sourceURL,
			DOMHash:        domHash,
			ExtractedAt:    time.Now().UTC(),
			ExtractionMode: pipeline.ModeAI,
		},
		CompletenessScore: completeness,
		IsPartial:         populated < len(fields),
	}
}

// recordsAsMaps dumps the pipeline's current processed records into the
// plain-map shape repair_extraction's prompt expects as "partial data".
func recordsAsMaps(records []pipeline.ExtractionRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		m := make(map[string]any, len(rec.Fields))
		for name, fv := range rec.Fields {
			m[name] = map[string]any{"value": fv.Value, "confidence": fv.Confidence}
		}
		out = append(out, m)
	}
	return out
}

func pipelineMetadata(run Run, startedAt time.Time) pipeline.RunMetadata {
	return pipeline.RunMetadata{
		RunID:          run.RunID,
		TargetURL:      run.TargetURL,
		StartedAt:      startedAt,
		ExtractionMode: pipeline.ExtractionMode(run.ExtractionMode),
		Status:         "complete",
	}
}
