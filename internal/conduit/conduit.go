// Package conduit implements the Conduit: the finite state machine that
// drives one scraping run. It owns the Run, drives the Browser Layer and
// AI Engine, enforces the trust boundary, and emits every signal.
//
// Grounded on original_source/server/conduit/engine.py for the phase
// table, per-phase semantics, and retry/backoff accounting, and on the
// corpus's general "construct dependencies, loop to a terminal state"
// shape for long-running orchestration.
package conduit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/WhiteDevil-93/hermes-go/internal/aiengine"
	"github.com/WhiteDevil-93/hermes-go/internal/browser"
	"github.com/WhiteDevil-93/hermes-go/internal/obstruction"
	"github.com/WhiteDevil-93/hermes-go/internal/pipeline"
	"github.com/WhiteDevil-93/hermes-go/internal/signal"
	"github.com/WhiteDevil-93/hermes-go/internal/trust"
)

// Conduit drives a single run to completion. A second run constructs a
// fresh Conduit — nothing here is process-wide state.
type Conduit struct {
	run    Run
	phase  Phase
	logger *zap.Logger

	browser  *browser.Layer
	ai       *aiengine.Engine
	emitter  *signal.Emitter
	pipeline *pipeline.Manager

	startedAt time.Time
	attempts  int
	aiCalls   int
	failed    bool

	cachedDOM        *browser.Snapshot
	currentObstruct  obstruction.Result
	pendingPlan      []trust.FunctionCall
	interactionTrace []string
	priorAIAttempts  []aiengine.PriorAttempt
}

// New constructs a Conduit bound to run. It does not start the browser or
// touch the filesystem beyond what pipeline.NewManager and signal.New do
// on construction — INIT is where the browser actually launches.
func New(run Run, logger *zap.Logger, emitter *signal.Emitter, mgr *pipeline.Manager, browserLayer *browser.Layer, ai *aiengine.Engine) *Conduit {
	return &Conduit{
		run:      run,
		phase:    PhaseInit,
		logger:   logger,
		browser:  browserLayer,
		ai:       ai,
		emitter:  emitter,
		pipeline: mgr,
	}
}

// Phase returns the Conduit's current phase.
func (c *Conduit) Phase() Phase { return c.phase }

// aiContext bounds ctx by the run's configured AI timeout budget. A
// zero AITimeout (the Run zero value) leaves ctx unbounded rather than
// expiring it immediately.
func (c *Conduit) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.run.AITimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.run.AITimeout)
}

// transition is the single choke point every phase change passes
// through. An invalid edge is a fatal invariant violation: it panics
// without mutating the current phase, recovered only by Run's dispatch
// loop (or left to propagate in a test calling transition directly).
func (c *Conduit) transition(to Phase, extra map[string]any) {
	if !IsValidTransition(c.phase, to) {
		panic(fmt.Sprintf("conduit: invalid phase transition %s -> %s", c.phase, to))
	}
	from := c.phase
	c.phase = to
	c.emitter.EmitPhaseTransition(string(from), string(to), extra)
}

// fail is the one-shot FAIL entry point: it transitions to FAIL and
// emits RUN_FAILED exactly once. Calling it again is a no-op.
func (c *Conduit) fail(reason string) {
	if c.failed || c.phase == PhaseFail {
		return
	}
	c.failed = true
	atPhase := c.phase
	c.transition(PhaseFail, map[string]any{"reason": reason})
	c.emitter.EmitRunFailed(reason, string(atPhase), c.attempts)
}

// complete transitions to COMPLETE and emits RUN_COMPLETE.
func (c *Conduit) complete(totalRecords int) {
	c.transition(PhaseComplete, nil)
	c.emitter.EmitRunComplete(totalRecords, time.Since(c.startedAt).Seconds(), c.aiCalls)
}

// Run executes phase handlers until a terminal phase is reached. It
// returns the run result. It returns ctx's error in two cases: ctx was
// already canceled before Run was called (nil result), or ctx is canceled
// between phases (the result so far, with no RUN_COMPLETE emitted).
func (c *Conduit) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.startedAt = time.Now()
	defer c.cleanup()

	for !IsTerminal(c.phase) {
		if c.run.GlobalTimeout > 0 && time.Since(c.startedAt) > c.run.GlobalTimeout {
			c.fail("Global timeout exceeded")
			break
		}
		if ctx.Err() != nil {
			// Cooperative cancellation: unwind without RUN_COMPLETE.
			return c.buildResult(), ctx.Err()
		}
		c.dispatch(ctx)
	}

	return c.buildResult(), nil
}

// dispatch runs the handler for the current phase, recovering any panic
// into a FAIL transition so a bug in one handler cannot take the whole
// process down.
func (c *Conduit) dispatch(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("conduit: recovered panic", zap.Any("panic", r), zap.String("phase", string(c.phase)))
			c.fail(fmt.Sprintf("%v", r))
		}
	}()

	switch c.phase {
	case PhaseInit:
		c.handleInit(ctx)
	case PhaseNavigate:
		c.handleNavigate(ctx)
	case PhaseAssess:
		c.handleAssess(ctx)
	case PhaseObstruct:
		c.handleObstruct(ctx)
	case PhaseAIReason:
		c.handleAIReason(ctx)
	case PhaseExecutePlan:
		c.handleExecutePlan(ctx)
	case PhaseExtract:
		c.handleExtract(ctx)
	case PhaseValidate:
		c.handleValidate(ctx)
	case PhaseRepair:
		c.handleRepair(ctx)
	case PhasePersist:
		c.handlePersist(ctx)
	default:
		panic(fmt.Sprintf("conduit: no handler for phase %s", c.phase))
	}
}

// cleanup stops the browser on every exit path, including FAIL and
// panic. Errors are swallowed: a failed shutdown must not mask the run's
// actual outcome.
func (c *Conduit) cleanup() {
	if c.browser != nil {
		_ = c.browser.Stop()
	}
}

func (c *Conduit) buildResult() *Result {
	status := "failed"
	if c.phase == PhaseComplete {
		status = "complete"
	}
	recordsCount := 0
	if c.pipeline != nil {
		recordsCount = len(c.pipeline.ProcessedRecords())
	}
	signalsCount := 0
	if c.emitter != nil {
		signalsCount = len(c.emitter.Signals())
	}
	return &Result{
		RunID:        c.run.RunID,
		Status:       status,
		Phase:        string(c.phase),
		RecordsCount: recordsCount,
		DurationS:    time.Since(c.startedAt).Seconds(),
		AICalls:      c.aiCalls,
		SignalsCount: signalsCount,
	}
}
