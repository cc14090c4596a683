package conduit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/WhiteDevil-93/hermes-go/internal/aiengine"
	"github.com/WhiteDevil-93/hermes-go/internal/browser"
	"github.com/WhiteDevil-93/hermes-go/internal/pipeline"
	"github.com/WhiteDevil-93/hermes-go/internal/signal"
	"github.com/WhiteDevil-93/hermes-go/internal/trust"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	actions []trust.FunctionCall
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ClassifyPage(ctx context.Context, domHTML string) (aiengine.PageClassification, error) {
	return aiengine.PageClassification{PageState: aiengine.PageContentVisible, Confidence: 1}, nil
}

func (f *fakeProvider) GenerateNavigationPlan(ctx context.Context, domHTML, obstructionType string, targetSchema map[string]string, priorAttempts []aiengine.PriorAttempt) (aiengine.NavigationPlan, error) {
	return aiengine.NavigationPlan{Actions: f.actions, EstimatedSteps: len(f.actions), Confidence: 0.9}, nil
}

func (f *fakeProvider) ExtractStructured(ctx context.Context, domHTML string, schema map[string]string, sourceURL string) (aiengine.ExtractionResult, error) {
	return aiengine.ExtractionResult{Records: []map[string]any{{"title": "x"}}, CompletenessScore: 1}, nil
}

func (f *fakeProvider) RepairExtraction(ctx context.Context, partial []map[string]any, schema map[string]string, domHTML string) (aiengine.ExtractionResult, error) {
	return aiengine.ExtractionResult{Records: partial, CompletenessScore: 1}, nil
}

func newTestConduit(t *testing.T, run Run, provider aiengine.Provider) *Conduit {
	t.Helper()
	logger := zap.NewNop()
	emitter, err := signal.New(run.RunID, "", logger)
	require.NoError(t, err)
	mgr, err := pipeline.NewManager(run.RunID, filepath.Join(t.TempDir(), "data"), false)
	require.NoError(t, err)
	engine := aiengine.New(provider, logger)
	require.NoError(t, engine.Initialize(context.Background()))
	layer := browser.New(browser.DefaultConfig())
	return New(run, logger, emitter, mgr, layer, engine)
}

func baseRun() Run {
	return Run{
		RunID:                  "run-1",
		TargetURL:              "https://example.com",
		MaxRetries:             3,
		GlobalTimeout:          10 * time.Second,
		PageLoadTimeout:        5 * time.Second,
		InteractionTimeout:     5 * time.Second,
		BackoffBase:            time.Millisecond,
		BackoffMax:             5 * time.Millisecond,
		MinConfidenceThreshold: 0.5,
	}
}

// S1 — clean page, heuristic extraction, driven directly from EXTRACT so
// the test never needs a live browser.
func TestScenarioCleanPageHeuristicExtraction(t *testing.T) {
	run := baseRun()
	run.ExtractionMode = "heuristic"
	run.HeuristicSelectors = map[string]string{"title": "h1"}

	c := newTestConduit(t, run, nil)
	c.phase = PhaseExtract
	c.startedAt = time.Now()
	c.cachedDOM = &browser.Snapshot{
		HTML:    "<html><body><h1>Hello World</h1></body></html>",
		URL:     run.TargetURL,
		DOMHash: "abc123",
	}

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "complete", result.Status)
	assert.Equal(t, 1, result.RecordsCount)

	records := c.pipeline.ProcessedRecords()
	require.Len(t, records, 1)
	field := records[0].Fields["title"]
	assert.Equal(t, "Hello World", field.Value)
	assert.Equal(t, 1.0, field.Confidence)
	assert.False(t, records[0].IsPartial)
}

// S3 — a hard-block page reaching ASSESS ends the run in FAIL. ASSESS
// captures a fresh snapshot instead of reusing cachedDOM, so without a
// started browser this run fails at that capture, before the hard-block
// catalogue is consulted; the failure reason is not asserted here.
func TestScenarioHardBlockFails(t *testing.T) {
	run := baseRun()
	c := newTestConduit(t, run, nil)
	c.phase = PhaseAssess
	c.startedAt = time.Now()
	c.cachedDOM = &browser.Snapshot{HTML: `<div class="captcha">verify you are human</div>`, URL: run.TargetURL}

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, string(PhaseFail), result.Phase)
}

// S4 — an AI plan containing only a disallowed function is fully
// rejected and the run fails.
func TestScenarioAIRejectedPlanFails(t *testing.T) {
	run := baseRun()
	run.ExtractionMode = "ai"
	provider := &fakeProvider{actions: []trust.FunctionCall{
		{Function: "execute_js", Parameters: map[string]any{"code": "alert(1)"}},
	}}
	c := newTestConduit(t, run, provider)
	c.phase = PhaseAIReason
	c.startedAt = time.Now()
	c.cachedDOM = &browser.Snapshot{HTML: "<html></html>", URL: run.TargetURL}

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "failed", result.Status)

	signals := c.emitter.Signals()
	var sawRejection bool
	for _, s := range signals {
		if s.SignalType == signal.AIRejected {
			sawRejection = true
			assert.Equal(t, "Unknown function: execute_js", s.Payload["reason"])
		}
	}
	assert.True(t, sawRejection, "expected an AI_REJECTED signal")
}

// S5 — a 25-action plan is capped to exactly 20, and the pending plan is
// cleared afterward regardless of outcome (without a started browser the
// first action fails and execution stops there).
func TestScenarioPlanCappedAtTwenty(t *testing.T) {
	actions := make([]trust.FunctionCall, 25)
	for i := range actions {
		actions[i] = trust.FunctionCall{Function: "scroll", Parameters: map[string]any{"direction": "down"}}
	}
	run := baseRun()
	provider := &fakeProvider{actions: actions}
	c := newTestConduit(t, run, provider)

	plan := aiengine.New(provider, zap.NewNop())
	require.NoError(t, plan.Initialize(context.Background()))
	navPlan := plan.GenerateNavigationPlan(context.Background(), "<html></html>", "consent_gate", nil, nil)
	assert.Len(t, navPlan.Actions, trust.MaxActionsPerPlan)

	c.cachedDOM = &browser.Snapshot{HTML: "<html></html>", URL: run.TargetURL}
	c.pendingPlan = trust.TruncatePlan(navPlan.Actions)
	c.phase = PhaseExecutePlan
	c.handleExecutePlan(context.Background())
	assert.Nil(t, c.pendingPlan)
}

// S6 — an invalid transition panics without mutating phase or emitting a
// signal.
func TestScenarioInvalidTransitionPanicsWithoutMutation(t *testing.T) {
	run := baseRun()
	c := newTestConduit(t, run, nil)
	c.phase = PhaseInit

	before := len(c.emitter.Signals())
	assert.Panics(t, func() {
		c.transition(PhaseValidate, nil)
	})
	assert.Equal(t, PhaseInit, c.phase)
	assert.Equal(t, before, len(c.emitter.Signals()))
}

func TestFailIsOneShot(t *testing.T) {
	run := baseRun()
	c := newTestConduit(t, run, nil)
	c.phase = PhaseNavigate
	c.fail("first failure")
	assert.Equal(t, PhaseFail, c.phase)

	signalsAfterFirst := len(c.emitter.Signals())
	c.fail("second failure, should be a no-op")
	assert.Equal(t, signalsAfterFirst, len(c.emitter.Signals()))
}

func TestHandleValidateFailsOnZeroRecordsWithoutAI(t *testing.T) {
	run := baseRun()
	c := newTestConduit(t, run, nil)
	c.phase = PhaseValidate
	c.handleValidate(context.Background())
	assert.Equal(t, PhaseFail, c.phase)
}

func TestHandleValidateRoutesLowConfidenceToRepair(t *testing.T) {
	run := baseRun()
	run.MinConfidenceThreshold = 0.9
	provider := &fakeProvider{}
	c := newTestConduit(t, run, provider)
	c.phase = PhaseValidate
	sel := "h1"
	c.pipeline.AddProcessedRecord(pipeline.ExtractionRecord{
		Fields: map[string]pipeline.FieldValue{"title": {Value: "x", Confidence: 0.1, SourceSelector: &sel}},
	})
	c.handleValidate(context.Background())
	assert.Equal(t, PhaseRepair, c.phase)
}

func TestBuildResultReflectsTerminalPhase(t *testing.T) {
	run := baseRun()
	c := newTestConduit(t, run, nil)
	c.startedAt = time.Now()
	c.phase = PhaseComplete
	result := c.buildResult()
	assert.Equal(t, "complete", result.Status)
}

// A Run with no URL policy configured rejects every target by default —
// SSRF protection fails closed rather than open.
func TestHandleInitFailsClosedWithoutURLPolicy(t *testing.T) {
	run := baseRun()
	c := newTestConduit(t, run, nil)
	c.phase = PhaseInit
	c.handleInit(context.Background())
	assert.Equal(t, PhaseFail, c.phase)
}

func TestHandleInitRejectsPrivateIPTarget(t *testing.T) {
	run := baseRun()
	run.TargetURL = "http://127.0.0.1:9000/admin"
	run.AllowedSchemes = []string{"http", "https"}
	run.BlockLocalHostnames = true
	run.BlockPrivateIPs = true
	c := newTestConduit(t, run, nil)
	c.phase = PhaseInit
	c.handleInit(context.Background())
	assert.Equal(t, PhaseFail, c.phase)
}
