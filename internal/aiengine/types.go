// Package aiengine implements the AI Engine contract: a stateless,
// multi-provider adapter to a remote LLM that returns structured values
// only. It never dispatches actions itself; every Function Call it
// returns passes through the trust boundary before a browser touches it.
//
// Grounded on the retrieved corpus's internal/perception provider
// pattern (one struct per provider behind a common interface, a factory
// keyed by config) and on original_source/server/ai_engine/engine.py for
// the four operations' exact prompts and rules.
package aiengine

import (
	"context"

	"go.uber.org/zap"

	"github.com/WhiteDevil-93/hermes-go/internal/telemetry"
	"github.com/WhiteDevil-93/hermes-go/internal/trust"
)

// PageState is the coarse classification of a captured page.
type PageState string

const (
	PageContentVisible PageState = "CONTENT_VISIBLE"
	PageGated          PageState = "GATED"
	PageBlocked        PageState = "BLOCKED"
	PageError          PageState = "ERROR"
	PageLoading        PageState = "LOADING"
	PageRedirect       PageState = "REDIRECT"
	PageEmpty          PageState = "EMPTY"
)

// PageClassification is the result of classify_page.
type PageClassification struct {
	PageState               PageState `json:"page_state"`
	Confidence               float64   `json:"confidence"`
	ContentRegionsDetected   int       `json:"content_regions_detected"`
	ObstructionIndicators    []string  `json:"obstruction_indicators"`
}

// NavigationPlan is the result of generate_navigation_plan. Actions are
// truncated to MaxActionsPerPlan before this struct is returned to the
// Conduit.
type NavigationPlan struct {
	Actions        []trust.FunctionCall `json:"actions"`
	EstimatedSteps int                   `json:"estimated_steps"`
	Confidence     float64               `json:"confidence"`
}

// ExtractionResult is the shared shape of extract_structured and
// repair_extraction.
type ExtractionResult struct {
	Records             []map[string]any `json:"records"`
	CompletenessScore   float64          `json:"completeness_score"`
	DuplicatesDetected  int              `json:"duplicates_detected"`
}

// PriorAttempt summarizes one earlier navigation attempt for inclusion in
// the generate_navigation_plan prompt.
type PriorAttempt struct {
	Phase    string `json:"phase"`
	Action   string `json:"action"`
	Detail   string `json:"detail"`
	Outcome  string `json:"outcome"`
	Selector string `json:"selector,omitempty"`
}

// maxHTMLCodeUnits caps every LLM payload's HTML budget, bounding token
// cost regardless of the captured page's actual size.
const maxHTMLCodeUnits = 50_000

func truncateHTML(html string) string {
	r := []rune(html)
	if len(r) <= maxHTMLCodeUnits {
		return html
	}
	return string(r[:maxHTMLCodeUnits])
}

// Provider is implemented by each concrete LLM backend. All four
// operations return structured values decoded from the model's
// response; a provider never executes a Function Call itself.
type Provider interface {
	Name() string
	ClassifyPage(ctx context.Context, domHTML string) (PageClassification, error)
	GenerateNavigationPlan(ctx context.Context, domHTML, obstructionType string, targetSchema map[string]string, priorAttempts []PriorAttempt) (NavigationPlan, error)
	ExtractStructured(ctx context.Context, domHTML string, schema map[string]string, sourceURL string) (ExtractionResult, error)
	RepairExtraction(ctx context.Context, partial []map[string]any, schema map[string]string, domHTML string) (ExtractionResult, error)
}

// Engine wraps a Provider with the parts of the contract that are
// provider-independent: best-effort initialization and action-count
// enforcement.
type Engine struct {
	provider  Provider
	logger    *zap.Logger
	available bool
}

// New wraps provider in an Engine. provider may be nil, in which case
// the Engine reports itself unavailable. The operations do not check
// availability themselves; calling one on an Engine with a nil provider
// panics. logger may be zap.NewNop() in tests.
func New(provider Provider, logger *zap.Logger) *Engine {
	return &Engine{provider: provider, logger: logger}
}

// Initialize attempts to bring the underlying provider up. Failure is
// not fatal to the caller: IsAvailable reports false afterward and the
// Conduit is expected to demote to heuristic-only extraction.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.provider == nil {
		e.available = false
		return nil
	}
	// Providers in this package are stateless HTTP/SDK clients with no
	// handshake step; availability is just "a provider was configured".
	e.available = true
	return nil
}

// IsAvailable reports whether operations may be attempted.
func (e *Engine) IsAvailable() bool {
	return e.available && e.provider != nil
}

// ProviderName returns the active provider's name, or "" if none.
func (e *Engine) ProviderName() string {
	if e.provider == nil {
		return ""
	}
	return e.provider.Name()
}

// ClassifyPage never returns an error: a transport failure is logged as
// a suppressed telemetry event and a low-confidence ERROR classification
// is returned instead, per the AI Engine's "never an exception" contract.
func (e *Engine) ClassifyPage(ctx context.Context, domHTML string) PageClassification {
	out, err := e.provider.ClassifyPage(ctx, truncateHTML(domHTML))
	if err != nil {
		telemetry.Emit(e.logger, telemetry.ErrAIClassificationFailed, err.Error(), "", "", nil)
		return PageClassification{PageState: PageError, Confidence: 0}
	}
	return out
}

// GenerateNavigationPlan never returns an error: a transport failure
// yields an empty, zero-confidence plan so the caller's existing
// empty-plan handling applies uniformly.
func (e *Engine) GenerateNavigationPlan(ctx context.Context, domHTML, obstructionType string, targetSchema map[string]string, priorAttempts []PriorAttempt) NavigationPlan {
	plan, err := e.provider.GenerateNavigationPlan(ctx, truncateHTML(domHTML), obstructionType, targetSchema, priorAttempts)
	if err != nil {
		telemetry.Emit(e.logger, telemetry.ErrAIPlanGenerationFailed, err.Error(), "", "", nil)
		return NavigationPlan{}
	}
	if len(plan.Actions) > trust.MaxActionsPerPlan {
		plan.Actions = plan.Actions[:trust.MaxActionsPerPlan]
	}
	return plan
}

// ExtractStructured never returns an error: a transport failure yields
// an empty, zero-completeness result.
func (e *Engine) ExtractStructured(ctx context.Context, domHTML string, schema map[string]string, sourceURL string) ExtractionResult {
	out, err := e.provider.ExtractStructured(ctx, truncateHTML(domHTML), schema, sourceURL)
	if err != nil {
		telemetry.Emit(e.logger, telemetry.ErrAIExtractionFailed, err.Error(), "", "", nil)
		return ExtractionResult{}
	}
	return out
}

// RepairExtraction never returns an error: a transport failure yields
// back the original partial set unchanged.
func (e *Engine) RepairExtraction(ctx context.Context, partial []map[string]any, schema map[string]string, domHTML string) ExtractionResult {
	out, err := e.provider.RepairExtraction(ctx, partial, schema, truncateHTML(domHTML))
	if err != nil {
		telemetry.Emit(e.logger, telemetry.ErrAIRepairFailed, err.Error(), "", "", nil)
		return ExtractionResult{Records: partial}
	}
	return out
}
