// Package trust implements the trust boundary between AI-produced
// actions and executed actions: a closed allowlist of function names,
// per-function parameter validation, and the cross-origin rule for
// navigate_url.
package trust

// FunctionCall is a structured action the AI Engine proposes. Only the
// Conduit's validation decides whether it is ever dispatched.
type FunctionCall struct {
	Function        string         `json:"function"`
	Parameters      map[string]any `json:"parameters"`
	ExpectedOutcome string         `json:"expected_outcome,omitempty"`
	Fallback        *string        `json:"fallback,omitempty"`
}

// NavigationFunctions are the function names the Browser Layer can
// actually execute.
var NavigationFunctions = map[string]bool{
	"click":       true,
	"scroll":      true,
	"fill_form":   true,
	"hover":       true,
	"press_key":   true,
	"wait_for":    true,
	"navigate_url": true,
}

// AssessmentFunctions are tracing-only names the AI may emit when
// describing its own reasoning; they carry no Browser Layer dispatch.
var AssessmentFunctions = map[string]bool{
	"classify_page":            true,
	"classify_obstruction":     true,
	"identify_content_region":  true,
	"assess_completeness":      true,
}

// ExtractionFunctions are tracing-only extraction-related names.
var ExtractionFunctions = map[string]bool{
	"extract_structured":     true,
	"repair_extraction":      true,
	"deduplicate":            true,
	"convert_prose_to_fields": true,
}

// MaxActionsPerPlan is the circuit breaker on AI-generated navigation
// plans: actions beyond this count are truncated before the Conduit ever
// sees them as a pending plan.
const MaxActionsPerPlan = 20

func allowed(name string) bool {
	return NavigationFunctions[name] || AssessmentFunctions[name] || ExtractionFunctions[name]
}

// Validate checks a Function Call against the allowlist and per-function
// parameter rules. It returns an empty string if the call is valid, or a
// human-readable rejection reason otherwise. allowCrossOrigin and
// currentHost are only consulted for navigate_url.
func Validate(call FunctionCall, allowCrossOrigin bool, currentHost string) string {
	if !allowed(call.Function) {
		return "Unknown function: " + call.Function
	}

	switch call.Function {
	case "click", "hover":
		if _, ok := call.Parameters["selector"]; !ok {
			return call.Function + " requires 'selector' parameter"
		}
	case "scroll":
		direction, _ := call.Parameters["direction"].(string)
		if direction != "up" && direction != "down" {
			return "scroll direction must be 'up' or 'down', got '" + direction + "'"
		}
	case "fill_form":
		_, hasSelector := call.Parameters["selector"]
		_, hasValue := call.Parameters["value"]
		if !hasSelector || !hasValue {
			return "fill_form requires 'selector' and 'value' parameters"
		}
	case "navigate_url":
		url, _ := call.Parameters["url"].(string)
		if url == "" {
			return "navigate_url requires a non-empty 'url' parameter"
		}
		if !allowCrossOrigin {
			if host := hostOf(url); host != "" && currentHost != "" && host != currentHost {
				return "navigate_url target host '" + host + "' differs from run host '" + currentHost + "' and cross-origin navigation is disallowed"
			}
		}
	}

	return ""
}

// TruncatePlan enforces MaxActionsPerPlan, dropping any actions beyond
// the cap.
func TruncatePlan(actions []FunctionCall) []FunctionCall {
	if len(actions) <= MaxActionsPerPlan {
		return actions
	}
	return actions[:MaxActionsPerPlan]
}
