// Package obstruction implements heuristic obstruction detection: a pure
// function over cleaned HTML, matching case-insensitive substrings
// against three ordered catalogues. The Conduit uses this as a first
// pass before invoking the AI Engine.
package obstruction

import "strings"

// Type enumerates the obstruction categories the heuristic and the AI
// Engine both speak.
type Type string

const (
	None             Type = "NONE"
	ConsentGate      Type = "CONSENT_GATE"
	ContentReveal    Type = "CONTENT_REVEAL"
	MultiClickFlow   Type = "MULTI_CLICK_FLOW"
	DynamicLoad      Type = "DYNAMIC_LOAD"
	JSRouting        Type = "JS_ROUTING"
	BehavioralPuzzle Type = "BEHAVIORAL_PUZZLE"
	HardBlock        Type = "HARD_BLOCK"
)

// Result is the outcome of one detection pass.
type Result struct {
	ObstructionType Type
	Confidence      float64
	Selector        string
	RequiresAI      bool
}

// hardBlockIndicators are checked first: a hard block preempts any
// lower-priority signal on the same page.
var hardBlockIndicators = []string{
	`[class*="captcha"]`,
	`[id*="captcha"]`,
	`iframe[src*="recaptcha"]`,
	`iframe[src*="hcaptcha"]`,
	`[class*="login-wall"]`,
	`[class*="paywall"]`,
	`[id*="login-gate"]`,
}

// consentSelectors cover common cookie/consent management platforms plus
// a handful of generic patterns.
var consentSelectors = []string{
	"#onetrust-accept-btn-handler",
	".onetrust-accept-btn-handler",
	"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
	`[id*="cookie"] [class*="accept"]`,
	`[id*="cookie"] [class*="agree"]`,
	`[id*="consent"] [class*="accept"]`,
	`[id*="consent"] [class*="agree"]`,
	`[class*="cookie-banner"] button`,
	`[class*="cookie-consent"] button`,
	`[class*="gdpr"] [class*="accept"]`,
	`button[class*="accept-cookie"]`,
	`button[class*="cookie-accept"]`,
	`a[class*="accept-cookie"]`,
	`[aria-label*="accept" i][aria-label*="cookie" i]`,
	`[aria-label*="consent" i]`,
}

// contentRevealSelectors indicate collapsed content that may need a click
// to reveal; which exact element to click is left to the AI Engine.
var contentRevealSelectors = []string{
	`[class*="read-more"]`,
	`[class*="show-more"]`,
	`[class*="expand"]`,
	`button[class*="accordion"]`,
	`[data-toggle="collapse"]`,
	"details > summary",
}

// selectorToHTMLPattern normalizes a CSS selector to a substring findable
// in raw HTML:
//   - "#id"             -> `id="id"`
//   - ".class"          -> "class" (appears inside class="...")
//   - `[attr*="val"]`   -> the unquoted value
//   - anything else     -> brackets stripped, split on "*=", trimmed
func selectorToHTMLPattern(selector string) string {
	s := strings.ToLower(strings.TrimSpace(selector))
	if strings.HasPrefix(s, "#") {
		return `id="` + s[1:] + `"`
	}
	if strings.HasPrefix(s, ".") {
		return s[1:]
	}
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, "*=")
	last := strings.TrimSpace(parts[len(parts)-1])
	last = strings.Trim(last, `"'`)
	return last
}

// Detect runs the three-catalogue heuristic over cleaned HTML. It is a
// pure function: the same input always produces the same output.
func Detect(html string) Result {
	htmlLower := strings.ToLower(html)

	for _, indicator := range hardBlockIndicators {
		if strings.Contains(htmlLower, selectorToHTMLPattern(indicator)) {
			return Result{ObstructionType: HardBlock, Confidence: 0.8, RequiresAI: false}
		}
	}

	for _, selector := range consentSelectors {
		if strings.Contains(htmlLower, selectorToHTMLPattern(selector)) {
			return Result{ObstructionType: ConsentGate, Confidence: 0.7, Selector: selector, RequiresAI: false}
		}
	}

	for _, selector := range contentRevealSelectors {
		if strings.Contains(htmlLower, selectorToHTMLPattern(selector)) {
			return Result{ObstructionType: ContentReveal, Confidence: 0.6, Selector: selector, RequiresAI: true}
		}
	}

	return Result{ObstructionType: None, Confidence: 1.0}
}
