package obstruction

import "testing"

func TestDetectNoneOnCleanPage(t *testing.T) {
	result := Detect("<html><body><h1>Hello World</h1></body></html>")
	if result.ObstructionType != None {
		t.Fatalf("expected None, got %s", result.ObstructionType)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %v", result.Confidence)
	}
}

func TestDetectHardBlockTakesPriority(t *testing.T) {
	html := `<div class="captcha">verify you are human</div><div id="cookie-consent"><button class="accept">Accept</button></div>`
	result := Detect(html)
	if result.ObstructionType != HardBlock {
		t.Fatalf("expected HardBlock, got %s", result.ObstructionType)
	}
	if result.RequiresAI {
		t.Fatal("hard block should not require AI, it fails the run directly")
	}
}

func TestDetectConsentGate(t *testing.T) {
	html := `<div id="cookie-consent"><button class="accept">Accept</button></div><p>content</p>`
	result := Detect(html)
	if result.ObstructionType != ConsentGate {
		t.Fatalf("expected ConsentGate, got %s", result.ObstructionType)
	}
	if result.RequiresAI {
		t.Fatal("a known consent selector should be resolvable without AI")
	}
	if result.Selector == "" {
		t.Fatal("expected a non-empty selector for a resolvable consent gate")
	}
}

func TestDetectContentRevealRequiresAI(t *testing.T) {
	html := `<button class="read-more">Read more</button>`
	result := Detect(html)
	if result.ObstructionType != ContentReveal {
		t.Fatalf("expected ContentReveal, got %s", result.ObstructionType)
	}
	if !result.RequiresAI {
		t.Fatal("content reveal selectors are ambiguous and should require AI")
	}
}

func TestDetectIsPure(t *testing.T) {
	html := `<div class="show-more">More</div>`
	first := Detect(html)
	second := Detect(html)
	if first != second {
		t.Fatal("Detect must be a pure function of its input")
	}
}

func TestSelectorToHTMLPatternForms(t *testing.T) {
	cases := map[string]string{
		"#cookie-consent":       `id="cookie-consent"`,
		".accept":               "accept",
		`[class*="captcha"]`:    "captcha",
		`[id*="login-gate"]`:    "login-gate",
	}
	for selector, want := range cases {
		if got := selectorToHTMLPattern(selector); got != want {
			t.Errorf("selectorToHTMLPattern(%q) = %q, want %q", selector, got, want)
		}
	}
}
