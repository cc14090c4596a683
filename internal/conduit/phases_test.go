package conduit

import "testing"

func TestIsValidTransitionAllowsInitToNavigate(t *testing.T) {
	if !IsValidTransition(PhaseInit, PhaseNavigate) {
		t.Fatal("expected INIT -> NAVIGATE to be valid")
	}
}

func TestIsValidTransitionRejectsInitToValidate(t *testing.T) {
	if IsValidTransition(PhaseInit, PhaseValidate) {
		t.Fatal("expected INIT -> VALIDATE to be invalid")
	}
}

func TestIsTerminalCompleteAndFail(t *testing.T) {
	if !IsTerminal(PhaseComplete) {
		t.Fatal("COMPLETE should be terminal")
	}
	if !IsTerminal(PhaseFail) {
		t.Fatal("FAIL should be terminal")
	}
	if IsTerminal(PhaseNavigate) {
		t.Fatal("NAVIGATE should not be terminal")
	}
}

func TestEveryNonTerminalPhaseHasAnOutboundEdge(t *testing.T) {
	for phase, edges := range validTransitions {
		if IsTerminal(phase) {
			continue
		}
		if len(edges) == 0 {
			t.Fatalf("phase %s has no valid outbound transitions", phase)
		}
	}
}
