package conduit

// Phase is one state of the Conduit finite state machine.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseNavigate    Phase = "NAVIGATE"
	PhaseAssess      Phase = "ASSESS"
	PhaseObstruct    Phase = "OBSTRUCT"
	PhaseAIReason    Phase = "AI_REASON"
	PhaseExecutePlan Phase = "EXECUTE_PLAN"
	PhaseExtract     Phase = "EXTRACT"
	PhaseValidate    Phase = "VALIDATE"
	PhaseRepair      Phase = "REPAIR"
	PhasePersist     Phase = "PERSIST"
	PhaseComplete    Phase = "COMPLETE"
	PhaseFail        Phase = "FAIL"
)

// validTransitions is the only permitted edge table. No edge ever leads
// back to INIT; every non-terminal phase has an edge to FAIL.
var validTransitions = map[Phase]map[Phase]bool{
	PhaseInit:        set(PhaseNavigate, PhaseFail),
	PhaseNavigate:    set(PhaseAssess, PhaseFail),
	PhaseAssess:      set(PhaseExtract, PhaseObstruct, PhaseFail),
	PhaseObstruct:    set(PhaseAIReason, PhaseNavigate, PhaseFail),
	PhaseAIReason:    set(PhaseExecutePlan, PhaseFail),
	PhaseExecutePlan: set(PhaseAssess, PhaseFail),
	PhaseExtract:     set(PhaseValidate, PhaseFail),
	PhaseValidate:    set(PhasePersist, PhaseRepair, PhaseFail),
	PhaseRepair:      set(PhaseValidate, PhaseFail),
	PhasePersist:     set(PhaseComplete, PhaseFail),
}

var terminalPhases = set(PhaseComplete, PhaseFail)

func set(phases ...Phase) map[Phase]bool {
	m := make(map[Phase]bool, len(phases))
	for _, p := range phases {
		m[p] = true
	}
	return m
}

// IsTerminal reports whether p is a terminal phase (COMPLETE or FAIL).
func IsTerminal(p Phase) bool {
	return terminalPhases[p]
}

// IsValidTransition reports whether q is a permitted successor of p.
func IsValidTransition(p, q Phase) bool {
	return validTransitions[p][q]
}
