// Package signal implements the Signal Emitter: the append-only,
// monotonic, immutable event stream every Conduit run produces.
package signal

import "time"

// Type enumerates every signal the system emits. Emitted verbatim on the
// wire — this vocabulary is part of the public interface.
type Type string

const (
	PhaseTransition    Type = "PHASE_TRANSITION"
	ObstructionDetected Type = "OBSTRUCTION_DETECTED"
	AIInvoked          Type = "AI_INVOKED"
	AIResponded        Type = "AI_RESPONDED"
	AIRejected         Type = "AI_REJECTED"
	ActionExecuted     Type = "ACTION_EXECUTED"
	ExtractionComplete Type = "EXTRACTION_COMPLETE"
	RetryAttempt       Type = "RETRY_ATTEMPT"
	RunComplete        Type = "RUN_COMPLETE"
	RunFailed          Type = "RUN_FAILED"
)

// Signal is an immutable record of one event in a run. Once returned from
// Emit, none of its fields may be changed by the caller; Go cannot enforce
// that at the type level the way a frozen pydantic model does, so callers
// must treat the value as read-only by convention — Emit always returns a
// fresh copy, never a pointer into the emitter's internal list.
type Signal struct {
	Sequence   int            `json:"sequence"`
	SignalType Type           `json:"signal_type"`
	Timestamp  time.Time      `json:"timestamp"`
	RunID      string         `json:"run_id"`
	Payload    map[string]any `json:"payload"`
}
