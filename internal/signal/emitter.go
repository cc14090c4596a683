package signal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WhiteDevil-93/hermes-go/internal/telemetry"
)

// Subscriber receives every signal emitted by an Emitter, in emission
// order. A subscriber must not block indefinitely: broadcast is
// sequential across subscribers by design (ordering invariant), so a slow
// subscriber delays every subscriber after it.
type Subscriber func(Signal)

// Emitter emits, persists, and broadcasts signals for a single run.
//
// Invariants (spec §4.1, §8):
//  1. Sequence numbers form an unbroken increasing series from 1 to N.
//  2. The ledger is append-only; never rewritten, truncated, or reordered.
//  3. Signal values are never mutated after Emit returns them.
type Emitter struct {
	mu          sync.Mutex
	runID       string
	sequence    int
	ledgerPath  string
	ledgerFile  *os.File
	ledgerMu    sync.Mutex
	signals     []Signal
	subscribers []Subscriber
	logger      *zap.Logger
}

// New constructs an Emitter for one run. If ledgerPath is empty, signals
// are kept in memory only (useful for tests). The ledger directory is
// created if it does not exist.
func New(runID, ledgerPath string, logger *zap.Logger) (*Emitter, error) {
	e := &Emitter{
		runID:      runID,
		ledgerPath: ledgerPath,
		logger:     logger,
	}
	if ledgerPath != "" {
		if err := os.MkdirAll(filepath.Dir(ledgerPath), 0o755); err != nil {
			return nil, fmt.Errorf("signal: create ledger dir: %w", err)
		}
		f, err := os.OpenFile(ledgerPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("signal: open ledger: %w", err)
		}
		e.ledgerFile = f
	}
	return e, nil
}

// RunID returns the run this emitter belongs to.
func (e *Emitter) RunID() string { return e.runID }

// Signals returns a read-only copy of every signal emitted so far.
func (e *Emitter) Signals() []Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Signal, len(e.signals))
	copy(out, e.signals)
	return out
}

// Subscribe registers a callback for real-time signal delivery.
func (e *Emitter) Subscribe(s Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, s)
}

// Emit assigns the next sequence number, stamps UTC time, appends to the
// in-memory list, persists to the ledger, and broadcasts to subscribers —
// in that order. It is the only way a Signal comes into existence.
func (e *Emitter) Emit(typ Type, payload map[string]any) Signal {
	if payload == nil {
		payload = map[string]any{}
	}

	e.mu.Lock()
	e.sequence++
	sig := Signal{
		Sequence:   e.sequence,
		SignalType: typ,
		Timestamp:  time.Now().UTC(),
		RunID:      e.runID,
		Payload:    payload,
	}
	e.signals = append(e.signals, sig)
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	e.persist(sig)
	e.broadcast(sig, subs)

	return sig
}

func (e *Emitter) persist(sig Signal) {
	if e.ledgerFile == nil {
		return
	}
	line, err := json.Marshal(sig)
	if err != nil {
		telemetry.Emit(e.logger, telemetry.ErrPipelinePersistFailed, err.Error(), e.runID, "", nil)
		return
	}
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()
	if _, err := e.ledgerFile.Write(append(line, '\n')); err != nil {
		telemetry.Emit(e.logger, telemetry.ErrPipelinePersistFailed, err.Error(), e.runID, "", nil)
	}
}

func (e *Emitter) broadcast(sig Signal, subs []Subscriber) {
	for _, sub := range subs {
		e.invokeSubscriber(sig, sub)
	}
}

// invokeSubscriber never lets a panicking or slow subscriber break
// emission for the caller or for the next subscriber.
func (e *Emitter) invokeSubscriber(sig Signal, sub Subscriber) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Emit(e.logger, telemetry.ErrSignalSubscriberFailure,
				fmt.Sprintf("subscriber panic: %v", r), e.runID, "", nil)
		}
	}()
	sub(sig)
}

// EmitPhaseTransition is a convenience wrapper emitting a PHASE_TRANSITION
// signal with the standard from/to payload shape, merged with extra
// context fields.
func (e *Emitter) EmitPhaseTransition(from, to string, context map[string]any) Signal {
	payload := map[string]any{"from_phase": from, "to_phase": to}
	for k, v := range context {
		payload[k] = v
	}
	return e.Emit(PhaseTransition, payload)
}

// EmitRunComplete is a convenience wrapper for the terminal success signal.
func (e *Emitter) EmitRunComplete(totalRecords int, totalDurationS float64, aiCallsCount int) Signal {
	return e.Emit(RunComplete, map[string]any{
		"total_records":    totalRecords,
		"total_duration_s": totalDurationS,
		"ai_calls_count":   aiCallsCount,
	})
}

// EmitRunFailed is a convenience wrapper for the terminal failure signal.
func (e *Emitter) EmitRunFailed(reason, phaseAtFailure string, attemptsMade int) Signal {
	return e.Emit(RunFailed, map[string]any{
		"failure_reason":  reason,
		"phase_at_failure": phaseAtFailure,
		"attempts_made":   attemptsMade,
	})
}

// Close releases the ledger file handle, if any.
func (e *Emitter) Close() error {
	if e.ledgerFile == nil {
		return nil
	}
	return e.ledgerFile.Close()
}

// LoadLedger rehydrates signals from a persisted JSONL ledger file.
func LoadLedger(path string) ([]Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Signal
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var sig Signal
		if err := json.Unmarshal([]byte(line), &sig); err != nil {
			return nil, fmt.Errorf("signal: decode ledger line: %w", err)
		}
		out = append(out, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
