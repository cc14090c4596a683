package signal

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestEmitAssignsMonotonicSequence(t *testing.T) {
	e, err := New("run-1", "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	first := e.Emit(ActionExecuted, nil)
	second := e.Emit(ActionExecuted, nil)
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("expected sequence 1,2 got %d,%d", first.Sequence, second.Sequence)
	}
}

func TestEmitNilPayloadBecomesEmptyMap(t *testing.T) {
	e, err := New("run-1", "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	sig := e.Emit(ActionExecuted, nil)
	if sig.Payload == nil {
		t.Fatal("expected a non-nil payload map")
	}
}

func TestSubscriberPanicDoesNotBreakEmission(t *testing.T) {
	e, err := New("run-1", "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	var secondCalled bool
	e.Subscribe(func(Signal) { panic("boom") })
	e.Subscribe(func(Signal) { secondCalled = true })

	e.Emit(ActionExecuted, nil)
	if !secondCalled {
		t.Fatal("expected the second subscriber to still run after the first panicked")
	}
}

func TestLedgerPersistsAndReloads(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "signals.jsonl")
	e, err := New("run-1", ledgerPath, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	e.Emit(ActionExecuted, map[string]any{"action_type": "click"})
	e.EmitRunComplete(3, 1.5, 2)
	e.Close()

	loaded, err := LoadLedger(ledgerPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(loaded))
	}
	if loaded[0].Sequence != 1 || loaded[1].Sequence != 2 {
		t.Fatal("expected ledger entries to preserve sequence order")
	}
}

func TestLoadLedgerMissingFileIsNotAnError(t *testing.T) {
	loaded, err := LoadLedger(filepath.Join(t.TempDir(), "nonexistent.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatal("expected nil for a missing ledger file")
	}
}

func TestEmitPhaseTransitionPayloadShape(t *testing.T) {
	e, err := New("run-1", "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	sig := e.EmitPhaseTransition("INIT", "NAVIGATE", map[string]any{"reason": "ok"})
	if sig.Payload["from_phase"] != "INIT" || sig.Payload["to_phase"] != "NAVIGATE" {
		t.Fatalf("unexpected payload: %+v", sig.Payload)
	}
	if sig.Payload["reason"] != "ok" {
		t.Fatal("expected extra context to be merged into the payload")
	}
}
