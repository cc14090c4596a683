package telemetry

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmitLogsErrorCodeAndMessage(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	Emit(logger, ErrAIExtractionFailed, "transport timeout", "run-1", "EXTRACT", map[string]any{"attempt": 2})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["error_code"] != string(ErrAIExtractionFailed) {
		t.Fatalf("unexpected error_code: %v", fields["error_code"])
	}
	if fields["error_message"] != "transport timeout" {
		t.Fatalf("unexpected error_message: %v", fields["error_message"])
	}
	if fields["suppressed"] != true {
		t.Fatal("expected suppressed=true")
	}
	if fields["run_id"] != "run-1" {
		t.Fatalf("unexpected run_id: %v", fields["run_id"])
	}
}

func TestEmitOmitsEmptyOptionalFields(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	Emit(logger, ErrBrowserCleanupFailed, "close failed", "", "", nil)

	fields := logs.All()[0].ContextMap()
	if _, ok := fields["run_id"]; ok {
		t.Fatal("expected run_id to be omitted when empty")
	}
	if _, ok := fields["phase"]; ok {
		t.Fatal("expected phase to be omitted when empty")
	}
}
