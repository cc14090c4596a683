// Package telemetry defines the canonical error codes attached to every
// suppressed/observational failure in a run, and the structured logging
// helper that emits them.
package telemetry

import "go.uber.org/zap"

// ErrorCode is a closed set of codes for operational telemetry. Every
// suppressed failure in the system carries one of these so operators have
// a stable grep target in logs.
type ErrorCode string

const (
	ErrAIInitializationFailed  ErrorCode = "AI_INITIALIZATION_FAILED"
	ErrAIClassificationFailed  ErrorCode = "AI_CLASSIFICATION_FAILED"
	ErrAIPlanGenerationFailed  ErrorCode = "AI_PLAN_GENERATION_FAILED"
	ErrAIExtractionFailed      ErrorCode = "AI_EXTRACTION_FAILED"
	ErrAIRepairFailed          ErrorCode = "AI_REPAIR_FAILED"
	ErrSignalSubscriberFailure ErrorCode = "SIGNAL_SUBSCRIBER_FAILURE"
	ErrBrowserCleanupFailed    ErrorCode = "BROWSER_CLEANUP_FAILED"
	ErrConduitActionExecution  ErrorCode = "CONDUIT_ACTION_EXECUTION_FAILED"
	ErrPipelinePersistFailed   ErrorCode = "PIPELINE_PERSIST_FAILED"
)

// Emit logs a structured, suppressed-failure telemetry event. The caller
// has already decided the failure must not propagate; this is the record
// of that decision.
func Emit(logger *zap.Logger, code ErrorCode, message string, runID, phase string, details map[string]any) {
	fields := []zap.Field{
		zap.String("error_code", string(code)),
		zap.String("error_message", message),
		zap.Bool("suppressed", true),
	}
	if runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if phase != "" {
		fields = append(fields, zap.String("phase", phase))
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	logger.Error("hermes_error", fields...)
}
