package automation

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log event names
const (
	// Trigger-level events
	EventTriggerReceived  = "trigger_received"
	EventWorkflowMatched  = "workflow_matched"
	EventWorkflowSkipped  = "workflow_skipped"
	EventTriggerScheduled = "trigger_scheduled"

	// Execution-level events
	EventExecutionStarted   = "execution_started"
	EventExecutionCompleted = "execution_completed"
	EventExecutionFailed    = "execution_failed"

	// Action-level events
	EventActionWaiting   = "action_waiting"
	EventActionStarted   = "action_started"
	EventActionCompleted = "action_completed"
	EventActionFailed    = "action_failed"
	EventActionUnknown   = "action_unknown"
	EventActionDryRun    = "action_dry_run"

	// Persistence events
	EventPersistenceError = "persistence_error"
)

// NewLogger builds the process logger. Pretty output uses the console writer,
// otherwise JSON lines are written to stdout.
func NewLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger().
			Level(lvl)
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// LogTriggerReceived logs an incoming event
func LogTriggerReceived(logger zerolog.Logger, kind TriggerKind, candidates int) {
	logger.Debug().
		Str("event", EventTriggerReceived).
		Str("trigger", kind.String()).
		Int("candidates", candidates).
		Msg("Trigger received")
}

// LogWorkflowSkipped logs a workflow whose conditions did not match
func LogWorkflowSkipped(logger zerolog.Logger, workflowID string, kind TriggerKind) {
	logger.Debug().
		Str("event", EventWorkflowSkipped).
		Str("workflow_id", workflowID).
		Str("trigger", kind.String()).
		Msg("Workflow conditions not met")
}

// LogExecutionStarted logs when an execution starts running
func LogExecutionStarted(logger zerolog.Logger, executionID, workflowID, triggeredBy string) {
	logger.Info().
		Str("event", EventExecutionStarted).
		Str("execution_id", executionID).
		Str("workflow_id", workflowID).
		Str("triggered_by", triggeredBy).
		Msg("Execution started")
}

// LogExecutionCompleted logs successful completion
func LogExecutionCompleted(logger zerolog.Logger, executionID string, duration time.Duration) {
	logger.Info().
		Str("event", EventExecutionCompleted).
		Str("execution_id", executionID).
		Dur("duration", duration).
		Msg("Execution completed")
}

// LogExecutionFailed logs execution failure
func LogExecutionFailed(logger zerolog.Logger, executionID string, err error) {
	logger.Error().
		Str("event", EventExecutionFailed).
		Str("execution_id", executionID).
		Err(err).
		Msg("Execution failed")
}

// LogActionWaiting logs the delay that precedes an action
func LogActionWaiting(logger zerolog.Logger, index int, delay time.Duration) {
	logger.Debug().
		Str("event", EventActionWaiting).
		Int("action_index", index).
		Dur("delay", delay).
		Msg("Waiting before action")
}

// LogActionCompleted logs a finished action
func LogActionCompleted(logger zerolog.Logger, index int, kind ActionKind, durationMs int64) {
	logger.Info().
		Str("event", EventActionCompleted).
		Int("action_index", index).
		Str("action_type", kind.String()).
		Int64("duration_ms", durationMs).
		Msg("Action completed")
}

// LogActionFailed logs action failure
func LogActionFailed(logger zerolog.Logger, index int, kind ActionKind, err error) {
	logger.Error().
		Str("event", EventActionFailed).
		Int("action_index", index).
		Str("action_type", kind.String()).
		Err(err).
		Msg("Action failed")
}

// LogPersistenceError logs errors during persistence operations
func LogPersistenceError(logger zerolog.Logger, executionID, operation string, err error) {
	logger.Error().
		Str("event", EventPersistenceError).
		Str("execution_id", executionID).
		Str("operation", operation).
		Err(err).
		Msg("Persistence error")
}

// ExecutionLogger creates a logger enriched with execution context
func ExecutionLogger(baseLogger zerolog.Logger, executionID, workflowID string) zerolog.Logger {
	return baseLogger.With().
		Str("execution_id", executionID).
		Str("workflow_id", workflowID).
		Logger()
}

// ActionLogger creates a logger enriched with action context
func ActionLogger(executionLogger zerolog.Logger, index int, kind ActionKind) zerolog.Logger {
	return executionLogger.With().
		Int("action_index", index).
		Str("action_type", kind.String()).
		Logger()
}
