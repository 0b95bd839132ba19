package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// TracerName is the instrumentation name used when no tracer is configured
const TracerName = "github.com/sicko7947/automation/engine"

// SystemTrigger is recorded as TriggeredBy when a payload names no entity
const SystemTrigger = "system"

// Engine matches events to workflows and drives their executions
type Engine struct {
	store      automation.Store
	dispatcher Dispatcher
	logger     zerolog.Logger
	config     EngineConfig
	metrics    *Metrics
	tracer     trace.Tracer

	slots *semaphore.Weighted
	runs  sync.WaitGroup
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	// MaxConcurrentDispatches bounds capability calls in flight across all
	// runs. Zero means unbounded.
	MaxConcurrentDispatches int

	// ActionTimeout bounds a single capability call. Zero means no timeout.
	ActionTimeout time.Duration
}

// DefaultEngineConfig provides sensible defaults
var DefaultEngineConfig = EngineConfig{
	MaxConcurrentDispatches: 0,
	ActionTimeout:           30 * time.Second,
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the engine
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig sets a custom configuration for the engine
func WithConfig(config EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = config
	}
}

// WithDispatcher replaces the capability-backed dispatcher
func WithDispatcher(d Dispatcher) EngineOption {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithMetrics records run and action metrics to the given collector
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for run and action spans
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// NewEngine creates a new engine dispatching actions to caps.
// If no logger is provided, a default stdout logger with Info level is used.
// If no config is provided, DefaultEngineConfig is used.
func NewEngine(store automation.Store, caps automation.Capabilities, opts ...EngineOption) *Engine {
	// Default logger: pretty console output, Info level
	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	eng := &Engine{
		store:  store,
		logger: defaultLogger,
		config: DefaultEngineConfig,
	}

	// Apply options
	for _, opt := range opts {
		opt(eng)
	}

	if eng.dispatcher == nil {
		eng.dispatcher = NewActionDispatcher(caps)
	}
	if eng.tracer == nil {
		eng.tracer = otel.Tracer(TracerName)
	}
	if eng.config.MaxConcurrentDispatches > 0 {
		eng.slots = semaphore.NewWeighted(int64(eng.config.MaxConcurrentDispatches))
	}

	return eng
}

// OnEvent starts a run of every active workflow whose trigger matches
// eventType and whose conditions accept the payload. It returns the
// scheduled executions without waiting for any of them to finish.
func (e *Engine) OnEvent(ctx context.Context, eventType string, payload map[string]any) ([]*automation.Execution, error) {
	kind, err := automation.ParseTriggerKind(eventType)
	if err != nil {
		return nil, fmt.Errorf("event type %q: %w", eventType, err)
	}

	workflows, err := e.store.ListActiveWorkflowsByTrigger(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows for %s: %w", kind, err)
	}

	automation.LogTriggerReceived(e.logger, kind, len(workflows))

	executions := make([]*automation.Execution, 0, len(workflows))
	for _, wf := range workflows {
		exec, err := e.trigger(ctx, wf, kind, payload)
		if err != nil {
			e.logger.Error().
				Err(err).
				Str("workflow_id", wf.ID).
				Str("trigger", kind.String()).
				Msg("Failed to start workflow")
			continue
		}
		if exec != nil {
			executions = append(executions, exec)
		}
	}

	return executions, nil
}

// Fire runs the trigger gate for a single workflow. The scheduler uses it so
// one cron entry only starts its own time-based workflow.
func (e *Engine) Fire(ctx context.Context, wf *automation.Workflow, payload map[string]any) (*automation.Execution, error) {
	return e.trigger(ctx, wf, wf.Trigger.Type, payload)
}

// trigger returns a nil execution when the workflow is not eligible
func (e *Engine) trigger(ctx context.Context, wf *automation.Workflow, kind automation.TriggerKind, payload map[string]any) (*automation.Execution, error) {
	// Index reads can lag behind a pause
	if !wf.Matches(kind) {
		automation.LogWorkflowSkipped(e.logger, wf.ID, kind)
		return nil, nil
	}

	if !automation.EvaluateConditions(wf.Conditions, payload) {
		automation.LogWorkflowSkipped(e.logger, wf.ID, kind)
		return nil, nil
	}

	e.logger.Debug().
		Str("event", automation.EventWorkflowMatched).
		Str("workflow_id", wf.ID).
		Str("trigger", kind.String()).
		Msg("Workflow matched")

	return e.Start(ctx, wf, payload, automation.WithTriggerType(kind))
}

// GetExecution retrieves an execution
func (e *Engine) GetExecution(ctx context.Context, id string) (*automation.Execution, error) {
	return e.store.GetExecution(ctx, id)
}

// ListExecutions lists a workflow's executions, most recent first
func (e *Engine) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*automation.Execution, error) {
	return e.store.ListExecutions(ctx, workflowID, limit)
}

// Wait blocks until every run started by this engine has returned
func (e *Engine) Wait() {
	e.runs.Wait()
}
