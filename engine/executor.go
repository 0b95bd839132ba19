package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
const (
	attrWorkflowID  = "automation.workflow.id"
	attrExecutionID = "automation.execution.id"
	attrTriggerType = "automation.trigger.type"
	attrActionIndex = "automation.action.index"
	attrActionType  = "automation.action.type"
	attrDryRun      = "automation.dry_run"
)

// TestTrigger is recorded as TriggeredBy for dry runs
const TestTrigger = "test"

// Start persists a pending execution of wf and runs it in the background.
// The returned execution is a snapshot taken before the run begins.
func (e *Engine) Start(
	ctx context.Context,
	wf *automation.Workflow,
	payload map[string]any,
	opts ...automation.StartOption,
) (*automation.Execution, error) {
	options := automation.ApplyStartOptions(opts...)

	// In-flight runs keep the action list they started with
	actions := wf.SnapshotActions()
	payload = automation.ClonePayload(payload)

	exec, err := e.createExecution(ctx, wf, payload, len(actions), options)
	if err != nil {
		return nil, err
	}

	e.metrics.runStarted()

	handle := exec.Clone()

	// Runs outlive the request or message that started them
	runCtx := context.WithoutCancel(ctx)

	e.runs.Add(1)
	go func() {
		defer e.runs.Done()
		e.execute(runCtx, exec, actions, payload, e.dispatcher)
	}()

	return handle, nil
}

// Test performs a synchronous dry run of wf against sample data. Delays are
// skipped, no capability is called and the workflow's run counter is never
// touched. The execution is persisted for inspection.
func (e *Engine) Test(ctx context.Context, wf *automation.Workflow, sample map[string]any) (*automation.Execution, error) {
	actions := wf.SnapshotActions()
	payload := automation.ClonePayload(sample)

	options := automation.StartOptions{TriggeredBy: TestTrigger, DryRun: true}
	exec, err := e.createExecution(ctx, wf, payload, len(actions), options)
	if err != nil {
		return nil, err
	}

	e.execute(ctx, exec, actions, payload, dryRunDispatcher{})

	return exec.Clone(), nil
}

func (e *Engine) createExecution(
	ctx context.Context,
	wf *automation.Workflow,
	payload map[string]any,
	totalActions int,
	options automation.StartOptions,
) (*automation.Execution, error) {
	triggeredBy := options.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = automation.EntityID(payload)
	}
	if triggeredBy == "" {
		triggeredBy = SystemTrigger
	}

	now := time.Now()
	exec := &automation.Execution{
		ID:           uuid.New().String(),
		WorkflowID:   wf.ID,
		TriggeredBy:  triggeredBy,
		TriggerType:  options.TriggerType,
		Status:       automation.ExecutionStatusPending,
		TotalActions: totalActions,
		StartedAt:    now,
		UpdatedAt:    now,
		DryRun:       options.DryRun,
	}

	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	e.logger.Info().
		Str("event", automation.EventTriggerScheduled).
		Str("execution_id", exec.ID).
		Str("workflow_id", wf.ID).
		Str("triggered_by", triggeredBy).
		Bool("dry_run", options.DryRun).
		Msg("Execution created")

	return exec, nil
}

// execute drives one execution to a terminal state
func (e *Engine) execute(
	ctx context.Context,
	exec *automation.Execution,
	actions []automation.Action,
	payload map[string]any,
	dispatcher Dispatcher,
) {
	execLogger := automation.ExecutionLogger(e.logger, exec.ID, exec.WorkflowID)

	ctx, span := e.tracer.Start(ctx, "automation.execution", trace.WithAttributes(
		attribute.String(attrWorkflowID, exec.WorkflowID),
		attribute.String(attrExecutionID, exec.ID),
		attribute.String(attrTriggerType, string(exec.TriggerType)),
		attribute.Bool(attrDryRun, exec.DryRun),
	))
	defer span.End()

	// Update status to running
	now := time.Now()
	exec.Status = automation.ExecutionStatusRunning
	exec.UpdatedAt = now

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		automation.LogPersistenceError(execLogger, exec.ID, "mark_running", err)
		e.failExecution(ctx, span, execLogger, exec, automation.NewExecutionError(
			automation.ErrCodeInternalError,
			fmt.Sprintf("failed to mark execution running: %v", err),
		))
		return
	}

	automation.LogExecutionStarted(execLogger, exec.ID, exec.WorkflowID, exec.TriggeredBy)

	for i, action := range actions {
		if delay := action.DelayDuration(); delay > 0 && !exec.DryRun {
			automation.LogActionWaiting(execLogger, i, delay)
			if err := sleep(ctx, delay); err != nil {
				e.failExecution(ctx, span, execLogger, exec, automation.NewActionError(err, i, action.Type))
				return
			}
		}

		if err := e.runAction(ctx, execLogger, exec, i, action, payload, dispatcher); err != nil {
			e.failExecution(ctx, span, execLogger, exec, automation.NewActionError(err, i, action.Type))
			return
		}

		exec.ActionsCompleted++
		exec.UpdatedAt = time.Now()

		if err := e.store.UpdateExecution(ctx, exec); err != nil {
			automation.LogPersistenceError(execLogger, exec.ID, "update_progress", err)
		}
	}

	e.completeExecution(ctx, span, execLogger, exec)
}

// runAction dispatches a single action, holding a dispatch slot only for the
// duration of the capability call
func (e *Engine) runAction(
	ctx context.Context,
	execLogger zerolog.Logger,
	exec *automation.Execution,
	index int,
	action automation.Action,
	payload map[string]any,
	dispatcher Dispatcher,
) (err error) {
	actionLogger := automation.ActionLogger(execLogger, index, action.Type)

	ctx, span := e.tracer.Start(ctx, "automation.action", trace.WithAttributes(
		attribute.Int(attrActionIndex, index),
		attribute.String(attrActionType, string(action.Type)),
	))
	defer span.End()

	if e.slots != nil {
		if err := e.slots.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire dispatch slot: %w", err)
		}
		defer e.slots.Release(1)
	}

	// Execute with timeout
	if e.config.ActionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ActionTimeout)
		defer cancel()
	}

	actx := automation.NewActionContext(ctx, exec, index, payload, actionLogger)

	actionLogger.Debug().
		Str("event", automation.EventActionStarted).
		Msg("Dispatching action")

	startTime := time.Now()

	// Execute action (with panic recovery)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &automation.PanicError{Value: r}
				actionLogger.Error().Interface("panic", r).Msg("Action panicked")
			}
		}()

		err = dispatcher.Dispatch(actx, action)
	}()

	duration := time.Since(startTime)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("action timed out after %s: %w", e.config.ActionTimeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !exec.DryRun {
			e.metrics.actionDispatched(action.Type, false)
		}
		automation.LogActionFailed(actionLogger, index, action.Type, err)
		return err
	}

	if !exec.DryRun {
		e.metrics.actionDispatched(action.Type, true)
	}
	automation.LogActionCompleted(actionLogger, index, action.Type, duration.Milliseconds())
	return nil
}

// completeExecution marks the execution completed and bumps the workflow counter
func (e *Engine) completeExecution(ctx context.Context, span trace.Span, execLogger zerolog.Logger, exec *automation.Execution) {
	completedAt := time.Now()
	exec.Status = automation.ExecutionStatusCompleted
	exec.CompletedAt = &completedAt
	exec.UpdatedAt = completedAt

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		automation.LogPersistenceError(execLogger, exec.ID, "mark_completed", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	if !exec.DryRun {
		if err := e.store.RecordSuccessfulRun(ctx, exec.WorkflowID, completedAt); err != nil {
			automation.LogPersistenceError(execLogger, exec.ID, "record_run", err)
		}
	}

	duration := completedAt.Sub(exec.StartedAt)
	if !exec.DryRun {
		e.metrics.runFinished(exec.Status, duration)
	}
	span.SetStatus(codes.Ok, "")
	automation.LogExecutionCompleted(execLogger, exec.ID, duration)
}

// failExecution marks the execution failed. The write is best effort: if it
// fails the record may stay in running.
func (e *Engine) failExecution(ctx context.Context, span trace.Span, execLogger zerolog.Logger, exec *automation.Execution, execErr *automation.ExecutionError) {
	completedAt := time.Now()
	exec.Status = automation.ExecutionStatusFailed
	exec.CompletedAt = &completedAt
	exec.UpdatedAt = completedAt
	exec.Error = execErr

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		automation.LogPersistenceError(execLogger, exec.ID, "mark_failed", err)
	}

	if !exec.DryRun {
		e.metrics.runFinished(exec.Status, completedAt.Sub(exec.StartedAt))
	}
	span.RecordError(execErr)
	span.SetStatus(codes.Error, execErr.Message)
	automation.LogExecutionFailed(execLogger, exec.ID, execErr)
}
