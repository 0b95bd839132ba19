package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sicko7947/automation"
	"github.com/sicko7947/automation/builder"
)

// CreateWorkflow validates and stores a new workflow definition. New
// workflows always start in draft with zeroed counters.
func (e *Engine) CreateWorkflow(ctx context.Context, wf *automation.Workflow) (*automation.Workflow, error) {
	created := wf.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	created.Status = automation.WorkflowStatusDraft
	created.RunCount = 0
	created.LastRunAt = nil

	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := builder.Validate(created); err != nil {
		return nil, err
	}

	if err := e.store.CreateWorkflow(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	e.logger.Info().
		Str("workflow_id", created.ID).
		Str("trigger", created.Trigger.Type.String()).
		Msg("Workflow created")

	return created, nil
}

// GetWorkflow retrieves a workflow definition
func (e *Engine) GetWorkflow(ctx context.Context, id string) (*automation.Workflow, error) {
	return e.store.GetWorkflow(ctx, id)
}

// ListWorkflows lists workflow definitions with filtering
func (e *Engine) ListWorkflows(ctx context.Context, filter automation.WorkflowFilter) ([]*automation.Workflow, error) {
	return e.store.ListWorkflows(ctx, filter)
}

// UpdateWorkflow replaces a workflow's definition. Status and counters are
// kept; status only changes through Activate and Pause. Runs already in
// flight finish on the actions they started with.
func (e *Engine) UpdateWorkflow(ctx context.Context, wf *automation.Workflow) (*automation.Workflow, error) {
	current, err := e.store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		return nil, err
	}

	updated := wf.Clone()
	updated.Status = current.Status
	updated.RunCount = current.RunCount
	updated.LastRunAt = current.LastRunAt
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()

	if err := builder.Validate(updated); err != nil {
		return nil, err
	}

	if err := e.store.UpdateWorkflow(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return updated, nil
}

// Activate makes a draft or paused workflow eligible for triggering
func (e *Engine) Activate(ctx context.Context, id string) (*automation.Workflow, error) {
	return e.transition(ctx, id, (*automation.Workflow).Activate)
}

// Pause stops an active workflow from being triggered
func (e *Engine) Pause(ctx context.Context, id string) (*automation.Workflow, error) {
	return e.transition(ctx, id, (*automation.Workflow).Pause)
}

func (e *Engine) transition(ctx context.Context, id string, apply func(*automation.Workflow) error) (*automation.Workflow, error) {
	wf, err := e.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	from := wf.Status
	if err := apply(wf); err != nil {
		return nil, err
	}

	if err := e.store.UpdateWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to update workflow status: %w", err)
	}

	e.logger.Info().
		Str("workflow_id", wf.ID).
		Str("from", from.String()).
		Str("to", wf.Status.String()).
		Msg("Workflow status changed")

	return wf, nil
}
