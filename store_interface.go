package automation

import (
	"context"
	"time"
)

// Store defines the persistence interface for workflows and executions
type Store interface {
	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	// UpdateWorkflow writes the definition and status. It never writes
	// RunCount or LastRunAt.
	UpdateWorkflow(ctx context.Context, wf *Workflow) error
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*Workflow, error)
	ListActiveWorkflowsByTrigger(ctx context.Context, kind TriggerKind) ([]*Workflow, error)

	// RecordSuccessfulRun atomically increments RunCount and sets LastRunAt
	RecordSuccessfulRun(ctx context.Context, workflowID string, at time.Time) error

	// Executions
	CreateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	UpdateExecution(ctx context.Context, exec *Execution) error
	// ListExecutions returns a workflow's executions, most recent first.
	// A limit <= 0 returns all of them.
	ListExecutions(ctx context.Context, workflowID string, limit int) ([]*Execution, error)
}

// WorkflowFilter defines filtering criteria for workflow listings
type WorkflowFilter struct {
	Status  *WorkflowStatus
	Trigger *TriggerKind
	Limit   int
}
