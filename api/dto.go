package api

import (
	"github.com/sicko7947/automation"
)

// WorkflowRequest is the body of create and update requests
type WorkflowRequest struct {
	Name        string                 `json:"name" validate:"required,min=1,max=200"`
	Description string                 `json:"description"`
	Trigger     automation.Trigger     `json:"trigger" validate:"required"`
	Conditions  []automation.Condition `json:"conditions" validate:"dive"`
	Actions     []automation.Action    `json:"actions" validate:"required,min=1,dive"`
}

func (r WorkflowRequest) toWorkflow(id string) *automation.Workflow {
	return &automation.Workflow{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		Status:      automation.WorkflowStatusDraft,
	}
}

// TestRequest is the body of a dry-run request
type TestRequest struct {
	Payload map[string]any `json:"payload"`
}

// EventResponse lists the executions an event started. Queued events have
// no executions yet.
type EventResponse struct {
	EventType  string                  `json:"eventType"`
	Executions []*automation.Execution `json:"executions"`
	Queued     bool                    `json:"queued,omitempty"`
}

// ListWorkflowsResponse wraps a workflow listing
type ListWorkflowsResponse struct {
	Workflows []*automation.Workflow `json:"workflows"`
	Count     int                    `json:"count"`
}

// ListExecutionsResponse wraps an execution listing
type ListExecutionsResponse struct {
	Executions []*automation.Execution `json:"executions"`
	Count      int                     `json:"count"`
}
