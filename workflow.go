package automation

import (
	"fmt"
	"time"
)

// Workflow is an automation definition: a trigger, conditions gating it and
// the actions it runs
type Workflow struct {
	ID          string `json:"id" dynamodbav:"id"`
	Name        string `json:"name" dynamodbav:"name" validate:"required,min=1,max=200"`
	Description string `json:"description,omitempty" dynamodbav:"description,omitempty"`

	Trigger    Trigger     `json:"trigger" dynamodbav:"trigger" validate:"required"`
	Conditions []Condition `json:"conditions" dynamodbav:"conditions" validate:"dive"`
	Actions    []Action    `json:"actions" dynamodbav:"actions" validate:"required,min=1,dive"`

	Status WorkflowStatus `json:"status" dynamodbav:"status" validate:"required,oneof=draft active paused"`

	// Counters, written only through Store.RecordSuccessfulRun
	RunCount  int64      `json:"runCount" dynamodbav:"run_count"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty" dynamodbav:"last_run_at,omitempty"`

	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// IsActive reports whether the workflow may be triggered
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// Matches reports whether an event of the given kind is eligible to start this workflow
func (w *Workflow) Matches(kind TriggerKind) bool {
	return w.IsActive() && w.Trigger.Type == kind
}

// Activate moves a draft or paused workflow to active
func (w *Workflow) Activate() error {
	return w.transitionTo(WorkflowStatusActive)
}

// Pause moves an active workflow to paused
func (w *Workflow) Pause() error {
	return w.transitionTo(WorkflowStatusPaused)
}

func (w *Workflow) transitionTo(next WorkflowStatus) error {
	allowed := false
	switch next {
	case WorkflowStatusActive:
		allowed = w.Status == WorkflowStatusDraft || w.Status == WorkflowStatusPaused
	case WorkflowStatusPaused:
		allowed = w.Status == WorkflowStatusActive
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, next)
	}
	w.Status = next
	w.UpdatedAt = time.Now()
	return nil
}

// SnapshotActions returns a deep copy of the action list so an in-flight run
// is unaffected by later edits to the workflow
func (w *Workflow) SnapshotActions() []Action {
	actions := make([]Action, len(w.Actions))
	for i, a := range w.Actions {
		actions[i] = Action{
			Type:   a.Type,
			Config: cloneMap(a.Config),
			Delay:  a.Delay,
		}
	}
	return actions
}

// Clone creates a deep copy of the workflow
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	c.Trigger = Trigger{Type: w.Trigger.Type, Config: cloneMap(w.Trigger.Config)}
	if w.Conditions != nil {
		c.Conditions = make([]Condition, len(w.Conditions))
		for i, cond := range w.Conditions {
			cond.Value = cloneValue(cond.Value)
			c.Conditions[i] = cond
		}
	}
	if w.Actions != nil {
		c.Actions = w.SnapshotActions()
	}
	if w.LastRunAt != nil {
		c.LastRunAt = ToPtr(*w.LastRunAt)
	}
	return &c
}
