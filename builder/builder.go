package builder

import (
	"fmt"
	"time"

	"github.com/sicko7947/automation"
)

// WorkflowBuilder provides a fluent API for building workflow definitions
type WorkflowBuilder struct {
	workflow *automation.Workflow
}

// NewWorkflow creates a new workflow builder
func NewWorkflow(name string, opts ...WorkflowOption) *WorkflowBuilder {
	w := &automation.Workflow{
		Name:   name,
		Status: automation.WorkflowStatusDraft,
	}
	ApplyOptions(w, opts...)
	return &WorkflowBuilder{workflow: w}
}

// WithDescription sets the workflow description
func (b *WorkflowBuilder) WithDescription(description string) *WorkflowBuilder {
	b.workflow.Description = description
	return b
}

// WithID sets the workflow id
func (b *WorkflowBuilder) WithID(id string) *WorkflowBuilder {
	b.workflow.ID = id
	return b
}

// On sets the trigger kind the workflow listens for
func (b *WorkflowBuilder) On(kind automation.TriggerKind) *WorkflowBuilder {
	b.workflow.Trigger.Type = kind
	return b
}

// Schedule makes the workflow time-based, firing on a standard cron expression
func (b *WorkflowBuilder) Schedule(cronExpr string) *WorkflowBuilder {
	b.workflow.Trigger = automation.Trigger{
		Type:   automation.TriggerTimeBased,
		Config: map[string]any{"cron": cronExpr},
	}
	return b
}

// When adds a condition. The first condition seeds the result; later ones
// are folded in with AND.
func (b *WorkflowBuilder) When(field string, op automation.Operator, value any) *WorkflowBuilder {
	return b.addCondition(field, op, value, automation.LogicAnd)
}

// And adds a condition joined with AND
func (b *WorkflowBuilder) And(field string, op automation.Operator, value any) *WorkflowBuilder {
	return b.addCondition(field, op, value, automation.LogicAnd)
}

// Or adds a condition joined with OR
func (b *WorkflowBuilder) Or(field string, op automation.Operator, value any) *WorkflowBuilder {
	return b.addCondition(field, op, value, automation.LogicOr)
}

func (b *WorkflowBuilder) addCondition(field string, op automation.Operator, value any, logic automation.Logic) *WorkflowBuilder {
	cond := automation.Condition{Field: field, Operator: op, Value: value}
	if len(b.workflow.Conditions) > 0 {
		cond.Logic = logic
	}
	b.workflow.Conditions = append(b.workflow.Conditions, cond)
	return b
}

// Then appends an action that runs immediately after the previous one
func (b *WorkflowBuilder) Then(kind automation.ActionKind, config map[string]any) *WorkflowBuilder {
	return b.ThenAfter(0, kind, config)
}

// ThenAfter appends an action that runs delay after the previous one
func (b *WorkflowBuilder) ThenAfter(delay time.Duration, kind automation.ActionKind, config map[string]any) *WorkflowBuilder {
	b.workflow.Actions = append(b.workflow.Actions, automation.Action{
		Type:   kind,
		Config: config,
		Delay:  delay.Milliseconds(),
	})
	return b
}

// Wait appends a wait action that only pauses the run
func (b *WorkflowBuilder) Wait(delay time.Duration) *WorkflowBuilder {
	return b.ThenAfter(delay, automation.ActionWait, nil)
}

// Build finalizes and validates the workflow
func (b *WorkflowBuilder) Build() (*automation.Workflow, error) {
	w := b.workflow.Clone()
	if err := Validate(w); err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}
	return w, nil
}

// MustBuild finalizes and validates the workflow, panics on error
func (b *WorkflowBuilder) MustBuild() *automation.Workflow {
	w, err := b.Build()
	if err != nil {
		panic(err)
	}
	return w
}
