package builder

import (
	"errors"
	"testing"
	"time"

	"github.com/sicko7947/automation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailConfig() map[string]any {
	return map[string]any{"templateId": "welcome"}
}

func TestNewWorkflow(t *testing.T) {
	builder := NewWorkflow("Welcome series")

	assert.NotNil(t, builder)
	wf, err := builder.Build()
	require.Error(t, err) // no trigger, no actions
	assert.Nil(t, wf)
	assert.True(t, automation.IsValidationError(err))
}

func TestWorkflowBuilder_Build(t *testing.T) {
	wf, err := NewWorkflow("Welcome series").
		WithDescription("Greets new customers").
		On(automation.TriggerCustomerRegistered).
		Then(automation.ActionSendEmail, emailConfig()).
		Wait(time.Hour).
		ThenAfter(24*time.Hour, automation.ActionCreateDiscount, map[string]any{"type": "percentage", "value": 10}).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "Welcome series", wf.Name)
	assert.Equal(t, "Greets new customers", wf.Description)
	assert.Equal(t, automation.WorkflowStatusDraft, wf.Status)
	assert.Equal(t, automation.TriggerCustomerRegistered, wf.Trigger.Type)
	require.Len(t, wf.Actions, 3)
	assert.Equal(t, int64(0), wf.Actions[0].Delay)
	assert.Equal(t, automation.ActionWait, wf.Actions[1].Type)
	assert.Equal(t, int64(3_600_000), wf.Actions[1].Delay)
	assert.Equal(t, int64(86_400_000), wf.Actions[2].Delay)
}

func TestWorkflowBuilder_AllowsUnknownActionKind(t *testing.T) {
	wf, err := NewWorkflow("Fax follow-up").
		On(automation.TriggerOrderPlaced).
		Then("send_fax", nil).
		Then(automation.ActionSendEmail, emailConfig()).
		Build()

	require.NoError(t, err)
	require.Len(t, wf.Actions, 2)
	assert.Equal(t, automation.ActionKind("send_fax"), wf.Actions[0].Type)
}

func TestWorkflowBuilder_Options(t *testing.T) {
	wf := NewWorkflow("Cart recovery",
		WithID("wf-cart"),
		WithDescription("Nudges abandoned carts"),
	).
		On(automation.TriggerCartAbandoned).
		Then(automation.ActionSendEmail, emailConfig()).
		MustBuild()

	assert.Equal(t, "wf-cart", wf.ID)
	assert.Equal(t, "Nudges abandoned carts", wf.Description)
}

func TestWorkflowBuilder_Conditions(t *testing.T) {
	wf := NewWorkflow("VIP orders").
		On(automation.TriggerOrderPlaced).
		When("order.total", automation.OpGreaterThan, 100).
		And("customer.tier", automation.OpEquals, "gold").
		Or("customer.tags", automation.OpContains, "vip").
		Then(automation.ActionAddTag, map[string]any{"tag": "big-spender"}).
		MustBuild()

	require.Len(t, wf.Conditions, 3)
	assert.Empty(t, wf.Conditions[0].Logic)
	assert.Equal(t, automation.LogicAnd, wf.Conditions[1].Logic)
	assert.Equal(t, automation.LogicOr, wf.Conditions[2].Logic)
}

func TestWorkflowBuilder_Schedule(t *testing.T) {
	wf := NewWorkflow("Nightly digest").
		Schedule("0 2 * * *").
		Then(automation.ActionWebhook, map[string]any{"url": "https://hooks.example.com/digest"}).
		MustBuild()

	assert.Equal(t, automation.TriggerTimeBased, wf.Trigger.Type)
	assert.Equal(t, "0 2 * * *", wf.Trigger.Config["cron"])
}

func TestWorkflowBuilder_BuildReturnsCopy(t *testing.T) {
	b := NewWorkflow("Copy").
		On(automation.TriggerOrderPlaced).
		Then(automation.ActionSendEmail, emailConfig())

	first := b.MustBuild()
	first.Actions[0].Config["templateId"] = "changed"

	second := b.MustBuild()
	assert.Equal(t, "welcome", second.Actions[0].Config["templateId"])
}

func TestWorkflowBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewWorkflow("No actions").On(automation.TriggerOrderPlaced).MustBuild()
	})
}

func TestValidate(t *testing.T) {
	valid := func() *automation.Workflow {
		return &automation.Workflow{
			Name:    "Valid",
			Status:  automation.WorkflowStatusDraft,
			Trigger: automation.Trigger{Type: automation.TriggerOrderPlaced},
			Actions: []automation.Action{{Type: automation.ActionSendEmail, Config: emailConfig()}},
		}
	}

	tests := []struct {
		name      string
		mutate    func(w *automation.Workflow)
		wantField string
	}{
		{
			name:   "valid",
			mutate: func(w *automation.Workflow) {},
		},
		{
			name:      "missing name",
			mutate:    func(w *automation.Workflow) { w.Name = "" },
			wantField: "Name",
		},
		{
			name:      "missing trigger",
			mutate:    func(w *automation.Workflow) { w.Trigger = automation.Trigger{} },
			wantField: "Trigger",
		},
		{
			name:      "unknown trigger",
			mutate:    func(w *automation.Workflow) { w.Trigger.Type = "order_shipped" },
			wantField: "Trigger.Type",
		},
		{
			name:      "no actions",
			mutate:    func(w *automation.Workflow) { w.Actions = nil },
			wantField: "Actions",
		},
		{
			name:      "empty actions",
			mutate:    func(w *automation.Workflow) { w.Actions = []automation.Action{} },
			wantField: "Actions",
		},
		{
			name:      "missing action type",
			mutate:    func(w *automation.Workflow) { w.Actions[0].Type = "" },
			wantField: "Actions[0].Type",
		},
		{
			name:      "negative delay",
			mutate:    func(w *automation.Workflow) { w.Actions[0].Delay = -1 },
			wantField: "Actions[0].Delay",
		},
		{
			name:      "unknown status",
			mutate:    func(w *automation.Workflow) { w.Status = "archived" },
			wantField: "Status",
		},
		{
			name: "unknown operator",
			mutate: func(w *automation.Workflow) {
				w.Conditions = []automation.Condition{{Field: "a", Operator: "matches", Value: "x"}}
			},
			wantField: "Conditions[0].Operator",
		},
		{
			name: "in without list",
			mutate: func(w *automation.Workflow) {
				w.Conditions = []automation.Condition{{Field: "a", Operator: automation.OpIn, Value: "x"}}
			},
			wantField: "conditions[0].value",
		},
		{
			name: "in with list",
			mutate: func(w *automation.Workflow) {
				w.Conditions = []automation.Condition{{Field: "a", Operator: automation.OpIn, Value: []string{"x", "y"}}}
			},
		},
		{
			name:      "missing template",
			mutate:    func(w *automation.Workflow) { w.Actions[0].Config = nil },
			wantField: "actions[0].config.templateId",
		},
		{
			name: "discount without value",
			mutate: func(w *automation.Workflow) {
				w.Actions = append(w.Actions, automation.Action{
					Type:   automation.ActionCreateDiscount,
					Config: map[string]any{"type": "percentage"},
				})
			},
			wantField: "actions[1].config.value",
		},
		{
			name: "webhook with bad url",
			mutate: func(w *automation.Workflow) {
				w.Actions = []automation.Action{{Type: automation.ActionWebhook, Config: map[string]any{"url": "not a url"}}}
			},
			wantField: "actions[0].config.url",
		},
		{
			name: "wait needs no config",
			mutate: func(w *automation.Workflow) {
				w.Actions = append(w.Actions, automation.Action{Type: automation.ActionWait, Delay: 1000})
			},
		},
		{
			name: "time based without cron",
			mutate: func(w *automation.Workflow) {
				w.Trigger = automation.Trigger{Type: automation.TriggerTimeBased}
			},
			wantField: "trigger.config.cron",
		},
		{
			name: "time based with bad cron",
			mutate: func(w *automation.Workflow) {
				w.Trigger = automation.Trigger{Type: automation.TriggerTimeBased, Config: map[string]any{"cron": "every day"}}
			},
			wantField: "trigger.config.cron",
		},
		{
			name: "time based with cron",
			mutate: func(w *automation.Workflow) {
				w.Trigger = automation.Trigger{Type: automation.TriggerTimeBased, Config: map[string]any{"cron": "*/15 * * * *"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid()
			tt.mutate(w)

			err := Validate(w)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var ve *automation.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
			assert.True(t, automation.IsValidationError(err))
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	err := Validate(nil)
	assert.Error(t, err)
}
