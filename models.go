package automation

import (
	"time"
)

// TriggerKind identifies the domain event that makes a workflow eligible to run
type TriggerKind string

const (
	TriggerOrderPlaced         TriggerKind = "order_placed"
	TriggerCartAbandoned       TriggerKind = "cart_abandoned"
	TriggerCustomerRegistered  TriggerKind = "customer_registered"
	TriggerProductViewed       TriggerKind = "product_viewed"
	TriggerReviewSubmitted     TriggerKind = "review_submitted"
	TriggerSubscriptionRenewed TriggerKind = "subscription_renewed"
	TriggerTimeBased           TriggerKind = "time_based"
	TriggerSegmentEntered      TriggerKind = "segment_entered"
)

// TriggerKinds lists every supported trigger kind
var TriggerKinds = []TriggerKind{
	TriggerOrderPlaced,
	TriggerCartAbandoned,
	TriggerCustomerRegistered,
	TriggerProductViewed,
	TriggerReviewSubmitted,
	TriggerSubscriptionRenewed,
	TriggerTimeBased,
	TriggerSegmentEntered,
}

// ParseTriggerKind converts an event type name to a TriggerKind
func ParseTriggerKind(s string) (TriggerKind, error) {
	for _, k := range TriggerKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownTrigger
}

// String returns the string representation
func (k TriggerKind) String() string {
	return string(k)
}

// WorkflowStatus represents the lifecycle state of a workflow definition
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"
	WorkflowStatusActive WorkflowStatus = "active"
	WorkflowStatusPaused WorkflowStatus = "paused"
)

// String returns the string representation
func (s WorkflowStatus) String() string {
	return string(s)
}

// ExecutionStatus represents the current state of a workflow execution
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsTerminal returns true if the status is a final state
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// String returns the string representation
func (s ExecutionStatus) String() string {
	return string(s)
}

// Operator is a condition comparison operator
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
)

// Logic joins a condition to the accumulated result of the ones before it
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// ActionKind identifies what an action does
type ActionKind string

const (
	ActionSendEmail      ActionKind = "send_email"
	ActionSendSMS        ActionKind = "send_sms"
	ActionSendPush       ActionKind = "send_push"
	ActionAddTag         ActionKind = "add_tag"
	ActionAddToSegment   ActionKind = "add_to_segment"
	ActionCreateDiscount ActionKind = "create_discount"
	ActionWebhook        ActionKind = "webhook"
	ActionWait           ActionKind = "wait"
)

// String returns the string representation
func (k ActionKind) String() string {
	return string(k)
}

// Trigger describes which events start a workflow
type Trigger struct {
	Type   TriggerKind    `json:"type" dynamodbav:"type" validate:"required,oneof=order_placed cart_abandoned customer_registered product_viewed review_submitted subscription_renewed time_based segment_entered"`
	Config map[string]any `json:"config,omitempty" dynamodbav:"config,omitempty"`
}

// Condition is one boolean test against the triggering event payload
type Condition struct {
	Field    string   `json:"field" dynamodbav:"field" validate:"required"`
	Operator Operator `json:"operator" dynamodbav:"operator" validate:"required,oneof=equals not_equals greater_than less_than contains in"`
	Value    any      `json:"value" dynamodbav:"value"`
	Logic    Logic    `json:"logic,omitempty" dynamodbav:"logic,omitempty" validate:"omitempty,oneof=AND OR"`
}

// Action is one step of a workflow, executed after its delay
type Action struct {
	Type   ActionKind     `json:"type" dynamodbav:"type" validate:"required"`
	Config map[string]any `json:"config,omitempty" dynamodbav:"config,omitempty"`
	Delay  int64          `json:"delay,omitempty" dynamodbav:"delay,omitempty" validate:"gte=0"` // milliseconds
}

// DelayDuration returns the delay as a time.Duration
func (a Action) DelayDuration() time.Duration {
	if a.Delay <= 0 {
		return 0
	}
	return time.Duration(a.Delay) * time.Millisecond
}

// Execution is one run of a workflow against one triggering event
type Execution struct {
	// Identity
	ID          string      `json:"id" dynamodbav:"id"`
	WorkflowID  string      `json:"workflowId" dynamodbav:"workflow_id"`
	TriggeredBy string      `json:"triggeredBy" dynamodbav:"triggered_by"`
	TriggerType TriggerKind `json:"triggerType,omitempty" dynamodbav:"trigger_type,omitempty"`

	// Status
	Status           ExecutionStatus `json:"status" dynamodbav:"status"`
	ActionsCompleted int             `json:"actionsCompleted" dynamodbav:"actions_completed"`
	TotalActions     int             `json:"totalActions" dynamodbav:"total_actions"`

	// Timing
	StartedAt   time.Time  `json:"startedAt" dynamodbav:"started_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" dynamodbav:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt" dynamodbav:"updated_at"`

	// Error handling
	Error *ExecutionError `json:"error,omitempty" dynamodbav:"error,omitempty"`

	// Dry runs are kept for inspection but excluded from statistics
	DryRun bool `json:"dryRun,omitempty" dynamodbav:"dry_run,omitempty"`
}

// Duration returns how long a finished execution took
func (e *Execution) Duration() (time.Duration, bool) {
	if e.CompletedAt == nil {
		return 0, false
	}
	return e.CompletedAt.Sub(e.StartedAt), true
}

// Clone returns a copy that shares no pointers with the receiver
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	c := *e
	if e.CompletedAt != nil {
		c.CompletedAt = ToPtr(*e.CompletedAt)
	}
	if e.Error != nil {
		errCopy := *e.Error
		c.Error = &errCopy
	}
	return &c
}
