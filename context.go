package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// ActionContext carries everything an action needs about the run it belongs to
type ActionContext struct {
	context.Context

	// Execution metadata
	ExecutionID string
	WorkflowID  string
	ActionIndex int

	// Logger (enriched with execution and action context)
	Logger zerolog.Logger

	// Payload of the triggering event
	Payload map[string]any

	raw []byte
}

// NewActionContext builds the context for one action of a run
func NewActionContext(ctx context.Context, exec *Execution, index int, payload map[string]any, logger zerolog.Logger) *ActionContext {
	return &ActionContext{
		Context:     ctx,
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		ActionIndex: index,
		Logger:      logger,
		Payload:     payload,
	}
}

// EntityID returns the id of the entity the triggering event is about
func (c *ActionContext) EntityID() string {
	return EntityID(c.Payload)
}

// Lookup resolves a gjson path against the JSON form of the payload
func (c *ActionContext) Lookup(path string) (gjson.Result, error) {
	if c.raw == nil {
		raw, err := json.Marshal(c.Payload)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to encode payload: %w", err)
		}
		c.raw = raw
	}
	return gjson.GetBytes(c.raw, path), nil
}

// LookupString resolves a path to a non-empty string
func (c *ActionContext) LookupString(path string) (string, bool) {
	res, err := c.Lookup(path)
	if err != nil || !res.Exists() {
		return "", false
	}
	s := res.String()
	return s, s != ""
}
