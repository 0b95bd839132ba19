package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"github.com/sicko7947/automation/store"
	"github.com/stretchr/testify/require"
)

// call records one capability invocation
type call struct {
	Method string
	Args   []any
}

// recordingCapabilities records every call. Hooks let a test fail, panic or
// block a particular method.
type recordingCapabilities struct {
	mu    sync.Mutex
	calls []call

	hooks map[string]func(ctx context.Context) error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newRecordingCapabilities() *recordingCapabilities {
	return &recordingCapabilities{hooks: make(map[string]func(ctx context.Context) error)}
}

func (c *recordingCapabilities) on(method string, hook func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[method] = hook
}

func (c *recordingCapabilities) record(ctx context.Context, method string, args ...any) error {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if n <= peak || c.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, call{Method: method, Args: args})
	hook := c.hooks[method]
	c.mu.Unlock()

	if hook != nil {
		return hook(ctx)
	}
	return nil
}

func (c *recordingCapabilities) Calls() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]call, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *recordingCapabilities) SendEmail(ctx context.Context, msg automation.EmailMessage) error {
	return c.record(ctx, "SendEmail", msg)
}

func (c *recordingCapabilities) SendSMS(ctx context.Context, msg automation.SMSMessage) error {
	return c.record(ctx, "SendSMS", msg)
}

func (c *recordingCapabilities) SendPush(ctx context.Context, msg automation.PushMessage) error {
	return c.record(ctx, "SendPush", msg)
}

func (c *recordingCapabilities) AddTag(ctx context.Context, entityID, tag string) error {
	return c.record(ctx, "AddTag", entityID, tag)
}

func (c *recordingCapabilities) AddToSegment(ctx context.Context, entityID, segmentID string) error {
	return c.record(ctx, "AddToSegment", entityID, segmentID)
}

func (c *recordingCapabilities) CreateDiscount(ctx context.Context, req automation.DiscountRequest) error {
	return c.record(ctx, "CreateDiscount", req)
}

func (c *recordingCapabilities) CallWebhook(ctx context.Context, url string, payload map[string]any) error {
	return c.record(ctx, "CallWebhook", url, payload)
}

func createTestEngine(t *testing.T, opts ...EngineOption) (*Engine, automation.Store, *recordingCapabilities) {
	t.Helper()

	st := store.NewMemoryStore()
	caps := newRecordingCapabilities()

	opts = append([]EngineOption{WithLogger(zerolog.Nop())}, opts...)
	eng := NewEngine(st, caps, opts...)

	t.Cleanup(eng.Wait)
	return eng, st, caps
}

// putActiveWorkflow stores an active workflow directly, bypassing validation
func putActiveWorkflow(t *testing.T, st automation.Store, id string, kind automation.TriggerKind, actions ...automation.Action) *automation.Workflow {
	t.Helper()

	now := time.Now()
	wf := &automation.Workflow{
		ID:        id,
		Name:      "Workflow " + id,
		Trigger:   automation.Trigger{Type: kind},
		Actions:   actions,
		Status:    automation.WorkflowStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.CreateWorkflow(context.Background(), wf))
	return wf
}

func emailAction(templateID string) automation.Action {
	return automation.Action{
		Type:   automation.ActionSendEmail,
		Config: map[string]any{"templateId": templateID},
	}
}

// waitForTerminal polls the store until the execution finishes
func waitForTerminal(t *testing.T, st automation.Store, id string, timeout time.Duration) *automation.Execution {
	t.Helper()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-deadline:
			t.Fatalf("execution %s did not finish within %s", id, timeout)
			return nil
		case <-ticker.C:
			exec, err := st.GetExecution(context.Background(), id)
			require.NoError(t, err)
			if exec.Status.IsTerminal() {
				return exec
			}
		}
	}
}

// requireStatus polls the store until the execution reaches status
func requireStatus(t *testing.T, st automation.Store, id string, status automation.ExecutionStatus) {
	t.Helper()

	require.Eventually(t, func() bool {
		exec, err := st.GetExecution(context.Background(), id)
		return err == nil && exec.Status == status
	}, time.Second, 5*time.Millisecond)
}
