package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
	"github.com/sicko7947/automation/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fired struct {
	workflowID string
	payload    map[string]any
}

type fakeFirer struct {
	mu    sync.Mutex
	fires []fired
}

func (f *fakeFirer) Fire(ctx context.Context, wf *automation.Workflow, payload map[string]any) (*automation.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fires = append(f.fires, fired{workflowID: wf.ID, payload: payload})
	if !wf.IsActive() {
		return nil, nil
	}
	return &automation.Execution{ID: "exec-" + wf.ID, WorkflowID: wf.ID}, nil
}

func (f *fakeFirer) Fires() []fired {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fired, len(f.fires))
	copy(out, f.fires)
	return out
}

func putScheduled(t *testing.T, st automation.Store, id, expr string, status automation.WorkflowStatus) *automation.Workflow {
	t.Helper()
	now := time.Now()
	wf := &automation.Workflow{
		ID:        id,
		Name:      "Scheduled " + id,
		Trigger:   automation.Trigger{Type: automation.TriggerTimeBased, Config: map[string]any{CronConfigKey: expr}},
		Actions:   []automation.Action{{Type: automation.ActionWebhook, Config: map[string]any{"url": "https://hooks.example.com"}}},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.CreateWorkflow(context.Background(), wf))
	return wf
}

func TestScheduler_Reload(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	sched := NewScheduler(st, &fakeFirer{}, zerolog.Nop())

	putScheduled(t, st, "wf-a", "*/5 * * * *", automation.WorkflowStatusActive)
	putScheduled(t, st, "wf-b", "0 9 * * 1", automation.WorkflowStatusActive)
	putScheduled(t, st, "wf-draft", "0 * * * *", automation.WorkflowStatusDraft)

	require.NoError(t, sched.Reload(ctx))
	assert.Equal(t, []string{"wf-a", "wf-b"}, sched.Scheduled())

	// cron computes next times once running
	sched.Start()
	defer sched.Stop()

	next, ok := sched.Next("wf-a")
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))

	_, ok = sched.Next("wf-draft")
	assert.False(t, ok)
}

func TestScheduler_ReloadRemovesPausedAndRescheduledChanged(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	sched := NewScheduler(st, &fakeFirer{}, zerolog.Nop())

	a := putScheduled(t, st, "wf-a", "*/5 * * * *", automation.WorkflowStatusActive)
	b := putScheduled(t, st, "wf-b", "0 9 * * 1", automation.WorkflowStatusActive)
	require.NoError(t, sched.Reload(ctx))
	before := sched.entries["wf-b"].id

	require.NoError(t, a.Pause())
	require.NoError(t, st.UpdateWorkflow(ctx, a))

	b.Trigger.Config[CronConfigKey] = "30 9 * * 1"
	require.NoError(t, st.UpdateWorkflow(ctx, b))

	require.NoError(t, sched.Reload(ctx))
	assert.Equal(t, []string{"wf-b"}, sched.Scheduled())
	assert.Equal(t, "30 9 * * 1", sched.entries["wf-b"].expr)
	assert.NotEqual(t, before, sched.entries["wf-b"].id)
	assert.Len(t, sched.cron.Entries(), 1)
}

func TestScheduler_ReloadUnchangedKeepsEntry(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	sched := NewScheduler(st, &fakeFirer{}, zerolog.Nop())

	putScheduled(t, st, "wf-a", "*/5 * * * *", automation.WorkflowStatusActive)
	require.NoError(t, sched.Reload(ctx))
	before := sched.entries["wf-a"].id

	require.NoError(t, sched.Reload(ctx))
	assert.Equal(t, before, sched.entries["wf-a"].id)
}

func TestScheduler_ReloadInvalidExpression(t *testing.T) {
	st := store.NewMemoryStore()
	sched := NewScheduler(st, &fakeFirer{}, zerolog.Nop())

	putScheduled(t, st, "wf-bad", "whenever", automation.WorkflowStatusActive)
	putScheduled(t, st, "wf-good", "0 0 * * *", automation.WorkflowStatusActive)
	putScheduled(t, st, "wf-empty", "", automation.WorkflowStatusActive)

	err := sched.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wf-bad")
	assert.Equal(t, []string{"wf-good"}, sched.Scheduled())
}

func TestScheduler_Run(t *testing.T) {
	st := store.NewMemoryStore()
	firer := &fakeFirer{}
	sched := NewScheduler(st, firer, zerolog.Nop())

	putScheduled(t, st, "wf-a", "*/5 * * * *", automation.WorkflowStatusActive)

	sched.run("wf-a")
	sched.run("wf-missing")

	fires := firer.Fires()
	require.Len(t, fires, 1)
	assert.Equal(t, "wf-a", fires[0].workflowID)
	assert.Equal(t, "wf-a", fires[0].payload["workflowId"])

	firedAt, ok := fires[0].payload["firedAt"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, firedAt)
	assert.NoError(t, err)
}

func TestScheduler_RunPausedWorkflow(t *testing.T) {
	st := store.NewMemoryStore()
	firer := &fakeFirer{}
	sched := NewScheduler(st, firer, zerolog.Nop())

	wf := putScheduled(t, st, "wf-a", "*/5 * * * *", automation.WorkflowStatusActive)
	require.NoError(t, sched.Reload(context.Background()))

	// Paused but not yet reloaded
	require.NoError(t, wf.Pause())
	require.NoError(t, st.UpdateWorkflow(context.Background(), wf))

	sched.run("wf-a")
	fires := firer.Fires()
	require.Len(t, fires, 1)
}
