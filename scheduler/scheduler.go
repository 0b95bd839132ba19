// Package scheduler fires time-based workflows on their cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/automation"
)

// CronConfigKey is the trigger config key holding the cron expression
const CronConfigKey = "cron"

// Firer starts a run of one workflow. *engine.Engine satisfies it.
type Firer interface {
	Fire(ctx context.Context, wf *automation.Workflow, payload map[string]any) (*automation.Execution, error)
}

// WorkflowSource loads workflow definitions. automation.Store satisfies it.
type WorkflowSource interface {
	GetWorkflow(ctx context.Context, id string) (*automation.Workflow, error)
	ListActiveWorkflowsByTrigger(ctx context.Context, kind automation.TriggerKind) ([]*automation.Workflow, error)
}

type entry struct {
	id   cron.EntryID
	expr string
}

// Scheduler keeps one cron entry per active time-based workflow
type Scheduler struct {
	source WorkflowSource
	firer  Firer
	logger zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]entry
}

// NewScheduler creates a scheduler. Extra cron options are applied after
// the defaults.
func NewScheduler(source WorkflowSource, firer Firer, logger zerolog.Logger, opts ...cron.Option) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLogger := cronLogger{logger: logger}

	cronOpts := append([]cron.Option{
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		),
	}, opts...)

	return &Scheduler{
		source:  source,
		firer:   firer,
		logger:  logger,
		cron:    cron.New(cronOpts...),
		entries: make(map[string]entry),
	}
}

// Start runs the cron loop in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Reload syncs cron entries with the active time-based workflows. Entries
// for paused or deleted workflows are removed and changed expressions are
// rescheduled.
func (s *Scheduler) Reload(ctx context.Context) error {
	workflows, err := s.source.ListActiveWorkflowsByTrigger(ctx, automation.TriggerTimeBased)
	if err != nil {
		return fmt.Errorf("failed to list time-based workflows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]string, len(workflows))
	for _, wf := range workflows {
		expr, _ := wf.Trigger.Config[CronConfigKey].(string)
		if expr == "" {
			s.logger.Warn().Str("workflow_id", wf.ID).Msg("Time-based workflow has no cron expression")
			continue
		}
		wanted[wf.ID] = expr
	}

	for id, e := range s.entries {
		if expr, ok := wanted[id]; ok && expr == e.expr {
			continue
		}
		s.cron.Remove(e.id)
		delete(s.entries, id)
		s.logger.Info().Str("workflow_id", id).Msg("Unscheduled workflow")
	}

	var firstErr error
	for id, expr := range wanted {
		if _, ok := s.entries[id]; ok {
			continue
		}

		workflowID := id
		entryID, err := s.cron.AddFunc(expr, func() { s.run(workflowID) })
		if err != nil {
			s.logger.Error().Err(err).Str("workflow_id", id).Str("cron", expr).Msg("Failed to schedule workflow")
			if firstErr == nil {
				firstErr = fmt.Errorf("workflow %s: invalid cron expression %q: %w", id, expr, err)
			}
			continue
		}

		s.entries[id] = entry{id: entryID, expr: expr}
		s.logger.Info().Str("workflow_id", id).Str("cron", expr).Msg("Scheduled workflow")
	}

	return firstErr
}

// Scheduled returns the ids of scheduled workflows, sorted
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Next returns the next fire time of a scheduled workflow
func (s *Scheduler) Next(workflowID string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[workflowID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(e.id).Next, true
}

// run is the cron job body. The workflow is re-read so a pause that has not
// been reloaded yet still stops the run.
func (s *Scheduler) run(workflowID string) {
	ctx := context.Background()
	firedAt := time.Now().UTC()

	wf, err := s.source.GetWorkflow(ctx, workflowID)
	if err != nil {
		s.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("Failed to load scheduled workflow")
		return
	}

	payload := map[string]any{
		"workflowId": workflowID,
		"firedAt":    firedAt.Format(time.RFC3339),
	}

	exec, err := s.firer.Fire(ctx, wf, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("Failed to fire scheduled workflow")
		return
	}
	if exec == nil {
		s.logger.Debug().Str("workflow_id", workflowID).Msg("Scheduled workflow not eligible")
		return
	}

	s.logger.Info().
		Str("workflow_id", workflowID).
		Str("execution_id", exec.ID).
		Msg("Scheduled workflow fired")
}

// cronLogger implements cron.Logger on top of zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
