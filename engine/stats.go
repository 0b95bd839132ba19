package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sicko7947/automation"
)

// WorkflowStats aggregates a workflow's execution history
type WorkflowStats struct {
	WorkflowID string `json:"workflowId"`

	// TotalRuns counts execution records, dry runs excluded
	TotalRuns int `json:"totalRuns"`
	// RunCount is the workflow's successful-completion counter
	RunCount int64 `json:"runCount"`

	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`

	// SuccessRate is completed / (completed + failed) * 100
	SuccessRate float64 `json:"successRate"`
	// AverageExecutionTime is the mean duration of completed executions
	AverageExecutionTime time.Duration `json:"averageExecutionTime"`
	LastRun              *time.Time    `json:"lastRun,omitempty"`
	RunsLast24h          int           `json:"runsLast24h"`
}

// Stats computes statistics for a workflow from its execution history
func (e *Engine) Stats(ctx context.Context, workflowID string) (*WorkflowStats, error) {
	wf, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	executions, err := e.store.ListExecutions(ctx, workflowID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return aggregateStats(wf, executions, time.Now()), nil
}

func aggregateStats(wf *automation.Workflow, executions []*automation.Execution, now time.Time) *WorkflowStats {
	stats := &WorkflowStats{
		WorkflowID: wf.ID,
		RunCount:   wf.RunCount,
	}

	var totalDuration time.Duration
	since := now.Add(-24 * time.Hour)

	for _, exec := range executions {
		if exec.DryRun {
			continue
		}
		stats.TotalRuns++

		switch exec.Status {
		case automation.ExecutionStatusCompleted:
			stats.Completed++
			if d, ok := exec.Duration(); ok {
				totalDuration += d
			}
		case automation.ExecutionStatusFailed:
			stats.Failed++
		case automation.ExecutionStatusRunning:
			stats.Running++
		case automation.ExecutionStatusPending:
			stats.Pending++
		}

		if stats.LastRun == nil || exec.StartedAt.After(*stats.LastRun) {
			stats.LastRun = automation.ToPtr(exec.StartedAt)
		}
		if exec.StartedAt.After(since) {
			stats.RunsLast24h++
		}
	}

	if finished := stats.Completed + stats.Failed; finished > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(finished) * 100
	}
	if stats.Completed > 0 {
		stats.AverageExecutionTime = totalDuration / time.Duration(stats.Completed)
	}

	return stats
}
