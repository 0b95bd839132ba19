package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sicko7947/automation"
)

// MemoryStore implements automation.Store using in-memory storage
type MemoryStore struct {
	workflows  map[string]*automation.Workflow
	executions map[string]*automation.Execution
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() automation.Store {
	return &MemoryStore{
		workflows:  make(map[string]*automation.Workflow),
		executions: make(map[string]*automation.Execution),
	}
}

// Workflow operations

func (s *MemoryStore) CreateWorkflow(ctx context.Context, wf *automation.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; exists {
		return fmt.Errorf("workflow %s already exists", wf.ID)
	}

	s.workflows[wf.ID] = wf.Clone()
	return nil
}

func (s *MemoryStore) GetWorkflow(ctx context.Context, id string) (*automation.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, exists := s.workflows[id]
	if !exists {
		return nil, fmt.Errorf("workflow %s: %w", id, automation.ErrNotFound)
	}

	return wf.Clone(), nil
}

func (s *MemoryStore) UpdateWorkflow(ctx context.Context, wf *automation.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.workflows[wf.ID]
	if !exists {
		return fmt.Errorf("workflow %s: %w", wf.ID, automation.ErrNotFound)
	}

	// Counters are owned by RecordSuccessfulRun
	updated := wf.Clone()
	updated.RunCount = current.RunCount
	updated.LastRunAt = current.LastRunAt
	updated.CreatedAt = current.CreatedAt
	s.workflows[wf.ID] = updated

	return nil
}

func (s *MemoryStore) ListWorkflows(ctx context.Context, filter automation.WorkflowFilter) ([]*automation.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflows := make([]*automation.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		// Apply filters
		if filter.Status != nil && wf.Status != *filter.Status {
			continue
		}
		if filter.Trigger != nil && wf.Trigger.Type != *filter.Trigger {
			continue
		}
		workflows = append(workflows, wf.Clone())
	}

	sort.Slice(workflows, func(i, j int) bool {
		if workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].ID < workflows[j].ID
		}
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	// Apply limit
	if filter.Limit > 0 && len(workflows) > filter.Limit {
		workflows = workflows[:filter.Limit]
	}

	return workflows, nil
}

func (s *MemoryStore) ListActiveWorkflowsByTrigger(ctx context.Context, kind automation.TriggerKind) ([]*automation.Workflow, error) {
	active := automation.WorkflowStatusActive
	return s.ListWorkflows(ctx, automation.WorkflowFilter{Status: &active, Trigger: &kind})
}

func (s *MemoryStore) RecordSuccessfulRun(ctx context.Context, workflowID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, exists := s.workflows[workflowID]
	if !exists {
		return fmt.Errorf("workflow %s: %w", workflowID, automation.ErrNotFound)
	}

	wf.RunCount++
	if wf.LastRunAt == nil || at.After(*wf.LastRunAt) {
		wf.LastRunAt = automation.ToPtr(at)
	}

	return nil
}

// Execution operations

func (s *MemoryStore) CreateExecution(ctx context.Context, exec *automation.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[exec.ID]; exists {
		return fmt.Errorf("execution %s already exists", exec.ID)
	}

	s.executions[exec.ID] = exec.Clone()
	return nil
}

func (s *MemoryStore) GetExecution(ctx context.Context, id string) (*automation.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, exists := s.executions[id]
	if !exists {
		return nil, fmt.Errorf("execution %s: %w", id, automation.ErrNotFound)
	}

	return exec.Clone(), nil
}

func (s *MemoryStore) UpdateExecution(ctx context.Context, exec *automation.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[exec.ID]; !exists {
		return fmt.Errorf("execution %s: %w", exec.ID, automation.ErrNotFound)
	}

	s.executions[exec.ID] = exec.Clone()
	return nil
}

func (s *MemoryStore) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*automation.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	executions := make([]*automation.Execution, 0)
	for _, exec := range s.executions {
		if exec.WorkflowID != workflowID {
			continue
		}
		executions = append(executions, exec.Clone())
	}

	// Most recent first
	sort.Slice(executions, func(i, j int) bool {
		if executions[i].StartedAt.Equal(executions[j].StartedAt) {
			return executions[i].ID > executions[j].ID
		}
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}
