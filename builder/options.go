package builder

import "github.com/sicko7947/automation"

// WorkflowOption is a functional option for configuring workflows
type WorkflowOption func(*automation.Workflow)

// WithID sets the workflow id. Without one the engine assigns a uuid.
func WithID(id string) WorkflowOption {
	return func(w *automation.Workflow) {
		w.ID = id
	}
}

// WithDescription sets the workflow description
func WithDescription(description string) WorkflowOption {
	return func(w *automation.Workflow) {
		w.Description = description
	}
}

// WithTriggerConfig merges config into the trigger configuration
func WithTriggerConfig(config map[string]any) WorkflowOption {
	return func(w *automation.Workflow) {
		if w.Trigger.Config == nil {
			w.Trigger.Config = make(map[string]any, len(config))
		}
		for k, v := range config {
			w.Trigger.Config[k] = v
		}
	}
}

// ApplyOptions applies a list of options to a workflow
func ApplyOptions(w *automation.Workflow, opts ...WorkflowOption) {
	for _, opt := range opts {
		opt(w)
	}
}
