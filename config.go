package automation

// StartOption allows functional configuration of an execution start
type StartOption func(*StartOptions)

// StartOptions holds options for starting an execution
type StartOptions struct {
	// TriggeredBy overrides the entity id extracted from the payload
	TriggeredBy string
	TriggerType TriggerKind
	DryRun      bool
}

// WithTriggeredBy sets the entity recorded as having triggered the run
func WithTriggeredBy(id string) StartOption {
	return func(opts *StartOptions) {
		opts.TriggeredBy = id
	}
}

// WithTriggerType records the event kind that started the run
func WithTriggerType(kind TriggerKind) StartOption {
	return func(opts *StartOptions) {
		opts.TriggerType = kind
	}
}

// ApplyStartOptions folds options into a StartOptions value
func ApplyStartOptions(opts ...StartOption) StartOptions {
	options := StartOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
