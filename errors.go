package automation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeActionFailed      = "ACTION_FAILED"
	ErrCodePanic             = "PANIC"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
)

var (
	// ErrNotFound is wrapped by every store lookup that finds nothing
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for a disallowed workflow status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownTrigger is returned for an event type outside the TriggerKind set
	ErrUnknownTrigger = errors.New("unknown trigger kind")
)

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ExecutionError describes why an execution failed
type ExecutionError struct {
	Message     string     `json:"message" dynamodbav:"message"`
	Code        string     `json:"code" dynamodbav:"code"`
	ActionIndex int        `json:"actionIndex" dynamodbav:"action_index"`
	ActionType  ActionKind `json:"actionType,omitempty" dynamodbav:"action_type,omitempty"`
	Timestamp   time.Time  `json:"timestamp" dynamodbav:"timestamp"`
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.ActionType != "" {
		return fmt.Sprintf("[%s] %s (action %d: %s)", e.Code, e.Message, e.ActionIndex, e.ActionType)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewExecutionError creates a new execution error
func NewExecutionError(code, message string) *ExecutionError {
	return &ExecutionError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewActionError creates an execution error attributed to one action
func NewActionError(err error, index int, kind ActionKind) *ExecutionError {
	ee := toExecutionError(err)
	ee.ActionIndex = index
	ee.ActionType = kind
	return ee
}

// PanicError wraps a value recovered from a panicking capability
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.Value)
}

func toExecutionError(err error) *ExecutionError {
	if err == nil {
		return nil
	}

	// Check if already an ExecutionError
	var ee *ExecutionError
	if errors.As(err, &ee) {
		c := *ee
		return &c
	}

	code := ErrCodeActionFailed
	var pe *PanicError
	if errors.As(err, &pe) {
		code = ErrCodePanic
	}

	return &ExecutionError{
		Message:   err.Error(),
		Code:      code,
		Timestamp: time.Now(),
	}
}

// IsValidationError checks if an error is a definition or input validation error
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnknownTrigger) {
		return true
	}
	return strings.Contains(err.Error(), ErrCodeValidation)
}

// ValidationError reports an invalid workflow definition or request
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", ErrCodeValidation, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", ErrCodeValidation, e.Message)
}
