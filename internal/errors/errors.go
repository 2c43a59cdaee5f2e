package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanNotFound  ErrorCode = "PLAN-001"
	ErrCodePlanInvalid   ErrorCode = "PLAN-002"
	ErrCodePlanDuplicate ErrorCode = "PLAN-003"

	// Task errors (TASK-001 to TASK-099)
	ErrCodeTaskNotFound    ErrorCode = "TASK-001"
	ErrCodeTaskInvalid     ErrorCode = "TASK-002"
	ErrCodeParentNotFound  ErrorCode = "TASK-003"
	ErrCodeTaskGateRefused ErrorCode = "TASK-004"

	// Store errors (STORE-001 to STORE-099)
	ErrCodeStoreLoad        ErrorCode = "STORE-001"
	ErrCodeStoreSave        ErrorCode = "STORE-002"
	ErrCodeStoreMigration   ErrorCode = "STORE-003"
	ErrCodeStoreConsistency ErrorCode = "STORE-004"

	// Notification errors (NOTIFY-001 to NOTIFY-099)
	ErrCodeNotifyDelivery ErrorCode = "NOTIFY-001"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-002"
)

// PlannerError represents an enhanced error with code, suggestions, and a cause chain
type PlannerError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *PlannerError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PlannerError) Unwrap() error {
	return e.Cause
}

// New creates a new PlannerError
func New(code ErrorCode, message string) *PlannerError {
	return &PlannerError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PlannerError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PlannerError {
	return &PlannerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PlannerError) WithSuggestion(suggestion string) *PlannerError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Returns an empty code when err is not a PlannerError.
func CodeOf(err error) ErrorCode {
	var pe *PlannerError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsNotFound reports whether err is any of the not-found error kinds.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodePlanNotFound, ErrCodeTaskNotFound, ErrCodeParentNotFound:
		return true
	}
	return false
}

// Common error constructors for frequently used errors

// NewPlanNotFoundError creates a plan not found error
func NewPlanNotFoundError(planID string) *PlannerError {
	return New(ErrCodePlanNotFound, fmt.Sprintf("plan not found: %s", planID)).
		WithSuggestion("Run 'taskplan plan list' to see known plan ids")
}

// NewPlanDuplicateError creates a duplicate plan id error
func NewPlanDuplicateError(planID string) *PlannerError {
	return New(ErrCodePlanDuplicate, fmt.Sprintf("a plan with id %s already exists", planID))
}

// NewTaskNotFoundError creates a task not found error
func NewTaskNotFoundError(taskID string) *PlannerError {
	return New(ErrCodeTaskNotFound, fmt.Sprintf("task not found: %s", taskID))
}

// NewParentNotFoundError creates a parent task not found error
func NewParentNotFoundError(parentID, planID string) *PlannerError {
	return New(ErrCodeParentNotFound,
		fmt.Sprintf("parent task %s does not exist in plan %s", parentID, planID)).
		WithSuggestion("Omit parent_id to create a root task")
}

// NewConsistencyError creates a consistency fault error. A consistency fault
// means an entity that was just written could not be read back; it signals
// corruption or a lost update and is more severe than a plain not-found.
func NewConsistencyError(detail string) *PlannerError {
	return New(ErrCodeStoreConsistency, fmt.Sprintf("store consistency fault: %s", detail))
}

// NewStoreLoadError creates a load failure error
func NewStoreLoadError(cause error) *PlannerError {
	return Wrap(ErrCodeStoreLoad, "failed to load the task store", cause).
		WithSuggestion("Check that the store file is readable and valid JSON")
}

// NewStoreSaveError creates a save failure error
func NewStoreSaveError(cause error) *PlannerError {
	return Wrap(ErrCodeStoreSave, "failed to persist the task store", cause).
		WithSuggestion("Check directory permissions and free disk space")
}
