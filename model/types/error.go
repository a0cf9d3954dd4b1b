// Package types defines the shared error taxonomy of the approval engine.
// Errors are typed structs carrying enough context to act on without
// inspecting engine state; callers detect them with errors.As, or with
// errors.Is against the package sentinels.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels usable with errors.Is; the typed errors below all match their
// corresponding sentinel.
var (
	ErrCapacityExceeded           = errors.New("capacity exceeded")
	ErrValidationFailed           = errors.New("validation failed")
	ErrQualityBelowThreshold      = errors.New("decision quality below threshold")
	ErrConflictRequiresEscalation = errors.New("decision conflict requires escalation")
	ErrNotFound                   = errors.New("not found")
	ErrInvalidAssessmentInput     = errors.New("invalid assessment input")
	ErrPersistenceDegraded        = errors.New("persistence degraded")
)

// CapacityExceededError is returned when workflow admission is refused. It is
// retryable by the caller after backoff; the engine itself never retries.
type CapacityExceededError struct {
	Capacity int
	Active   int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: %d active of %d allowed", e.Active, e.Capacity)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// Remaining returns the number of admission slots left, never negative.
func (e *CapacityExceededError) Remaining() int {
	if e.Active >= e.Capacity {
		return 0
	}
	return e.Capacity - e.Active
}

// ValidationError aggregates all structural issues found in an input; the
// input is never partially applied.
type ValidationError struct {
	Issues []error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// NewValidationError wraps non-empty issues; it returns nil when there are
// none.
func NewValidationError(issues []error) error {
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// QualityError reports a decision rejected by the quality gate. No state was
// changed.
type QualityError struct {
	WorkflowID string
	StepID     string
	Score      int
	Floor      int
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("decision quality %d below floor %d (workflow %s, step %s)",
		e.Score, e.Floor, e.WorkflowID, e.StepID)
}

func (e *QualityError) Is(target error) bool { return target == ErrQualityBelowThreshold }

// ConflictError reports a decision withheld because of accumulated
// consistency conflicts; the workflow was routed to escalation instead.
type ConflictError struct {
	WorkflowID           string
	StepID               string
	ConflictingDecisions []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("decision withheld: %d conflicting prior decisions on workflow %s require escalation",
		len(e.ConflictingDecisions), e.WorkflowID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflictRequiresEscalation }

// NotFoundError reports an unknown workflow, step, decision or assessment id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError returns a typed not-found error for the given entity kind.
func NewNotFoundError(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// AssessmentInputError reports a negative or out-of-range risk context
// value; inputs are never silently clamped.
type AssessmentInputError struct {
	Field string
	Value interface{}
}

func (e *AssessmentInputError) Error() string {
	return fmt.Sprintf("invalid assessment input: %s=%v", e.Field, e.Value)
}

func (e *AssessmentInputError) Is(target error) bool { return target == ErrInvalidAssessmentInput }

// DegradedError wraps a persistence failure that the engine tolerated; the
// operation proceeded in memory.
type DegradedError struct {
	Cause error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("persistence degraded: %v", e.Cause)
}

func (e *DegradedError) Unwrap() error { return e.Cause }

func (e *DegradedError) Is(target error) bool { return target == ErrPersistenceDegraded }
