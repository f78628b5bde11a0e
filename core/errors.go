package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAgentNotFound is returned by registries for unknown agent ids.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSessionClosed is returned when mutating a session that is no longer active.
	ErrSessionClosed = errors.New("session is not active")

	// ErrHandoffRejected signals a failed compare-and-swap on the current agent.
	ErrHandoffRejected = errors.New("handoff rejected: current agent mismatch")

	// ErrUpstreamUnavailable wraps LLM backend, tool gateway and timeout failures.
	// Callers recover from it locally by taking a deterministic fallback path.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNoAgentsAvailable reports that no eligible agent matched a request.
	ErrNoAgentsAvailable = errors.New("no agents available")

	// ErrBudgetExhausted is returned by CallBudget once its limit is reached.
	ErrBudgetExhausted = errors.New("call budget exhausted")
)

// ValidationError represents a caller error on a single field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Unavailable wraps err so that errors.Is(err, ErrUpstreamUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
