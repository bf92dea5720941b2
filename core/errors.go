package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen is returned when an agent type's breaker rejects a run.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrNoModelAvailable is returned when the selected model and every
	// fallback failed. It is terminal and never retried.
	ErrNoModelAvailable = errors.New("no model available")
	// ErrQuestionTimeout is returned when the user did not answer in time.
	ErrQuestionTimeout = errors.New("question timed out")
	// ErrQuestionCancelled is returned when a pending question was cancelled.
	ErrQuestionCancelled = errors.New("question cancelled")
	// ErrQuotaExceeded is returned when an admission check refuses.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrOrchestratorClosed is returned by Process after Close.
	ErrOrchestratorClosed = errors.New("orchestrator closed")
	// ErrToolNotFound is returned when a call names an unknown tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidTransition is returned when a status change would move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CircuitOpenError reports a breaker rejection for an agent type.
type CircuitOpenError struct {
	AgentType  AgentType
	RetryAfter time.Duration
}

// Error implements error.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s agent, retry after %s", e.AgentType, e.RetryAfter.Round(time.Second))
}

// Unwrap makes errors.Is(err, ErrCircuitOpen) hold.
func (e *CircuitOpenError) Unwrap() error { return ErrCircuitOpen }
