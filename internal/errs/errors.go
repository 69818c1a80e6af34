// Package errs declares the error kinds spec.md 7 "Error handling design"
// names, generalized from the teacher's internal/executor/errors.go
// TaskError/ExecutionError/TimeoutError trio: a typed error per kind,
// Is* classifiers built on errors.As, and wrapping helpers that attach the
// task/agent/dimension context each kind needs.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BudgetDimension names which budget dimension a BudgetExhaustedError
// breached (spec.md 4.C "budgetType").
type BudgetDimension string

const (
	DimensionTokens     BudgetDimension = "tokens"
	DimensionCost       BudgetDimension = "cost"
	DimensionDuration   BudgetDimension = "duration"
	DimensionIterations BudgetDimension = "iterations"
)

// CancellationError marks a cancellation — graceful or hard — never logged
// as an agent failure (spec.md 7).
type CancellationError struct {
	AgentID  string
	Graceful bool
	Reason   error
}

func (e *CancellationError) Error() string {
	kind := "hard"
	if e.Graceful {
		kind = "graceful"
	}
	if e.Reason != nil {
		return fmt.Sprintf("agent %s: %s cancellation: %v", e.AgentID, kind, e.Reason)
	}
	return fmt.Sprintf("agent %s: %s cancellation", e.AgentID, kind)
}

func (e *CancellationError) Unwrap() error { return e.Reason }

// BudgetExhaustedError is a hard-limit breach: non-retryable, surfaced to
// the parent with the breached dimension named (spec.md 7).
type BudgetExhaustedError struct {
	AgentID   string
	Dimension BudgetDimension
	Used      float64
	Limit     float64
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("agent %s: hard %s budget exhausted (%.2f >= %.2f)", e.AgentID, e.Dimension, e.Used, e.Limit)
}

// PolicyDenialError is a blocked tool/bash call. It is not a crash — the
// planner receives it as a tool-result message with status=error and may
// adapt (spec.md 7).
type PolicyDenialError struct {
	ToolName string
	Reason   string
}

func (e *PolicyDenialError) Error() string {
	return fmt.Sprintf("tool %q denied: %s", e.ToolName, e.Reason)
}

// DecompositionError records an LLM-assisted decomposition attempt
// failure. The orchestrator retries once, then falls back to a
// single-task plan; the heuristic fallback path never produces this error
// (spec.md 4.F, 7).
type DecompositionError struct {
	Attempt int
	Err     error
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("decomposition attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *DecompositionError) Unwrap() error { return e.Err }

// ToolExecutionError is reported to the planner as a tool-result message;
// the executor loop itself never propagates it upward (spec.md 7).
type ToolExecutionError struct {
	ToolName string
	Message  string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("tool %s: %s", e.ToolName, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// PersistenceError is warned, never fatal: the caller should log it (the
// event bus carries a persistence.warning) and continue without the
// persisted side effect (spec.md 7).
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ProgrammerError marks a null-reference/schema-mismatch/precondition
// violation. Fatal for the current agent only; the parent receives a
// structured agent.error event and decides whether to continue the swarm
// (spec.md 7).
type ProgrammerError struct {
	AgentID string
	Message string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("agent %s: programmer error: %s", e.AgentID, e.Message)
}

// TimeoutError mirrors the teacher's internal/executor/errors.go
// TimeoutError: a deadline breach tied to a named unit of work, unwrapping
// to context.DeadlineExceeded for interop with context-based callers.
type TimeoutError struct {
	Subject         string
	TimeoutDuration time.Duration
	Context         string
}

func (e *TimeoutError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: timeout after %v", e.Subject, e.TimeoutDuration))
	if e.Context != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Context))
	}
	return sb.String()
}

// IsCancellation reports whether err is or wraps a CancellationError.
func IsCancellation(err error) bool {
	var ce *CancellationError
	return errors.As(err, &ce)
}

// IsBudgetExhausted reports whether err is or wraps a BudgetExhaustedError.
func IsBudgetExhausted(err error) bool {
	var be *BudgetExhaustedError
	return errors.As(err, &be)
}

// IsPolicyDenial reports whether err is or wraps a PolicyDenialError.
func IsPolicyDenial(err error) bool {
	var pe *PolicyDenialError
	return errors.As(err, &pe)
}

// IsProgrammerError reports whether err is or wraps a ProgrammerError.
func IsProgrammerError(err error) bool {
	var pe *ProgrammerError
	return errors.As(err, &pe)
}
