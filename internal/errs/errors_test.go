package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellationErrorMessageAndUnwrap(t *testing.T) {
	reason := errors.New("user requested stop")
	err := &CancellationError{AgentID: "a1", Graceful: true, Reason: reason}

	assert.Contains(t, err.Error(), "a1")
	assert.Contains(t, err.Error(), "graceful")
	assert.ErrorIs(t, err, reason)

	hard := &CancellationError{AgentID: "a2"}
	assert.Contains(t, hard.Error(), "hard")
}

func TestIsCancellationMatchesWrappedError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &CancellationError{AgentID: "a1"})
	assert.True(t, IsCancellation(err))
	assert.False(t, IsCancellation(errors.New("something else")))
}

func TestBudgetExhaustedErrorMessage(t *testing.T) {
	err := &BudgetExhaustedError{AgentID: "a1", Dimension: DimensionCost, Used: 5.5, Limit: 5.0}
	assert.Contains(t, err.Error(), "cost")
	assert.Contains(t, err.Error(), "a1")
	assert.True(t, IsBudgetExhausted(err))
}

func TestPolicyDenialError(t *testing.T) {
	err := &PolicyDenialError{ToolName: "bash", Reason: "rm -rf blocked"}
	assert.Contains(t, err.Error(), "bash")
	assert.Contains(t, err.Error(), "rm -rf blocked")
	assert.True(t, IsPolicyDenial(err))
}

func TestDecompositionErrorUnwraps(t *testing.T) {
	inner := errors.New("planner timeout")
	err := &DecompositionError{Attempt: 2, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "attempt 2")
}

func TestToolExecutionErrorWithAndWithoutCause(t *testing.T) {
	withCause := &ToolExecutionError{ToolName: "edit", Message: "failed", Err: errors.New("disk full")}
	assert.Contains(t, withCause.Error(), "disk full")
	assert.ErrorIs(t, withCause, withCause.Err)

	bare := &ToolExecutionError{ToolName: "edit", Message: "failed"}
	assert.NotContains(t, bare.Error(), "<nil>")
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := &PersistenceError{Operation: "save-checkpoint", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "save-checkpoint")
}

func TestProgrammerErrorMessage(t *testing.T) {
	err := &ProgrammerError{AgentID: "a1", Message: "nil plan"}
	assert.Contains(t, err.Error(), "nil plan")
	assert.True(t, IsProgrammerError(err))
}

func TestTimeoutErrorMessageWithAndWithoutContext(t *testing.T) {
	err := &TimeoutError{Subject: "agent a1", TimeoutDuration: 30 * time.Second, Context: "tool call"}
	assert.Contains(t, err.Error(), "30s")
	assert.Contains(t, err.Error(), "tool call")

	bare := &TimeoutError{Subject: "agent a1", TimeoutDuration: time.Second}
	assert.NotContains(t, bare.Error(), "()")
}

func TestIsProgrammerErrorFalseForUnrelatedError(t *testing.T) {
	assert.False(t, IsProgrammerError(errors.New("plain error")))
}
