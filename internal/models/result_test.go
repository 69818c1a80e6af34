package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHollowTrueForZeroToolCallsAndShortOutput(t *testing.T) {
	r := SwarmTaskResult{ToolCalls: 0, Output: "short"}
	assert.True(t, r.IsHollow())
}

func TestIsHollowFalseWithToolCallsOrLongOutput(t *testing.T) {
	withCalls := SwarmTaskResult{ToolCalls: 1, Output: "short"}
	assert.False(t, withCalls.IsHollow())

	longOutput := SwarmTaskResult{ToolCalls: 0, Output: string(make([]byte, 100))}
	assert.False(t, longOutput.IsHollow())
}

func TestNewExecutionResultAggregatesStatusBreakdown(t *testing.T) {
	results := []SwarmTaskResult{
		{Task: SwarmTask{SmartSubtask: SmartSubtask{SuggestedRole: "coder"}}, Status: StatusGreen, Duration: time.Second},
		{Task: SwarmTask{SmartSubtask: SmartSubtask{SuggestedRole: "coder"}}, Status: StatusRed, Duration: time.Second, Error: errors.New("boom")},
		{Task: SwarmTask{SmartSubtask: SmartSubtask{Status: SubtaskSkipped}}, Status: "", Duration: 0},
	}

	er := NewExecutionResult(results, 10*time.Second)

	assert.Equal(t, 3, er.TotalTasks)
	assert.Equal(t, 1, er.Completed)
	assert.Equal(t, 1, er.Failed)
	assert.Equal(t, 1, er.Skipped)
	require.Len(t, er.FailedTasks, 1)
	assert.Equal(t, StatusRed, er.FailedTasks[0].Status)
	assert.Equal(t, 2, er.RoleUsage["coder"])
	assert.Equal(t, 1, er.RoleUsage["unassigned"])
	assert.Equal(t, 10*time.Second, er.Duration)
}

func TestNewExecutionResultComputesAverageDuration(t *testing.T) {
	results := []SwarmTaskResult{
		{Status: StatusGreen, Duration: 2 * time.Second},
		{Status: StatusGreen, Duration: 4 * time.Second},
	}
	er := NewExecutionResult(results, time.Minute)
	assert.Equal(t, 3*time.Second, er.AvgTaskDuration)
}

func TestNewExecutionResultEmptyResultsHasZeroAverage(t *testing.T) {
	er := NewExecutionResult(nil, 0)
	assert.Equal(t, time.Duration(0), er.AvgTaskDuration)
	assert.Equal(t, 0, er.TotalTasks)
}

func TestNewExecutionResultFailedStatusAlsoCountsAsFailure(t *testing.T) {
	results := []SwarmTaskResult{
		{Status: StatusFailed, Duration: time.Second},
	}
	er := NewExecutionResult(results, time.Second)
	assert.Equal(t, 1, er.Failed)
}
