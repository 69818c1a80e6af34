package logger

import (
	"time"

	"github.com/swarmforge/swarmcore/internal/models"
)

// NoOpLogger discards all log output. It satisfies swarm.Logger and
// budget.WaiterLogger for callers that want no narration (tests, library
// embedding).
type NoOpLogger struct{}

func (NoOpLogger) LogWaveStart(models.Wave)                                             {}
func (NoOpLogger) LogWaveComplete(models.Wave, time.Duration, []models.SwarmTaskResult) {}
func (NoOpLogger) LogTaskResult(models.SwarmTaskResult)                                 {}
func (NoOpLogger) LogDecision(models.SwarmDecision)                                     {}
func (NoOpLogger) LogSummary(models.ExecutionResult)                                    {}

// LogRateLimitCountdown implements budget.WaiterLogger.
func (NoOpLogger) LogRateLimitCountdown(remaining, total time.Duration) {}
