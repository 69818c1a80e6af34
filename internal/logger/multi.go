package logger

import (
	"time"

	"github.com/swarmforge/swarmcore/internal/models"
)

// MultiLogger fans every call out to each of its narrators, console and
// file together being the CLI's default (SPEC_FULL.md 2 "Logging").
type MultiLogger struct {
	loggers []interface {
		LogWaveStart(models.Wave)
		LogWaveComplete(models.Wave, time.Duration, []models.SwarmTaskResult)
		LogTaskResult(models.SwarmTaskResult)
		LogDecision(models.SwarmDecision)
		LogSummary(models.ExecutionResult)
		LogRateLimitCountdown(remaining, total time.Duration)
	}
}

// NewMultiLogger combines loggers into one that implements swarm.Logger
// and budget.WaiterLogger by broadcasting to all of them.
func NewMultiLogger(loggers ...interface {
	LogWaveStart(models.Wave)
	LogWaveComplete(models.Wave, time.Duration, []models.SwarmTaskResult)
	LogTaskResult(models.SwarmTaskResult)
	LogDecision(models.SwarmDecision)
	LogSummary(models.ExecutionResult)
	LogRateLimitCountdown(remaining, total time.Duration)
}) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) LogWaveStart(wave models.Wave) {
	for _, l := range m.loggers {
		l.LogWaveStart(wave)
	}
}

func (m *MultiLogger) LogWaveComplete(wave models.Wave, duration time.Duration, results []models.SwarmTaskResult) {
	for _, l := range m.loggers {
		l.LogWaveComplete(wave, duration, results)
	}
}

func (m *MultiLogger) LogTaskResult(result models.SwarmTaskResult) {
	for _, l := range m.loggers {
		l.LogTaskResult(result)
	}
}

func (m *MultiLogger) LogDecision(decision models.SwarmDecision) {
	for _, l := range m.loggers {
		l.LogDecision(decision)
	}
}

func (m *MultiLogger) LogSummary(result models.ExecutionResult) {
	for _, l := range m.loggers {
		l.LogSummary(result)
	}
}

func (m *MultiLogger) LogRateLimitCountdown(remaining, total time.Duration) {
	for _, l := range m.loggers {
		l.LogRateLimitCountdown(remaining, total)
	}
}
