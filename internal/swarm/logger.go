package swarm

import (
	"time"

	"github.com/swarmforge/swarmcore/internal/models"
)

// Logger is the orchestrator's human-facing progress reporting surface,
// trimmed from internal/executor/orchestrator.go's Logger interface to the
// wave/task/summary/decision methods a checkpointable DAG engine actually
// needs — QC-verdict and rate-limit-countdown logging belong to concerns
// this port does not carry (quality gates are explicitly out of scope per
// spec.md 4.I item 4, and LLM rate limiting is an external-API concern the
// planner contract abstracts away).
type Logger interface {
	LogWaveStart(wave models.Wave)
	LogWaveComplete(wave models.Wave, duration time.Duration, results []models.SwarmTaskResult)
	LogTaskResult(result models.SwarmTaskResult)
	LogDecision(decision models.SwarmDecision)
	LogSummary(result models.ExecutionResult)
}

// noopLogger discards everything; used when Config.Logger is nil so the
// orchestrator never has to nil-check at each call site.
type noopLogger struct{}

func (noopLogger) LogWaveStart(models.Wave)                                             {}
func (noopLogger) LogWaveComplete(models.Wave, time.Duration, []models.SwarmTaskResult) {}
func (noopLogger) LogTaskResult(models.SwarmTaskResult)                                 {}
func (noopLogger) LogDecision(models.SwarmDecision)                                     {}
func (noopLogger) LogSummary(models.ExecutionResult)                                    {}
