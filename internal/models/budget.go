package models

import "time"

// ExecutionBudget is the multi-dimensional resource ceiling for one agent
// (spec.md 3 "Execution budget"). Hard limits must be exceeded before an
// agent is forced to stop; soft limits are advisory thresholds checked as a
// fraction of the corresponding hard limit.
type ExecutionBudget struct {
	MaxTokens     int64
	MaxCost       float64
	MaxDuration   time.Duration
	MaxIterations int

	SoftTokenLimit    int64
	SoftCostLimit     float64
	SoftDurationLimit time.Duration
	TargetIterations  int
}

// Validate checks the budget invariant from spec.md 8 (#2): every soft
// limit is <= its hard counterpart and every hard limit is > 0.
func (b ExecutionBudget) Validate() error {
	if b.MaxTokens <= 0 || b.MaxCost <= 0 || b.MaxDuration <= 0 || b.MaxIterations <= 0 {
		return ErrNonPositiveHardLimit
	}
	if b.SoftTokenLimit > b.MaxTokens {
		return ErrSoftExceedsHard
	}
	if b.SoftCostLimit > b.MaxCost {
		return ErrSoftExceedsHard
	}
	if b.SoftDurationLimit > b.MaxDuration {
		return ErrSoftExceedsHard
	}
	return nil
}

// Increase returns a budget whose hard/soft limits are the component-wise
// maximum of b and delta. Used by the extension protocol: a granted
// extension only ever increases limits (spec.md 4.C).
func (b ExecutionBudget) Increase(delta ExecutionBudget) ExecutionBudget {
	out := b
	if delta.MaxTokens > out.MaxTokens {
		out.MaxTokens = delta.MaxTokens
	}
	if delta.MaxCost > out.MaxCost {
		out.MaxCost = delta.MaxCost
	}
	if delta.MaxDuration > out.MaxDuration {
		out.MaxDuration = delta.MaxDuration
	}
	if delta.MaxIterations > out.MaxIterations {
		out.MaxIterations = delta.MaxIterations
	}
	return out
}

// BudgetPreset names the four (plus Swarm-worker) canned budgets of spec.md 3.
type BudgetPreset string

const (
	BudgetQuick       BudgetPreset = "quick"
	BudgetStandard    BudgetPreset = "standard"
	BudgetLarge       BudgetPreset = "large"
	BudgetSubagent    BudgetPreset = "subagent"
	BudgetSwarmWorker BudgetPreset = "swarm-worker"
)

// Presets returns the five named presets. Quick < Standard < Large on every
// hard dimension; Subagent and Swarm-worker are smaller than Large (spec.md
// 3, 8 invariant #2).
func Presets() map[BudgetPreset]ExecutionBudget {
	return map[BudgetPreset]ExecutionBudget{
		BudgetQuick: {
			MaxTokens: 50_000, MaxCost: 0.50, MaxDuration: 3 * time.Minute, MaxIterations: 8,
			SoftTokenLimit: 35_000, SoftCostLimit: 0.35, SoftDurationLimit: 2 * time.Minute, TargetIterations: 5,
		},
		BudgetStandard: {
			MaxTokens: 200_000, MaxCost: 3.00, MaxDuration: 15 * time.Minute, MaxIterations: 30,
			SoftTokenLimit: 150_000, SoftCostLimit: 2.25, SoftDurationLimit: 11 * time.Minute, TargetIterations: 20,
		},
		BudgetLarge: {
			MaxTokens: 800_000, MaxCost: 12.00, MaxDuration: 45 * time.Minute, MaxIterations: 80,
			SoftTokenLimit: 600_000, SoftCostLimit: 9.00, SoftDurationLimit: 34 * time.Minute, TargetIterations: 55,
		},
		BudgetSubagent: {
			MaxTokens: 100_000, MaxCost: 1.50, MaxDuration: 8 * time.Minute, MaxIterations: 20,
			SoftTokenLimit: 75_000, SoftCostLimit: 1.10, SoftDurationLimit: 6 * time.Minute, TargetIterations: 14,
		},
		BudgetSwarmWorker: {
			MaxTokens: 120_000, MaxCost: 1.80, MaxDuration: 10 * time.Minute, MaxIterations: 25,
			SoftTokenLimit: 90_000, SoftCostLimit: 1.35, SoftDurationLimit: 7 * time.Minute, TargetIterations: 17,
		},
	}
}

// ExecutionUsage holds the running counters an EconomicsManager accumulates
// against a budget (spec.md 3 "Execution usage"). Updated only by
// RecordLLMUsage/RecordToolCall; zeroed only by Reset.
type ExecutionUsage struct {
	InputTokens  int64
	OutputTokens int64
	Tokens       int64
	Cost         float64
	DurationMs   int64
	Iterations   int
	LLMCalls     int
}
