package swarm

import "time"

// Config tunes the wave orchestrator's dispatch and adaptive behavior
// (spec.md 2 AMBIENT STACK "swarm orchestrator tunables").
type Config struct {
	MaxConcurrency                 int
	DispatchStagger                time.Duration
	MaxRetries                     int
	ExpendableFraction             float64 // ceil(remaining * fraction) per triage pass
	EnableHollowTermination        bool
	HollowTerminationMinDispatches int
	HollowTerminationRatio         float64
	HollowStreakThreshold          int
}

// DefaultConfig returns the orchestrator's defaults (spec.md 4.I, 2).
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:                 4,
		DispatchStagger:                250 * time.Millisecond,
		MaxRetries:                     2,
		ExpendableFraction:             0.2,
		EnableHollowTermination:        false,
		HollowTerminationMinDispatches: 5,
		HollowTerminationRatio:         0.6,
		HollowStreakThreshold:          3,
	}
}
