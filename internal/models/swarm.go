package models

import "time"

// SwarmTask extends SmartSubtask with the fields the swarm orchestrator
// needs to drive wave-by-wave dispatch (spec.md 3 "Swarm task").
type SwarmTask struct {
	SmartSubtask

	Wave          int
	Attempts      int
	Model         string
	IsFoundation  bool
	TargetFiles   []string
	RescueContext string
	Result        *SwarmTaskResult
}

// Clone deep-copies a SwarmTask, including the embedded SmartSubtask.
func (t SwarmTask) Clone() SwarmTask {
	c := t
	c.SmartSubtask = t.SmartSubtask.Clone()
	c.TargetFiles = append([]string(nil), t.TargetFiles...)
	return c
}

// IsExpendable reports whether a task is eligible for budget triage (spec.md
// glossary "Expendable task"): ready/pending, never attempted, not a
// foundation task, complexity <= 2, and no dependents (hasDependents must be
// supplied by the caller, which has the reverse adjacency).
func (t SwarmTask) IsExpendable(hasDependents bool) bool {
	if t.Status != SubtaskPending && t.Status != SubtaskReady {
		return false
	}
	return t.Attempts == 0 && !t.IsFoundation && t.Complexity <= 2 && !hasDependents
}

// SwarmPhase is the top-level lifecycle of an orchestrator run.
type SwarmPhase string

const (
	SwarmPlanning  SwarmPhase = "planning"
	SwarmExecuting SwarmPhase = "executing"
	SwarmReviewing SwarmPhase = "reviewing"
	SwarmCompleted SwarmPhase = "completed"
	SwarmFailed    SwarmPhase = "failed"
)

// SwarmStats summarizes wave-level progress for display and triage math.
type SwarmStats struct {
	TotalTasks     int
	CompletedTasks int
	FailedTasks    int
	SkippedTasks   int
	DispatchCount  int
	HollowCount    int
}

// SwarmDecision records one adaptive choice the orchestrator made during
// wave assessment (budget triage, replan, hollow termination, ...), so it
// can be replayed/audited from a checkpoint.
type SwarmDecision struct {
	Timestamp time.Time
	Kind      string // e.g. "budget-triage", "budget-wait", "replan", "early-termination"
	Reason    string
	TaskIDs   []string
}

// SwarmCheckpoint is the serializable snapshot the orchestrator writes after
// every wave (spec.md 3 "Swarm checkpoint", 6 "Checkpoint format").
type SwarmCheckpoint struct {
	SessionID      string
	Timestamp      time.Time
	Phase          SwarmPhase
	TaskStates     []SwarmTask
	Waves          []Wave
	CurrentWave    int
	Stats          SwarmStats
	Decisions      []SwarmDecision
	Errors         []string
	OriginalPrompt *string // optional, preserved for forward compatibility
}
