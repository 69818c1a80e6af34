package models

import "time"

// EventKind is the tag of the sealed tagged-union event type the core emits
// (spec.md 6 "Event stream", 9 "Runtime reflection" — events are a sealed
// tagged union, not stringly-typed in the Go port beyond this one field).
type EventKind string

const (
	EventAgentSpawn                EventKind = "agent.spawn"
	EventAgentComplete             EventKind = "agent.complete"
	EventAgentError                EventKind = "agent.error"
	EventAgentPendingPlan          EventKind = "agent.pending_plan"
	EventPolicyProfileResolved     EventKind = "policy.profile.resolved"
	EventPolicyLegacyFallbackUsed  EventKind = "policy.legacy.fallback.used"
	EventSubagentWrapupStarted     EventKind = "subagent.wrapup.started"
	EventSubagentWrapupCompleted   EventKind = "subagent.wrapup.completed"
	EventSubagentTimeoutHardKill   EventKind = "subagent.timeout.hard_kill"
	EventParallelSpawnStart        EventKind = "parallel.spawn.start"
	EventParallelSpawnComplete     EventKind = "parallel.spawn.complete"
	EventBudgetWarning             EventKind = "budget.warning"
	EventBudgetExceeded            EventKind = "budget.exceeded"
	EventExtensionRequested        EventKind = "extension.requested"
	EventExtensionGranted          EventKind = "extension.granted"
	EventExtensionDenied           EventKind = "extension.denied"
	EventPhaseTransition           EventKind = "phase.transition"
	EventExplorationSaturation     EventKind = "exploration.saturation"
	EventProgressStuck             EventKind = "progress.stuck"
	EventProgressMade              EventKind = "progress.made"
	EventSwarmOrchestratorDecision EventKind = "swarm.orchestrator.decision"
	EventSwarmTaskSkipped          EventKind = "swarm.task.skipped"
	EventCycleDetected             EventKind = "cycle.detected"
	EventPersistenceWarning        EventKind = "persistence.warning"
	EventPlanCreated               EventKind = "plan.created"
	EventPlanChangeAdded           EventKind = "plan.change.added"
	EventPlanApproved              EventKind = "plan.approved"
	EventPlanRejected              EventKind = "plan.rejected"
	EventPlanCleared               EventKind = "plan.cleared"
)

// Event is one instance of the tagged-union event stream. Payload holds the
// kind-specific data; consumers type-switch or field-check by Kind.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	SessionID string
	Payload   map[string]interface{}
}
