// Package planmode implements the pending-plan write queue (spec.md 4.E):
// while an agent is in plan mode, write-intent tool calls are queued as
// ProposedChanges instead of executed, and only run once a human (or the
// parent orchestrator) approves some or all of them. Exclusively owned by
// one agent at a time (spec.md 3 "Ownership"); a Manager is not safe to
// share across agents.
package planmode

import (
	"time"

	"github.com/google/uuid"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

// Manager tracks at most one active PendingPlan at a time, the way the
// teacher's internal/learning/knowledge_graph.go generates a uuid per node
// it creates rather than relying on caller-supplied IDs.
type Manager struct {
	active *models.PendingPlan
	bus    *events.Bus
}

// NewManager creates an empty plan-mode manager emitting events on bus
// (nil is fine; events are simply dropped).
func NewManager(bus *events.Bus) *Manager {
	return &Manager{bus: bus}
}

// HasPendingPlan reports whether a plan is currently active.
func (m *Manager) HasPendingPlan() bool {
	return m.active != nil
}

// ActivePlan returns a copy of the active plan, or nil if there is none.
func (m *Manager) ActivePlan() *models.PendingPlan {
	if m.active == nil {
		return nil
	}
	cp := *m.active
	cp.ProposedChanges = append([]models.ProposedChange(nil), m.active.ProposedChanges...)
	return &cp
}

// StartPlan clears any active plan and creates a new one with status
// pending (spec.md 4.E).
func (m *Manager) StartPlan(task, sessionID string) *models.PendingPlan {
	now := time.Now()
	m.active = &models.PendingPlan{
		ID:        uuid.NewString(),
		Task:      task,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    models.PlanPending,
	}
	m.emit(models.EventPlanCreated, m.active)
	return m.ActivePlan()
}

// AddProposedChange appends a queued write-intent call with a monotonic
// Order. Returns false if there is no active plan to append to.
func (m *Manager) AddProposedChange(tool string, args map[string]interface{}, reason, toolCallID string) (models.ProposedChange, bool) {
	if m.active == nil {
		return models.ProposedChange{}, false
	}
	change := models.ProposedChange{
		ID:         uuid.NewString(),
		Tool:       tool,
		Args:       args,
		Reason:     reason,
		Order:      len(m.active.ProposedChanges),
		ToolCallID: toolCallID,
	}
	m.active.ProposedChanges = append(m.active.ProposedChanges, change)
	m.active.UpdatedAt = time.Now()
	m.emit(models.EventPlanChangeAdded, m.active)
	return change, true
}

// Approve returns the first count changes (or all, when count <= 0) and
// clears the active plan with status approved (all changes taken) or
// partially_approved (fewer than all). Returns nil, false if there is no
// active plan.
func (m *Manager) Approve(count int) ([]models.ProposedChange, bool) {
	if m.active == nil {
		return nil, false
	}
	all := m.active.ProposedChanges
	n := count
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	taken := append([]models.ProposedChange(nil), all[:n]...)

	status := models.PlanApproved
	if n < len(all) {
		status = models.PlanPartiallyApproved
	}
	m.clear(status)
	return taken, true
}

// Reject clears the active plan with status rejected. Returns false if
// there was no active plan.
func (m *Manager) Reject() bool {
	if m.active == nil {
		return false
	}
	m.clear(models.PlanRejected)
	return true
}

func (m *Manager) clear(status models.PlanStatus) {
	done := *m.active
	done.Status = status
	done.UpdatedAt = time.Now()
	m.active = nil

	var kind models.EventKind
	switch status {
	case models.PlanApproved, models.PlanPartiallyApproved:
		kind = models.EventPlanApproved
	case models.PlanRejected:
		kind = models.EventPlanRejected
	}
	m.emit(kind, &done)
	m.emit(models.EventPlanCleared, &done)
}

// RestorePlan reinstalls a plan loaded from persistence, resuming change
// numbering from the length of its existing ProposedChanges (spec.md 4.E).
// Any previously active plan is discarded without emitting plan.cleared —
// restoration is not the same as a decision being made on it.
func (m *Manager) RestorePlan(plan models.PendingPlan) {
	cp := plan
	cp.ProposedChanges = append([]models.ProposedChange(nil), plan.ProposedChanges...)
	m.active = &cp
}

func (m *Manager) emit(kind models.EventKind, plan *models.PendingPlan) {
	if m.bus == nil || plan == nil {
		return
	}
	m.bus.Emit(models.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: plan.SessionID,
		Payload: map[string]interface{}{
			"plan_id": plan.ID,
			"status":  string(plan.Status),
			"changes": len(plan.ProposedChanges),
		},
	})
}
