package models

import "time"

// PlanStatus is the lifecycle of a PendingPlan (spec.md 3 "Pending plan").
type PlanStatus string

const (
	PlanPending           PlanStatus = "pending"
	PlanApproved          PlanStatus = "approved"
	PlanRejected          PlanStatus = "rejected"
	PlanPartiallyApproved PlanStatus = "partially_approved"
)

// ProposedChange is one queued write-intent tool call awaiting approval.
type ProposedChange struct {
	ID         string
	Tool       string
	Args       map[string]interface{}
	Reason     string
	Order      int
	ToolCallID string // optional, present when the call came from a planner tool-call id
}

// PendingPlan is the plan-mode write queue for one agent (spec.md 3, 4.E).
type PendingPlan struct {
	ID                 string
	Task               string
	SessionID          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ProposedChanges    []ProposedChange
	ExplorationSummary string
	Status             PlanStatus
}
