// Package spawner implements the subagent spawner (spec.md 4.G): one call,
// spawn(agentName, task, context, constraints?), that resolves a policy
// profile, filters tools, allocates a budget, constructs a prompt, and runs
// a child agent to completion or cancellation under a graceful timeout.
// Grounded throughout on internal/agent/invoker.go's Invoker (the teacher's
// nearest analogue to "configure, isolate, and run one child"), generalized
// from "build a claude CLI command line" to "configure an injected child
// agent", per spec.md 9's cyclic-ownership-avoidance note.
package spawner

import (
	"context"
	"time"

	"github.com/swarmforge/swarmcore/internal/cancel"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

// AgentConfig is everything the spawner hands the injected factory to
// produce one child agent. The factory owns translating this into whatever
// its concrete agent implementation needs; the spawner never inspects the
// result beyond the ChildAgent interface.
type AgentConfig struct {
	AgentID      string
	AgentName    string
	Task         string
	Prompt       string
	Budget       models.ExecutionBudget
	Policy       models.PolicyResolution
	Tools        []string
	Token        cancel.Token
	PlanMode     bool
	SwarmContext bool
	TaskType     models.TaskType
	Bus          *events.Bus
}

// ChildProgress is a point-in-time snapshot of a running child, polled by
// the supervisor (spec.md 4.H) and by the spawner's own finalization step.
type ChildProgress struct {
	TokensUsed   int64
	Cost         float64
	Iterations   int
	LastActivity time.Time
}

// ChildOutput is what a ChildAgent's Run returns on any terminal
// path — success, graceful timeout, hard cancellation. The spawner turns
// this into a SpawnResult by parsing the tail of TextOutput as a closure
// report and reading PendingPlan off the child's own plan-mode manager.
type ChildOutput struct {
	TextOutput    string
	FilesModified []string
	ToolCalls     int
	Usage         models.ExecutionUsage
	ActualCost    *float64
}

// ChildAgent is the narrow interface an injected AgentFactory returns
// (spec.md 9 "Cyclic ownership avoidance": the spawner must not hold a type
// reference to the concrete agent implementation, only this interface).
type ChildAgent interface {
	// Run executes the child's inner loop to completion, graceful
	// wrap-up, or hard cancellation, whichever comes first. It must
	// return promptly once ctx is done or the token it was configured
	// with is cancelled.
	Run(ctx context.Context) (ChildOutput, error)
	// RequestWrapup asks the child to stop issuing further tool calls
	// and produce a structured closure report instead. Called from the
	// graceful-timeout source's wrap-up callback.
	RequestWrapup(reason string)
	// Progress reports the child's current resource consumption, safe
	// to call concurrently with Run.
	Progress() ChildProgress
	// PendingPlan returns the child's active plan, if any, so the
	// spawner can merge it into the parent's plan on completion.
	PendingPlan() *models.PendingPlan
}

// AgentFactory produces a fresh ChildAgent from a configuration record.
// This indirection is the injected factory spec.md 6/9 describe: it
// decouples the spawner from the concrete agent implementation.
type AgentFactory func(cfg AgentConfig) ChildAgent
