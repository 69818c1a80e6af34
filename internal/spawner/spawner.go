package spawner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/swarmforge/swarmcore/internal/budgetpool"
	"github.com/swarmforge/swarmcore/internal/cancel"
	"github.com/swarmforge/swarmcore/internal/economics"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/planmode"
	"github.com/swarmforge/swarmcore/internal/policy"
)

// mustKeepTools are preserved by FilterTools' top-ranked trim regardless of
// rank, so a trimmed child can still spawn its own children in turn.
var mustKeepTools = []string{"Spawn"}

// summaryLen bounds the dedup-cache result summary (spec.md 4.G: a
// duplicate hit quotes "the original result summary").
const summaryLen = 280

// AgentDefinition is the caller-supplied description of the agent being
// spawned: its system prompt, declared tool set, and any per-definition
// overrides (spec.md 4.G, 9).
type AgentDefinition struct {
	Name             string
	SystemPrompt     string
	RequestedProfile string
	Capability       string
	Tools            []string
	Timeout          *time.Duration
}

// SpawnRequest is spawn()'s input (spec.md 4.G: agentName, task, context,
// constraints?), expanded with the fields a real call site has to hand.
type SpawnRequest struct {
	Agent                      AgentDefinition
	Task                       string
	TaskContext                string
	TaskType                   models.TaskType
	ParentTools                []string
	Constraints                *Constraints
	BlackboardFindings         []BlackboardFinding
	PendingPlanFiles           []string
	ParentComplexityNontrivial bool
	DelegationSpec             string
	QualityPrompt              string
	PlanMode                   bool
	SwarmContext               bool
}

// Config is everything New needs to build a Spawner. Pool, Ranker,
// ParentEconomics, and ParentPlan are all optional: a nil Pool falls back
// to the static subagent preset, a nil Ranker skips the top-N tool trim, a
// nil ParentEconomics skips duration pause/resume, and a nil ParentPlan
// leaves a child's queued changes unmerged (the caller is expected to pull
// them off the returned SpawnResult's Structured/pending-plan path itself
// in that case).
type Config struct {
	Policy          *policy.Engine
	Bus             *events.Bus
	Factory         AgentFactory
	Ranker          ToolRanker
	Timeouts        TimeoutConfig
	Pool            *budgetpool.Pool
	ParentEconomics *economics.Manager
	ParentPlan      *planmode.Manager
	ParentToken     cancel.Token
}

// Spawner is the subagent spawner (spec.md 4.G). One Spawner is owned by
// one parent agent; it is not safe to share across agents.
type Spawner struct {
	policy          *policy.Engine
	bus             *events.Bus
	factory         AgentFactory
	ranker          ToolRanker
	timeouts        TimeoutConfig
	pool            *budgetpool.Pool
	parentEconomics *economics.Manager
	parentPlan      *planmode.Manager
	parentToken     cancel.Token
	dedup           *dedupCache
}

// New constructs a Spawner from cfg.
func New(cfg Config) *Spawner {
	return &Spawner{
		policy:          cfg.Policy,
		bus:             cfg.Bus,
		factory:         cfg.Factory,
		ranker:          cfg.Ranker,
		timeouts:        cfg.Timeouts,
		pool:            cfg.Pool,
		parentEconomics: cfg.ParentEconomics,
		parentPlan:      cfg.ParentPlan,
		parentToken:     cfg.ParentToken,
		dedup:           newDedupCache(),
	}
}

// Spawn implements spec.md 4.G's full operation: duplicate prevention,
// policy resolution, tool filtering, budget allocation, prompt
// construction, a graceful timeout, execution under cancellation, and
// finalization. It never returns a non-nil error for anything the child
// itself did wrong — a failed or cancelled child still comes back as a
// SpawnResult with Success=false, so callers can inspect Termination and
// partial Output. A non-nil error here means the spawn itself could not be
// attempted (bad policy input, or every candidate tool was filtered out).
func (s *Spawner) Spawn(ctx context.Context, req SpawnRequest) (*models.SpawnResult, error) {
	if hit, ok := s.dedup.Check(req.Agent.Name, req.Task); ok {
		return &models.SpawnResult{
			Success:       true,
			Output:        fmt.Sprintf("[DUPLICATE SPAWN PREVENTED - %s MATCH] %s", strings.ToUpper(hit.MatchKind), hit.ResultSummary),
			FilesModified: []string{},
			Duplicate:     true,
		}, nil
	}

	agentID := uuid.NewString()

	resolution, err := s.policy.Resolve(policy.ResolveInput{
		ExplicitProfile: req.Agent.RequestedProfile,
		Worker:          &policy.WorkerCapabilities{Capability: req.Agent.Capability},
		TaskType:        req.TaskType,
		SwarmContext:    req.SwarmContext,
	})
	if err != nil {
		return nil, fmt.Errorf("spawner: resolving policy for %s: %w", req.Agent.Name, err)
	}
	s.emit(models.EventPolicyProfileResolved, map[string]interface{}{
		"agent_id": agentID, "agent_name": req.Agent.Name, "profile": resolution.ProfileName,
	})
	if len(resolution.Metadata.LegacyFieldsUsed) > 0 {
		s.emit(models.EventPolicyLegacyFallbackUsed, map[string]interface{}{
			"agent_id": agentID, "fields": resolution.Metadata.LegacyFieldsUsed,
		})
	}

	tools, err := FilterTools(req.ParentTools, req.Agent.Tools, s.ranker, req.TaskType, mustKeepTools, resolution.Profile)
	if err != nil {
		return nil, fmt.Errorf("spawner: %s: %w", req.Agent.Name, err)
	}

	budget, poolAllocID := s.allocateBudget(agentID, req.Constraints)

	timeout := resolveSubagentTimeout(req.TaskType, timeoutConfigWithOverride(s.timeouts, req.Agent.Timeout))
	prompt := BuildPrompt(PromptInputs{
		SystemPrompt:               req.Agent.SystemPrompt,
		ParentInPlanMode:           req.PlanMode,
		BlackboardFindings:         req.BlackboardFindings,
		PendingPlanFiles:           req.PendingPlanFiles,
		ResourceTokens:             budget.MaxTokens,
		ResourceDuration:           timeout,
		Constraints:                req.Constraints,
		ParentComplexityNontrivial: req.ParentComplexityNontrivial,
		DelegationSpec:             req.DelegationSpec,
		QualityPrompt:              req.QualityPrompt,
	})

	var wrapupRequested atomic.Bool
	var childRef atomic.Pointer[ChildAgent]
	_, token, cleanup := s.buildGracefulSource(ctx, s.parentToken, req.TaskType, agentID, req.Agent.Timeout, func(reason string) {
		wrapupRequested.Store(true)
		if c := childRef.Load(); c != nil {
			(*c).RequestWrapup(reason)
		}
	})
	defer cleanup()

	child := s.factory(AgentConfig{
		AgentID:      agentID,
		AgentName:    req.Agent.Name,
		Task:         req.Task,
		Prompt:       prompt,
		Budget:       budget,
		Policy:       resolution,
		Tools:        tools,
		Token:        token,
		PlanMode:     req.PlanMode,
		SwarmContext: req.SwarmContext,
		TaskType:     req.TaskType,
		Bus:          s.bus,
	})
	childRef.Store(&child)

	s.emit(models.EventAgentSpawn, map[string]interface{}{
		"agent_id": agentID, "agent_name": req.Agent.Name, "profile": resolution.ProfileName,
	})

	if s.parentEconomics != nil {
		s.parentEconomics.PauseDuration()
	}
	startedAt := time.Now()
	output, runErr := child.Run(token.Context())
	duration := time.Since(startedAt)
	if s.parentEconomics != nil {
		s.parentEconomics.ResumeDuration()
	}

	termination := models.TerminationNone
	success := runErr == nil
	if cause := token.Err(); cause != nil {
		success = false
		if errors.Is(cause, cancel.ErrGracefulDeadline) {
			termination = models.TerminationTimeoutHard
			s.emit(models.EventSubagentTimeoutHardKill, map[string]interface{}{
				"agent_id": agentID, "agent_name": req.Agent.Name,
			})
		} else {
			termination = models.TerminationCancelled
		}
	} else if wrapupRequested.Load() {
		termination = models.TerminationTimeoutGraceful
		s.emit(models.EventSubagentWrapupCompleted, map[string]interface{}{"agent_id": agentID})
	}

	metrics := models.SpawnMetrics{Duration: duration, TokensUsed: output.Usage.Tokens, Cost: output.Usage.Cost, ToolCalls: output.ToolCalls}
	if output.ActualCost != nil {
		metrics.Cost = *output.ActualCost
	}

	if poolAllocID != "" && s.pool != nil {
		s.pool.RecordUsage(poolAllocID, metrics.TokensUsed, metrics.Cost)
		s.pool.Release(poolAllocID)
	}

	queuedChanges := s.mergePendingPlan(child, agentID, req.Agent.Name)

	result := &models.SpawnResult{
		Success:       success,
		Output:        output.TextOutput,
		Metrics:       metrics,
		Structured:    parseClosureReport(output.TextOutput),
		FilesModified: output.FilesModified,
		Termination:   termination,
	}

	if success {
		s.emit(models.EventAgentComplete, map[string]interface{}{"agent_id": agentID, "agent_name": req.Agent.Name})
	} else {
		s.emit(models.EventAgentError, map[string]interface{}{
			"agent_id": agentID, "agent_name": req.Agent.Name, "termination": string(termination),
		})
	}

	s.dedup.Record(req.Agent.Name, req.Task, summarize(output.TextOutput), queuedChanges)

	return result, nil
}

// allocateBudget implements spec.md 4.G's precedence: constraints.maxTokens
// wins outright; otherwise a pool reservation narrows the static subagent
// preset; otherwise the static preset is used unmodified. The returned
// allocation id is "" unless the pool actually backed this spawn, so
// finalization knows whether to record usage against it.
func (s *Spawner) allocateBudget(agentID string, constraints *Constraints) (models.ExecutionBudget, string) {
	preset := models.Presets()[models.BudgetSubagent]

	if constraints != nil && constraints.MaxTokens > 0 {
		preset.MaxTokens = constraints.MaxTokens
		return preset, ""
	}

	if s.pool != nil {
		if alloc, ok := s.pool.Reserve(agentID); ok {
			preset.MaxTokens = alloc.TokenBudget
			preset.MaxCost = alloc.CostBudget
			return preset, agentID
		}
	}

	return preset, ""
}

// mergePendingPlan pulls a completed child's queued write-intent calls into
// the parent's own plan, prefixing each change's reason with the child's
// agent name so the parent's reviewer can see which subagent proposed it
// (spec.md 4.G "On successful return" step 1).
func (s *Spawner) mergePendingPlan(child ChildAgent, agentID, agentName string) int {
	plan := child.PendingPlan()
	if plan == nil || len(plan.ProposedChanges) == 0 {
		return 0
	}

	s.emit(models.EventAgentPendingPlan, map[string]interface{}{
		"agent_id": agentID, "agent_name": agentName, "changes": len(plan.ProposedChanges),
	})

	if s.parentPlan != nil {
		for _, change := range plan.ProposedChanges {
			reason := change.Reason
			if agentName != "" {
				reason = fmt.Sprintf("[%s] %s", agentName, reason)
			}
			s.parentPlan.AddProposedChange(change.Tool, change.Args, reason, change.ToolCallID)
		}
	}

	return len(plan.ProposedChanges)
}

func (s *Spawner) emit(kind models.EventKind, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(models.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

func timeoutConfigWithOverride(cfg TimeoutConfig, agentDefTimeout *time.Duration) TimeoutConfig {
	if agentDefTimeout != nil {
		cfg.AgentDefTimeout = agentDefTimeout
	}
	return cfg
}

func summarize(output string) string {
	if len(output) <= summaryLen {
		return output
	}
	return output[:summaryLen] + "…"
}
