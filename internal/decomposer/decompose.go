// Package decomposer turns a goal into a dependency-graphed set of
// SmartSubtasks (spec.md 4.F): an LLM-assisted path that asks the planner
// for a JSON-shaped decomposition with up to one retry, falling back to a
// deterministic heuristic skeleton generator that never fails. Grounded on
// internal/executor/graph.go (BuildDependencyGraph/HasCycle/CalculateWaves,
// reworked in graph.go alongside this file) and
// internal/executor/package_guard.go (conflict.go), with the LLM-call
// shape following internal/claude/invoker.go's Invoker/Request/Response.
package decomposer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

// RawSubtask is the JSON-shaped subtask the planner is asked to return.
type RawSubtask struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	Type            string   `json:"type"`
	Complexity      int      `json:"complexity"`
	Dependencies    []string `json:"dependencies"`
	RelevantFiles   []string `json:"relevantFiles"`
	Parallelizable  bool     `json:"parallelizable"`
	SuggestedRole   string   `json:"suggestedRole"`
	EstimatedTokens int      `json:"estimatedTokens"`
}

// RawDecomposition is the planner's raw JSON response.
type RawDecomposition struct {
	Strategy string       `json:"strategy"`
	Subtasks []RawSubtask `json:"subtasks"`
}

// Planner is the LLM collaborator the decomposer asks for a decomposition.
// Satisfied by internal/planner.Client; kept as a narrow interface here so
// this package has no dependency on how the planner talks to the model.
type Planner interface {
	RequestDecomposition(ctx context.Context, task, taskContext string) (RawDecomposition, error)
}

// Config tunes decomposition behavior.
type Config struct {
	MaxSubtasks         int
	EnableConflictCheck bool
	RepoMap             *RepoMap // nil disables repo-map enhancement
	RepoRoot            string
}

// DefaultConfig returns sane defaults: 20 subtasks, conflict checking on.
func DefaultConfig() Config {
	return Config{MaxSubtasks: 20, EnableConflictCheck: true}
}

// Result is decompose()'s return value (spec.md 4.F
// "SmartDecompositionResult").
type Result struct {
	Subtasks     []models.SmartSubtask
	Graph        models.DependencyGraph
	Conflicts    []models.TaskConflict
	Strategy     string
	UsedFallback bool
}

// Decomposer runs the LLM-assisted/heuristic decomposition pipeline.
type Decomposer struct {
	planner Planner
	config  Config
	bus     *events.Bus
}

// New creates a Decomposer. planner may be nil, in which case every call
// goes straight to the heuristic fallback.
func New(planner Planner, config Config, bus *events.Bus) *Decomposer {
	return &Decomposer{planner: planner, config: config, bus: bus}
}

// Decompose implements spec.md 4.F's decompose(task, context) operation.
func (d *Decomposer) Decompose(ctx context.Context, task, taskContext string) Result {
	subtasks, strategy, usedFallback := d.produceSubtasks(ctx, task, taskContext)

	if len(subtasks) > d.config.MaxSubtasks {
		subtasks = subtasks[:d.config.MaxSubtasks]
	}

	if d.config.RepoMap != nil {
		d.enhanceWithRepoMap(subtasks)
	}

	graph := BuildGraph(subtasks, d.bus)

	var conflicts []models.TaskConflict
	if d.config.EnableConflictCheck {
		conflicts = DetectConflicts(subtasks)
	}

	return Result{
		Subtasks:     subtasks,
		Graph:        graph,
		Conflicts:    conflicts,
		Strategy:     strategy,
		UsedFallback: usedFallback,
	}
}

func (d *Decomposer) produceSubtasks(ctx context.Context, task, taskContext string) ([]models.SmartSubtask, string, bool) {
	if d.planner != nil {
		for attempt := 1; attempt <= 2; attempt++ {
			raw, err := d.planner.RequestDecomposition(ctx, task, taskContext)
			if err == nil && len(raw.Subtasks) > 0 {
				return resolveSubtasks(raw), strategyOrDefault(raw.Strategy), false
			}
		}
	}
	return heuristicDecompose(task, taskContext)
}

// resolveSubtasks converts RawSubtasks into SmartSubtasks, resolving
// dependency references against task descriptions, indices, and the
// reference patterns spec.md 4.F names (task-N, subtask-N, st-N), filtering
// self-references and references to unknown tasks.
func resolveSubtasks(raw RawDecomposition) []models.SmartSubtask {
	ids := make([]string, len(raw.Subtasks))
	byIndexRef := make(map[string]string, len(raw.Subtasks))
	for i, rs := range raw.Subtasks {
		id := rs.ID
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		ids[i] = id
		byIndexRef[fmt.Sprintf("task-%d", i+1)] = id
		byIndexRef[fmt.Sprintf("subtask-%d", i+1)] = id
		byIndexRef[fmt.Sprintf("st-%d", i+1)] = id
		byIndexRef[strconv.Itoa(i+1)] = id
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	out := make([]models.SmartSubtask, 0, len(raw.Subtasks))
	for i, rs := range raw.Subtasks {
		id := ids[i]
		taskType := models.TaskType(rs.Type)

		var deps []string
		seen := map[string]bool{}
		for _, ref := range rs.Dependencies {
			resolved := resolveDepRef(ref, byIndexRef, known)
			if resolved == "" || resolved == id || seen[resolved] {
				continue
			}
			seen[resolved] = true
			deps = append(deps, resolved)
		}

		var modifies, reads []string
		if models.ModifyingTaskTypes[taskType] {
			modifies = append([]string(nil), rs.RelevantFiles...)
		}
		reads = append([]string(nil), rs.RelevantFiles...)

		out = append(out, models.SmartSubtask{
			ID:              id,
			Description:     rs.Description,
			Status:          models.SubtaskPending,
			Dependencies:    deps,
			Complexity:      clampComplexity(rs.Complexity),
			Type:            taskType,
			Parallelizable:  rs.Parallelizable,
			Modifies:        modifies,
			Reads:           reads,
			RelevantFiles:   append([]string(nil), rs.RelevantFiles...),
			SuggestedRole:   rs.SuggestedRole,
			EstimatedTokens: rs.EstimatedTokens,
		})
	}
	return out
}

var refDigits = regexp.MustCompile(`\d+`)

func resolveDepRef(ref string, byIndexRef map[string]string, known map[string]bool) string {
	ref = strings.TrimSpace(ref)
	if known[ref] {
		return ref
	}
	if id, ok := byIndexRef[strings.ToLower(ref)]; ok {
		return id
	}
	if m := refDigits.FindString(ref); m != "" {
		if id, ok := byIndexRef[m]; ok {
			return id
		}
	}
	return ""
}

func clampComplexity(c int) int {
	if c < 1 {
		return 1
	}
	if c > 10 {
		return 10
	}
	return c
}

func strategyOrDefault(s string) string {
	if s == "" {
		return "adaptive"
	}
	return s
}

func (d *Decomposer) enhanceWithRepoMap(subtasks []models.SmartSubtask) {
	for i := range subtasks {
		if len(subtasks[i].RelevantFiles) > 0 {
			continue
		}
		files := d.config.RepoMap.RelevantFiles(subtasks[i].Description, 5)
		subtasks[i].RelevantFiles = files
		if models.ModifyingTaskTypes[subtasks[i].Type] {
			subtasks[i].Modifies = files
		} else {
			subtasks[i].Reads = files
		}
		total := 0
		for _, f := range files {
			total += EstimateTokens(d.config.RepoRoot, f)
		}
		if subtasks[i].EstimatedTokens == 0 {
			subtasks[i].EstimatedTokens = total
		}
	}
}
