package decomposer

import (
	"sort"

	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

// BuildGraph constructs forward/reverse adjacency, a topological execution
// order, and wave-by-wave parallel groups from a set of subtasks. This is
// the SmartSubtask generalization of internal/executor/graph.go's
// BuildDependencyGraph + HasCycle + CalculateWaves, which does the same
// three things (forward/reverse maps, DFS color-marking cycle detection,
// Kahn's-algorithm wave grouping) for conductor's markdown Task/DependsOn
// model.
func BuildGraph(subtasks []models.SmartSubtask, bus *events.Bus) models.DependencyGraph {
	g := models.DependencyGraph{
		Forward: make(map[string][]string),
		Reverse: make(map[string][]string),
	}

	known := make(map[string]bool, len(subtasks))
	for _, t := range subtasks {
		known[t.ID] = true
	}

	for _, t := range subtasks {
		var deps []string
		for _, d := range t.Dependencies {
			if known[d] {
				deps = append(deps, d)
			}
		}
		g.Forward[t.ID] = deps
		for _, d := range deps {
			g.Reverse[d] = append(g.Reverse[d], t.ID)
		}
	}

	if cycles := detectCycles(g.Forward); len(cycles) > 0 {
		g.Cycles = cycles
		if bus != nil {
			bus.Emit(models.Event{Kind: models.EventCycleDetected, Payload: map[string]interface{}{"cycles": cycles}})
		}
		return g
	}

	g.ExecutionOrder, g.ParallelGroups = kahnWaves(subtasks, g.Forward)
	return g
}

// detectCycles runs DFS with white/gray/black color marking over the
// forward adjacency, the same algorithm
// internal/executor/graph.go#DependencyGraph.HasCycle uses, extended here
// to report the actual cycle (a back edge's closing path) rather than a
// single boolean.
func detectCycles(forward map[string][]string) [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var stack []string
	var cycles [][]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		stack = append(stack, node)

		for _, dep := range forward[node] {
			switch color[dep] {
			case gray:
				cycle := cycleFromStack(stack, dep)
				cycles = append(cycles, cycle)
			case white:
				dfs(dep)
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
	}

	nodes := make([]string, 0, len(forward))
	for node := range forward {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if color[node] == white {
			dfs(node)
		}
	}
	return cycles
}

func cycleFromStack(stack []string, closingNode string) []string {
	for i, n := range stack {
		if n == closingNode {
			cycle := append([]string(nil), stack[i:]...)
			return append(cycle, closingNode)
		}
	}
	return []string{closingNode}
}

// kahnWaves runs Kahn's algorithm to produce both a flat topological order
// and the wave grouping: at each step every currently-zero-in-degree node
// forms one parallel group, mirroring
// internal/executor/graph.go#CalculateWaves.
func kahnWaves(subtasks []models.SmartSubtask, forward map[string][]string) ([]string, [][]string) {
	inDegree := make(map[string]int)
	ids := make([]string, 0, len(subtasks))
	for _, t := range subtasks {
		ids = append(ids, t.ID)
		if _, ok := inDegree[t.ID]; !ok {
			inDegree[t.ID] = 0
		}
	}
	// in-degree of a node is how many dependencies it declared; walking
	// forward[node] also builds the reverse adjacency Kahn's algorithm
	// needs to decrement dependents as each wave is removed.
	reverse := make(map[string][]string)
	for node, deps := range forward {
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], node)
			inDegree[node]++
		}
	}

	remaining := len(ids)
	var order []string
	var groups [][]string

	for remaining > 0 {
		var wave []string
		for _, id := range ids {
			if inDegree[id] == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			break
		}
		sort.Strings(wave)
		groups = append(groups, wave)
		order = append(order, wave...)

		for _, id := range wave {
			inDegree[id] = -1 // mark removed
			remaining--
			for _, dependent := range reverse[id] {
				if inDegree[dependent] > 0 {
					inDegree[dependent]--
				}
			}
		}
	}

	return order, groups
}
