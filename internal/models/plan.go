package models

// DependencyGraph is the forward/reverse adjacency view of a SmartSubtask
// decomposition, plus the derived topological order and wave grouping
// (spec.md 3 "Dependency graph").
type DependencyGraph struct {
	// Forward maps a task to the dependencies it declared.
	Forward map[string][]string
	// Reverse maps a task to the dependents that declared it as a dependency.
	Reverse map[string][]string
	// ExecutionOrder is a valid topological order, empty when Cycles is non-empty.
	ExecutionOrder []string
	// ParallelGroups are successive maximal antichains of ready tasks.
	ParallelGroups [][]string
	// Cycles lists the distinct cycles found, each as an ordered list of task IDs.
	Cycles [][]string
}

// HasCycle reports whether cycle detection found any cycle.
func (g *DependencyGraph) HasCycle() bool {
	return len(g.Cycles) > 0
}

// ConflictSeverity classifies how serious a detected task conflict is.
type ConflictSeverity string

const (
	ConflictSeverityError   ConflictSeverity = "error"
	ConflictSeverityWarning ConflictSeverity = "warning"
)

// ConflictKind names the shape of the resource conflict between two tasks.
type ConflictKind string

const (
	ConflictWriteWrite ConflictKind = "write-write"
	ConflictReadWrite  ConflictKind = "read-write"
)

// TaskConflict records that two tasks touch the same resource in a way that
// makes concurrent dispatch unsafe (spec.md 4.F "Conflict detection").
type TaskConflict struct {
	TaskA      string
	TaskB      string
	File       string
	Kind       ConflictKind
	Severity   ConflictSeverity
	Suggestion string
}
