// Package queue implements the task queue (spec.md 4.J): the mutable state
// a swarm orchestrator run drives wave by wave over a decomposition's DAG.
// It owns every SwarmTask's status, attempt count, and dispatch/result
// history, and enforces the status invariants those transitions must
// preserve.
//
// Grounded on internal/executor/wave.go's status bookkeeping (skip/retry
// decisions keyed off models.Task.Status and CanSkip()) generalized from
// one flat task list to a dependency-aware queue, since the teacher's
// executor has no equivalent of cascade-skip or cascade-unskip over a DAG.
package queue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/swarmforge/swarmcore/internal/decomposer"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

// Queue is the mutable task-state store a swarm orchestrator drives. The
// zero value is not usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	tasks   map[string]*models.SwarmTask
	forward map[string][]string // task -> its declared dependencies
	reverse map[string][]string // task -> tasks that depend on it
	waves   []models.Wave
	bus     *events.Bus
}

// New constructs an empty Queue. Call LoadFromDecomposition or
// RestoreFromCheckpoint before dispatching.
func New(bus *events.Bus) *Queue {
	return &Queue{
		tasks:   make(map[string]*models.SwarmTask),
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
		bus:     bus,
	}
}

// LoadFromDecomposition seeds the queue from a fresh decomposer.Result,
// computing each task's initial status from the dependency graph: tasks
// with no dependencies (or whose dependencies are all already satisfied)
// start `ready`, everything else starts `blocked`.
func (q *Queue) LoadFromDecomposition(result decomposer.Result) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tasks = make(map[string]*models.SwarmTask, len(result.Subtasks))
	q.forward = result.Graph.Forward
	q.reverse = result.Graph.Reverse

	for _, st := range result.Subtasks {
		t := models.SwarmTask{SmartSubtask: st.Clone()}
		if t.Status == "" {
			t.Status = models.SubtaskPending
		}
		q.tasks[t.ID] = &t
	}
	for _, wave := range result.Graph.ParallelGroups {
		for _, id := range wave {
			if t, ok := q.tasks[id]; ok && t.Status == models.SubtaskPending {
				q.recomputeReadiness(t)
			}
		}
	}
	for i, ids := range result.Graph.ParallelGroups {
		q.waves = append(q.waves, models.Wave{Index: i, TaskIDs: append([]string(nil), ids...)})
	}
}

// recomputeReadiness sets t.Status to ready or blocked based on its
// dependencies' current status. It never touches a task that is already
// completed, failed, skipped, decomposed, or in_progress. Caller must hold
// q.mu.
func (q *Queue) recomputeReadiness(t *models.SwarmTask) {
	switch t.Status {
	case models.SubtaskCompleted, models.SubtaskFailed, models.SubtaskSkipped,
		models.SubtaskDecomposed, models.SubtaskInProgress:
		return
	}

	for _, dep := range q.forward[t.ID] {
		depTask, ok := q.tasks[dep]
		if !ok || !depTask.Status.SatisfiesDependency() {
			t.Status = models.SubtaskBlocked
			return
		}
	}
	t.Status = models.SubtaskReady
}

// MarkDispatched transitions a ready task to in_progress, recording the
// model it was dispatched with.
func (q *Queue) MarkDispatched(id, model string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("queue: unknown task %q", id)
	}
	t.Status = models.SubtaskInProgress
	t.Model = model
	t.Attempts++
	return nil
}

// MarkCompleted records a successful result and marks the task completed,
// then recomputes readiness for its dependents. No-op if the task has
// already been marked failed (spec.md 4.J).
func (q *Queue) MarkCompleted(id string, result *models.SwarmTaskResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("queue: unknown task %q", id)
	}
	if t.Status == models.SubtaskFailed {
		return nil
	}
	t.Status = models.SubtaskCompleted
	t.Result = result
	q.recomputeDependents(id)
	return nil
}

// MarkFailed records a failed attempt. If retriesLeft > 0 the task returns
// to ready (attempts already incremented by MarkDispatched, so the retry
// budget is honored without re-incrementing here); otherwise it is marked
// failed and every transitive dependent is cascade-skipped (spec.md 4.J).
func (q *Queue) MarkFailed(id string, retriesLeft int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("queue: unknown task %q", id)
	}

	if retriesLeft > 0 {
		t.Status = models.SubtaskReady
		return nil
	}

	t.Status = models.SubtaskFailed
	q.cascadeSkip(id)
	return nil
}

// cascadeSkip marks every transitive dependent of id as skipped. Caller
// must hold q.mu.
func (q *Queue) cascadeSkip(id string) {
	var walk func(string)
	walk = func(current string) {
		for _, dependent := range q.reverse[current] {
			dt, ok := q.tasks[dependent]
			if !ok || dt.Status == models.SubtaskSkipped || dt.Status.SatisfiesDependency() {
				continue
			}
			dt.Status = models.SubtaskSkipped
			q.emit(models.EventSwarmTaskSkipped, map[string]interface{}{"task_id": dependent, "reason": "dependency failed"})
			walk(dependent)
		}
	}
	walk(id)
}

// recomputeDependents refreshes the readiness of every direct dependent of
// id (typically after id completes). Caller must hold q.mu.
func (q *Queue) recomputeDependents(id string) {
	for _, dependent := range q.reverse[id] {
		if t, ok := q.tasks[dependent]; ok {
			q.recomputeReadiness(t)
		}
	}
}

// SkipTask marks a non-terminal task as skipped directly (spec.md 4.I
// "budget triage" and "early-termination": the orchestrator's own adaptive
// decisions, as opposed to a cascade from a failed dependency), then
// cascades the skip to its dependents the same way a failure would. No-op
// if the task is already terminal.
func (q *Queue) SkipTask(id, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok || t.Status.SatisfiesDependency() || t.Status == models.SubtaskFailed || t.Status == models.SubtaskSkipped {
		return
	}
	t.Status = models.SubtaskSkipped
	q.emit(models.EventSwarmTaskSkipped, map[string]interface{}{"task_id": id, "reason": reason})
	q.cascadeSkip(id)
}

// UnSkipDependents restores id's direct dependents from skipped to ready
// whenever *all* of their dependencies are now satisfied, recursing into
// their own dependents in turn (spec.md 4.J, 8 scenario 5).
func (q *Queue) UnSkipDependents(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unSkipDependentsLocked(id)
}

func (q *Queue) unSkipDependentsLocked(id string) {
	for _, dependent := range q.reverse[id] {
		dt, ok := q.tasks[dependent]
		if !ok || dt.Status != models.SubtaskSkipped {
			continue
		}
		allSatisfied := true
		for _, dep := range q.forward[dependent] {
			depTask, ok := q.tasks[dep]
			if !ok || !depTask.Status.SatisfiesDependency() {
				allSatisfied = false
				break
			}
		}
		if !allSatisfied {
			continue
		}
		dt.Status = models.SubtaskReady
		q.unSkipDependentsLocked(dependent)
	}
}

// GetTask returns a copy of task id, or false if unknown.
func (q *Queue) GetTask(id string) (models.SwarmTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return models.SwarmTask{}, false
	}
	return q.cloneWithFoundation(t), true
}

// GetAllTasks returns a copy of every task, ordered by ID for determinism.
func (q *Queue) GetAllTasks() []models.SwarmTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, 0, len(q.tasks))
	for id := range q.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.SwarmTask, 0, len(ids))
	for _, id := range ids {
		out = append(out, q.cloneWithFoundation(q.tasks[id]))
	}
	return out
}

// cloneWithFoundation clones t and derives IsFoundation from the current
// reverse adjacency (spec glossary "Foundation task — a task that other
// tasks depend on"), since that set changes as replan tasks are added.
// Caller must hold q.mu.
func (q *Queue) cloneWithFoundation(t *models.SwarmTask) models.SwarmTask {
	c := t.Clone()
	c.IsFoundation = len(q.reverse[t.ID]) > 0
	return c
}

// ReadyTasks returns the IDs of every currently-ready task, in the wave
// sets' declared order within wave, then by wave index.
func (q *Queue) ReadyTasks() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []string
	for _, wave := range q.waves {
		for _, id := range wave.TaskIDs {
			if t, ok := q.tasks[id]; ok && t.Status == models.SubtaskReady {
				out = append(out, id)
			}
		}
	}
	return out
}

// HasDependents reports whether id has at least one dependent (used by
// SwarmTask.IsExpendable's triage check).
func (q *Queue) HasDependents(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reverse[id]) > 0
}

// GetStats summarizes queue-wide progress for display and triage math.
func (q *Queue) GetStats() models.SwarmStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats models.SwarmStats
	stats.TotalTasks = len(q.tasks)
	for _, t := range q.tasks {
		switch t.Status {
		case models.SubtaskCompleted, models.SubtaskDecomposed:
			stats.CompletedTasks++
		case models.SubtaskFailed:
			stats.FailedTasks++
		case models.SubtaskSkipped:
			stats.SkippedTasks++
		}
		if t.Attempts > 0 {
			stats.DispatchCount += t.Attempts
		}
	}
	return stats
}

// GetCheckpointState snapshots the queue's full task state and wave layout
// for persistence. RestoreFromCheckpoint(GetCheckpointState()) is the
// identity on queue state (spec.md 8 round-trip law).
func (q *Queue) GetCheckpointState() ([]models.SwarmTask, []models.Wave) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := make([]models.SwarmTask, 0, len(q.tasks))
	ids := make([]string, 0, len(q.tasks))
	for id := range q.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		tasks = append(tasks, q.cloneWithFoundation(q.tasks[id]))
	}
	waves := make([]models.Wave, len(q.waves))
	copy(waves, q.waves)
	return tasks, waves
}

// RestoreFromCheckpoint rebuilds the queue's task map, adjacency, and wave
// layout from a prior GetCheckpointState snapshot, then re-derives forward
// adjacency from each task's own Dependencies field (the checkpoint does
// not separately persist the graph).
func (q *Queue) RestoreFromCheckpoint(tasks []models.SwarmTask, waves []models.Wave) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tasks = make(map[string]*models.SwarmTask, len(tasks))
	q.forward = make(map[string][]string, len(tasks))
	q.reverse = make(map[string][]string, len(tasks))

	for i := range tasks {
		t := tasks[i].Clone()
		q.tasks[t.ID] = &t
		q.forward[t.ID] = append([]string(nil), t.Dependencies...)
	}
	for id, deps := range q.forward {
		for _, dep := range deps {
			q.reverse[dep] = append(q.reverse[dep], id)
		}
	}
	q.waves = append([]models.Wave(nil), waves...)
}

// AddReplanTasks inserts freshly-decomposed tasks into the current wave
// structure as a rescue wave (spec.md 4.I "Replan"): each gets
// rescueContext="Re-planned from stalled swarm" and attempts=1, and starts
// ready or blocked depending on whether its declared dependencies (which
// must already be known tasks) are satisfied.
func (q *Queue) AddReplanTasks(tasks []models.SmartSubtask, wave int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ids []string
	for _, st := range tasks {
		t := models.SwarmTask{
			SmartSubtask:  st.Clone(),
			Wave:          wave,
			Attempts:      1,
			RescueContext: "Re-planned from stalled swarm",
		}
		q.tasks[t.ID] = &t
		q.forward[t.ID] = append([]string(nil), t.Dependencies...)
		for _, dep := range t.Dependencies {
			q.reverse[dep] = append(q.reverse[dep], t.ID)
		}
		ids = append(ids, t.ID)
	}
	for _, id := range ids {
		q.recomputeReadiness(q.tasks[id])
	}
	q.waves = append(q.waves, models.Wave{Index: wave, TaskIDs: ids})
}

func (q *Queue) emit(kind models.EventKind, payload map[string]interface{}) {
	if q.bus == nil {
		return
	}
	q.bus.Emit(models.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
