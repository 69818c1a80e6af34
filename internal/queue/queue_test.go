package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarmforge/swarmcore/internal/decomposer"
	"github.com/swarmforge/swarmcore/internal/models"
)

func chain(ids ...string) decomposer.Result {
	var subtasks []models.SmartSubtask
	forward := make(map[string][]string)
	reverse := make(map[string][]string)
	var order []string
	var groups [][]string
	for i, id := range ids {
		var deps []string
		if i > 0 {
			deps = []string{ids[i-1]}
			reverse[ids[i-1]] = append(reverse[ids[i-1]], id)
		}
		forward[id] = deps
		subtasks = append(subtasks, models.SmartSubtask{ID: id, Description: id, Complexity: 1})
		order = append(order, id)
		groups = append(groups, []string{id})
	}
	return decomposer.Result{
		Subtasks: subtasks,
		Graph: models.DependencyGraph{
			Forward:        forward,
			Reverse:        reverse,
			ExecutionOrder: order,
			ParallelGroups: groups,
		},
	}
}

func TestLoadFromDecompositionSetsInitialReadiness(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b", "c"))

	a, ok := q.GetTask("a")
	require.True(t, ok)
	assert.Equal(t, models.SubtaskReady, a.Status)

	b, ok := q.GetTask("b")
	require.True(t, ok)
	assert.Equal(t, models.SubtaskBlocked, b.Status)
}

func TestMarkCompletedUnblocksDependent(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b"))

	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkCompleted("a", nil))

	b, ok := q.GetTask("b")
	require.True(t, ok)
	assert.Equal(t, models.SubtaskReady, b.Status)
}

func TestMarkFailedRetriesBeforeFailing(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a"))

	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkFailed("a", 1))

	a, ok := q.GetTask("a")
	require.True(t, ok)
	assert.Equal(t, models.SubtaskReady, a.Status)
	assert.Equal(t, 1, a.Attempts)

	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkFailed("a", 0))

	a, ok = q.GetTask("a")
	require.True(t, ok)
	assert.Equal(t, models.SubtaskFailed, a.Status)
}

func TestMarkCompletedIsNoOpAfterFailed(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a"))

	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkFailed("a", 0))
	require.NoError(t, q.MarkCompleted("a", &models.SwarmTaskResult{}))

	a, ok := q.GetTask("a")
	require.True(t, ok)
	assert.Equal(t, models.SubtaskFailed, a.Status, "a completed result must not resurrect a failed task")
}

// TestCascadeUnskipOnResume is spec.md 8 scenario 5: A <- B <- C, A fails
// with no retries so B and C cascade-skip; after externally patching A back
// to completed, unSkipDependents restores B, then C once B completes.
func TestCascadeUnskipOnResume(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b", "c"))

	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkFailed("a", 0))

	b, _ := q.GetTask("b")
	c, _ := q.GetTask("c")
	assert.Equal(t, models.SubtaskSkipped, b.Status)
	assert.Equal(t, models.SubtaskSkipped, c.Status)

	tasks, waves := q.GetCheckpointState()
	for i := range tasks {
		if tasks[i].ID == "a" {
			tasks[i].Status = models.SubtaskCompleted
		}
	}
	q.RestoreFromCheckpoint(tasks, waves)

	q.UnSkipDependents("a")
	b, _ = q.GetTask("b")
	assert.Equal(t, models.SubtaskReady, b.Status)
	c, _ = q.GetTask("c")
	assert.Equal(t, models.SubtaskSkipped, c.Status, "c must stay skipped until b is satisfied")

	require.NoError(t, q.MarkDispatched("b", "sonnet"))
	require.NoError(t, q.MarkCompleted("b", nil))
	q.UnSkipDependents("b")
	c, _ = q.GetTask("c")
	assert.Equal(t, models.SubtaskReady, c.Status)
}

func TestCheckpointRoundTripIsIdentity(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b", "c"))
	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkCompleted("a", nil))

	before := q.GetAllTasks()
	tasks, waves := q.GetCheckpointState()
	q.RestoreFromCheckpoint(tasks, waves)
	after := q.GetAllTasks()

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.Equal(t, before[i].Attempts, after[i].Attempts)
	}
}

func TestAddReplanTasksAttachesRescueContext(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a"))

	q.AddReplanTasks([]models.SmartSubtask{{ID: "rescue-1", Description: "patch fallout", Complexity: 1}}, 5)

	rescue, ok := q.GetTask("rescue-1")
	require.True(t, ok)
	assert.Equal(t, "Re-planned from stalled swarm", rescue.RescueContext)
	assert.Equal(t, 1, rescue.Attempts)
	assert.Equal(t, models.SubtaskReady, rescue.Status)
}

func TestSkipTaskCascadesToDependents(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b", "c"))

	q.SkipTask("a", "budget triage")

	a, _ := q.GetTask("a")
	assert.Equal(t, models.SubtaskSkipped, a.Status)
	b, _ := q.GetTask("b")
	assert.Equal(t, models.SubtaskSkipped, b.Status)
	c, _ := q.GetTask("c")
	assert.Equal(t, models.SubtaskSkipped, c.Status)
}

func TestSkipTaskIsNoOpOnTerminalTask(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a"))

	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkCompleted("a", nil))

	q.SkipTask("a", "budget triage")

	a, _ := q.GetTask("a")
	assert.Equal(t, models.SubtaskCompleted, a.Status, "skipping a completed task must not overwrite it")
}

func TestIsFoundationReflectsCurrentDependents(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b"))

	a, _ := q.GetTask("a")
	assert.True(t, a.IsFoundation, "a has a dependent (b) and so is a foundation task")

	b, _ := q.GetTask("b")
	assert.False(t, b.IsFoundation, "b has no dependents")

	q.AddReplanTasks([]models.SmartSubtask{{ID: "c", Description: "c", Complexity: 1, Dependencies: []string{"b"}}}, 5)
	b, _ = q.GetTask("b")
	assert.True(t, b.IsFoundation, "b gained a dependent via replan and is now a foundation task")
}

func TestReadyInvariantHoldsAfterOperations(t *testing.T) {
	q := New(nil)
	q.LoadFromDecomposition(chain("a", "b", "c"))
	require.NoError(t, q.MarkDispatched("a", "sonnet"))
	require.NoError(t, q.MarkCompleted("a", nil))

	for _, task := range q.GetAllTasks() {
		if task.Status != models.SubtaskReady {
			continue
		}
		for _, dep := range task.Dependencies {
			depTask, ok := q.GetTask(dep)
			require.True(t, ok)
			assert.True(t, depTask.Status.SatisfiesDependency(),
				"ready task %s has unsatisfied dependency %s", task.ID, dep)
		}
	}
}
