package decomposer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swarmforge/swarmcore/internal/models"
)

func TestInferTaskTypeMatchesKeywords(t *testing.T) {
	assert.Equal(t, models.TaskFix, inferTaskType("fix the broken login flow"))
	assert.Equal(t, models.TaskTest, inferTaskType("add test coverage for the parser"))
	assert.Equal(t, models.TaskRefactor, inferTaskType("refactor the queue package"))
	assert.Equal(t, models.TaskImplement, inferTaskType("add a brand new dashboard widget"))
}

func TestInferStrategyMatchesCueWords(t *testing.T) {
	assert.Equal(t, "pipeline", inferStrategy("build it as a pipeline: stage one then stage two"))
	assert.Equal(t, "hierarchical", inferStrategy("break down the subsystem module by module"))
	assert.Equal(t, "parallel", inferStrategy("these two streams can run in parallel"))
}

func TestInferStrategyFallsBackToLengthHeuristic(t *testing.T) {
	assert.Equal(t, "sequential", inferStrategy("short task"))

	mid := "this task description is long enough to clear the short threshold but still under the long one for sure"
	assert.Equal(t, "parallel", inferStrategy(mid))

	long := ""
	for i := 0; i < 30; i++ {
		long += "this task has a lot of detail in it and keeps going on and on. "
	}
	assert.Equal(t, "adaptive", inferStrategy(long))
}

func TestHeuristicDecomposeUsesMarkdownSkeletonWhenPresent(t *testing.T) {
	goal := "## Set up storage\n\n## Wire the API\n"
	subtasks, strategy, usedFallback := heuristicDecompose("set up storage and wire the api", goal)

	assert.True(t, usedFallback)
	assert.Equal(t, "sequential", strategy)
	assert.Len(t, subtasks, 4)
}

func TestHeuristicDecomposeFallsBackToKeywordSkeleton(t *testing.T) {
	subtasks, strategy, usedFallback := heuristicDecompose("fix the login bug", "")

	assert.True(t, usedFallback)
	assert.NotEmpty(t, strategy)
	assert.NotEmpty(t, subtasks)
	assert.Equal(t, models.TaskFix, subtasks[1].Type)
}

func TestSequentialSkeletonChainsThreeSteps(t *testing.T) {
	subtasks := sequentialSkeleton("do the thing", models.TaskImplement)
	if assert.Len(t, subtasks, 3) {
		assert.Equal(t, []string{"task-1"}, subtasks[1].Dependencies)
		assert.Equal(t, []string{"task-2"}, subtasks[2].Dependencies)
	}
}

func TestParallelSkeletonMarksBothBranchesParallelizable(t *testing.T) {
	subtasks := parallelSkeleton("do the thing", models.TaskImplement)
	if assert.Len(t, subtasks, 4) {
		assert.True(t, subtasks[1].Parallelizable)
		assert.True(t, subtasks[2].Parallelizable)
		assert.ElementsMatch(t, []string{"task-2", "task-3"}, subtasks[3].Dependencies)
	}
}
