package decomposer

import (
	"fmt"
	"strings"

	"github.com/swarmforge/swarmcore/internal/models"
)

// keywordTaskTypes ranks task-type keyword hits in priority order: earlier
// entries win ties, matching how a human skimming a task description would
// weigh "fix the bug in X" over the word "in" accidentally matching nothing.
var keywordTaskTypes = []struct {
	taskType models.TaskType
	keywords []string
}{
	{models.TaskFix, []string{"fix", "bug", "broken", "regression", "error"}},
	{models.TaskTest, []string{"test", "coverage", "spec", "assert"}},
	{models.TaskRefactor, []string{"refactor", "cleanup", "restructure", "simplify"}},
	{models.TaskReview, []string{"review", "audit", "inspect"}},
	{models.TaskDocument, []string{"document", "docs", "readme", "comment"}},
	{models.TaskDeploy, []string{"deploy", "release", "publish", "ship"}},
	{models.TaskIntegrate, []string{"integrate", "wire", "connect", "hook up"}},
	{models.TaskDesign, []string{"design", "architecture", "plan"}},
	{models.TaskResearch, []string{"research", "investigate", "explore", "survey"}},
	{models.TaskAnalysis, []string{"analyze", "analysis", "evaluate", "assess"}},
	{models.TaskMerge, []string{"merge", "consolidate", "combine"}},
}

func inferTaskType(text string) models.TaskType {
	lower := strings.ToLower(text)
	for _, kt := range keywordTaskTypes {
		for _, kw := range kt.keywords {
			if strings.Contains(lower, kw) {
				return kt.taskType
			}
		}
	}
	return models.TaskImplement
}

// strategyCues maps cue words to the strategy they suggest, checked in
// order so the first cue present in the task text wins.
var strategyCues = []struct {
	strategy string
	cues     []string
}{
	{"pipeline", []string{"pipeline", "stage", "then build", "then deploy", "step by step"}},
	{"hierarchical", []string{"hierarch", "break down", "subsystem", "module by module"}},
	{"parallel", []string{"parallel", "simultaneously", "concurrently", "at the same time", "independently"}},
	{"sequential", []string{"sequential", "one at a time", "in order", "step-by-step"}},
}

// inferStrategy picks one of spec.md 4.F's five strategies from cue words in
// the task text, falling back to length-based heuristics (a short task is
// simple enough to run sequentially; a long one benefits from an adaptive
// planner that can re-decompose as it learns more) when no cue word fires.
func inferStrategy(task string) string {
	lower := strings.ToLower(task)
	for _, sc := range strategyCues {
		for _, cue := range sc.cues {
			if strings.Contains(lower, cue) {
				return sc.strategy
			}
		}
	}
	switch {
	case len(task) < 80:
		return "sequential"
	case len(task) < 240:
		return "parallel"
	default:
		return "adaptive"
	}
}

// heuristicDecompose is the deterministic, never-fails fallback spec.md 4.F
// requires when the planner is unavailable or exhausts its two attempts. A
// goalContext written as a structured markdown document (level-2 sections)
// is decomposed one subtask per section; otherwise a primary task type and
// strategy are inferred from the task text and a fixed skeleton emitted for
// that strategy.
func heuristicDecompose(task, goalContext string) ([]models.SmartSubtask, string, bool) {
	if subtasks := markdownSkeleton(goalContext); subtasks != nil {
		return subtasks, "sequential", true
	}

	strategy := inferStrategy(task)
	primary := inferTaskType(task)

	var subtasks []models.SmartSubtask
	switch strategy {
	case "sequential":
		subtasks = sequentialSkeleton(task, primary)
	case "parallel":
		subtasks = parallelSkeleton(task, primary)
	case "hierarchical":
		subtasks = hierarchicalSkeleton(task, primary)
	case "pipeline":
		subtasks = pipelineSkeleton(task, primary)
	default:
		subtasks = adaptiveSkeleton(task, primary)
	}
	return subtasks, strategy, true
}

func newSubtask(id int, desc string, taskType models.TaskType, deps ...string) models.SmartSubtask {
	return models.SmartSubtask{
		ID:           fmt.Sprintf("task-%d", id),
		Description:  desc,
		Status:       models.SubtaskPending,
		Type:         taskType,
		Complexity:   5,
		Dependencies: deps,
	}
}

// sequentialSkeleton: plan -> do the work -> verify, each depending on the
// one before it.
func sequentialSkeleton(task string, primary models.TaskType) []models.SmartSubtask {
	return []models.SmartSubtask{
		newSubtask(1, "Plan: "+task, models.TaskDesign),
		newSubtask(2, task, primary, "task-1"),
		newSubtask(3, "Verify: "+task, models.TaskTest, "task-2"),
	}
}

// parallelSkeleton: a shared research step, two independent work streams
// that can both dispatch from it, then a join/verify step.
func parallelSkeleton(task string, primary models.TaskType) []models.SmartSubtask {
	s1 := newSubtask(1, "Research context for: "+task, models.TaskResearch)
	s2 := newSubtask(2, task+" (part A)", primary, s1.ID)
	s3 := newSubtask(3, task+" (part B)", primary, s1.ID)
	s4 := newSubtask(4, "Verify: "+task, models.TaskTest, s2.ID, s3.ID)
	s2.Parallelizable = true
	s3.Parallelizable = true
	return []models.SmartSubtask{s1, s2, s3, s4}
}

// hierarchicalSkeleton: a design step fans out into per-subsystem work,
// then an integration step joins them.
func hierarchicalSkeleton(task string, primary models.TaskType) []models.SmartSubtask {
	design := newSubtask(1, "Design subsystems for: "+task, models.TaskDesign)
	a := newSubtask(2, task+" (subsystem A)", primary, design.ID)
	b := newSubtask(3, task+" (subsystem B)", primary, design.ID)
	a.Parallelizable = true
	b.Parallelizable = true
	integrate := newSubtask(4, "Integrate subsystems for: "+task, models.TaskIntegrate, a.ID, b.ID)
	verify := newSubtask(5, "Verify: "+task, models.TaskTest, integrate.ID)
	return []models.SmartSubtask{design, a, b, integrate, verify}
}

// pipelineSkeleton: each stage depends strictly on the previous stage's
// output, mirroring a build/test/deploy pipeline.
func pipelineSkeleton(task string, primary models.TaskType) []models.SmartSubtask {
	build := newSubtask(1, task+" (build)", primary)
	test := newSubtask(2, "Test: "+task, models.TaskTest, build.ID)
	deploy := newSubtask(3, "Deploy: "+task, models.TaskDeploy, test.ID)
	return []models.SmartSubtask{build, test, deploy}
}

// adaptiveSkeleton: a single exploratory step followed by an open-ended
// implementation step; deliberately coarse, since "adaptive" means the
// supervisor is expected to re-decompose once more is learned.
func adaptiveSkeleton(task string, primary models.TaskType) []models.SmartSubtask {
	explore := newSubtask(1, "Explore and scope: "+task, models.TaskResearch)
	work := newSubtask(2, task, primary, explore.ID)
	verify := newSubtask(3, "Verify: "+task, models.TaskTest, work.ID)
	return []models.SmartSubtask{explore, work, verify}
}
