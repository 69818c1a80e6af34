package decomposer

import (
	"fmt"

	"github.com/swarmforge/swarmcore/internal/models"
)

// DetectConflicts implements spec.md 4.F's conflict detection: for every
// pair of tasks that are both ready or pending, a shared modifies entry is
// a write-write error, a modifies/reads overlap is a read-write warning.
// Grounded on internal/executor/package_guard.go's DetectPackageConflicts
// (pairwise same-resource scan over task sets, sorted+deduplicated
// output), generalized from Go-package ownership to file-path ownership
// at the modifies/reads granularity spec.md 4.F actually asks for.
func DetectConflicts(subtasks []models.SmartSubtask) []models.TaskConflict {
	var conflicts []models.TaskConflict

	eligible := func(s models.SubtaskStatus) bool {
		return s == models.SubtaskReady || s == models.SubtaskPending
	}

	for i := 0; i < len(subtasks); i++ {
		a := subtasks[i]
		if !eligible(a.Status) {
			continue
		}
		for j := i + 1; j < len(subtasks); j++ {
			b := subtasks[j]
			if !eligible(b.Status) {
				continue
			}
			conflicts = append(conflicts, conflictsBetween(a, b)...)
		}
	}

	return conflicts
}

func conflictsBetween(a, b models.SmartSubtask) []models.TaskConflict {
	var out []models.TaskConflict

	for _, file := range a.Modifies {
		if b.ModifiesFile(file) {
			out = append(out, models.TaskConflict{
				TaskA: a.ID, TaskB: b.ID, File: file,
				Kind: models.ConflictWriteWrite, Severity: models.ConflictSeverityError,
				Suggestion: fmt.Sprintf("tasks %s and %s both modify %q: serialize them with an explicit dependency or split the file between them", a.ID, b.ID, file),
			})
		}
	}

	for _, file := range a.Modifies {
		if containsFile(b.Reads, file) {
			out = append(out, models.TaskConflict{
				TaskA: a.ID, TaskB: b.ID, File: file,
				Kind: models.ConflictReadWrite, Severity: models.ConflictSeverityWarning,
				Suggestion: fmt.Sprintf("task %s reads %q while task %s modifies it: consider making %s depend on %s", b.ID, file, a.ID, b.ID, a.ID),
			})
		}
	}
	for _, file := range b.Modifies {
		if containsFile(a.Reads, file) {
			out = append(out, models.TaskConflict{
				TaskA: b.ID, TaskB: a.ID, File: file,
				Kind: models.ConflictReadWrite, Severity: models.ConflictSeverityWarning,
				Suggestion: fmt.Sprintf("task %s reads %q while task %s modifies it: consider making %s depend on %s", a.ID, file, b.ID, a.ID, b.ID),
			})
		}
	}

	return out
}

func containsFile(files []string, target string) bool {
	for _, f := range files {
		if f == target {
			return true
		}
	}
	return false
}
