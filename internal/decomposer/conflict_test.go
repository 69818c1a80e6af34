package decomposer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmcore/internal/models"
)

func TestDetectConflictsFlagsWriteWrite(t *testing.T) {
	subtasks := []models.SmartSubtask{
		{ID: "a", Status: models.SubtaskPending, Modifies: []string{"shared.go"}},
		{ID: "b", Status: models.SubtaskPending, Modifies: []string{"shared.go"}},
	}

	conflicts := DetectConflicts(subtasks)

	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictWriteWrite, conflicts[0].Kind)
	assert.Equal(t, models.ConflictSeverityError, conflicts[0].Severity)
	assert.Equal(t, "shared.go", conflicts[0].File)
}

func TestDetectConflictsFlagsReadWriteAsWarning(t *testing.T) {
	subtasks := []models.SmartSubtask{
		{ID: "a", Status: models.SubtaskPending, Modifies: []string{"shared.go"}},
		{ID: "b", Status: models.SubtaskPending, Reads: []string{"shared.go"}},
	}

	conflicts := DetectConflicts(subtasks)

	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictReadWrite, conflicts[0].Kind)
	assert.Equal(t, models.ConflictSeverityWarning, conflicts[0].Severity)
}

func TestDetectConflictsIgnoresNonEligibleStatuses(t *testing.T) {
	subtasks := []models.SmartSubtask{
		{ID: "a", Status: models.SubtaskCompleted, Modifies: []string{"shared.go"}},
		{ID: "b", Status: models.SubtaskPending, Modifies: []string{"shared.go"}},
	}

	conflicts := DetectConflicts(subtasks)

	assert.Empty(t, conflicts)
}

func TestDetectConflictsNoOverlapNoConflicts(t *testing.T) {
	subtasks := []models.SmartSubtask{
		{ID: "a", Status: models.SubtaskPending, Modifies: []string{"a.go"}},
		{ID: "b", Status: models.SubtaskPending, Modifies: []string{"b.go"}},
	}

	assert.Empty(t, DetectConflicts(subtasks))
}
