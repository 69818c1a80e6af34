package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwarmTaskCloneDeepCopiesTargetFilesAndSubtask(t *testing.T) {
	t1 := SwarmTask{
		SmartSubtask: SmartSubtask{ID: "a", Dependencies: []string{"b"}},
		TargetFiles:  []string{"f.go"},
	}

	clone := t1.Clone()
	clone.TargetFiles[0] = "mutated.go"
	clone.SmartSubtask.Dependencies[0] = "mutated"

	assert.Equal(t, "f.go", t1.TargetFiles[0])
	assert.Equal(t, "b", t1.SmartSubtask.Dependencies[0])
}

func TestSwarmTaskIsExpendable(t *testing.T) {
	base := SwarmTask{SmartSubtask: SmartSubtask{Status: SubtaskReady, Complexity: 1}}
	assert.True(t, base.IsExpendable(false))
	assert.False(t, base.IsExpendable(true))

	notReady := base
	notReady.SmartSubtask.Status = SubtaskInProgress
	assert.False(t, notReady.IsExpendable(false))

	attempted := base
	attempted.Attempts = 1
	assert.False(t, attempted.IsExpendable(false))

	foundation := base
	foundation.IsFoundation = true
	assert.False(t, foundation.IsExpendable(false))

	complex := base
	complex.SmartSubtask.Complexity = 5
	assert.False(t, complex.IsExpendable(false))
}
