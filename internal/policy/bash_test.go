package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swarmforge/swarmcore/internal/models"
)

func TestEvaluateBashDisabledMode(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashDisabled}
	auth := EvaluateBash("ls -la", profile, models.TaskImplement)
	assert.False(t, auth.Allowed)
}

func TestEvaluateBashReadOnlyAllowsSingleFileRead(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashReadOnly}
	auth := EvaluateBash("cat internal/policy/bash.go", profile, models.TaskResearch)
	assert.True(t, auth.Allowed)
	assert.Equal(t, "internal/policy/bash.go", auth.FileTarget)
}

func TestEvaluateBashReadOnlyDeniesNonFileCommand(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashReadOnly}
	auth := EvaluateBash("cat a.go | grep foo", profile, models.TaskResearch)
	assert.False(t, auth.Allowed)
}

func TestEvaluateBashFullBlocksMutationWhenProtected(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashFull, BashWriteProtection: models.WriteProtectionBlockFileMutation}
	auth := EvaluateBash("rm -rf /tmp/x", profile, models.TaskImplement)
	assert.False(t, auth.Allowed)
}

func TestEvaluateBashFullAllowsMutationWhenUnprotected(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashFull, BashWriteProtection: models.WriteProtectionOff}
	auth := EvaluateBash("rm -rf /tmp/x", profile, models.TaskImplement)
	assert.True(t, auth.Allowed)
}

func TestEvaluateBashTaskScopedExpandsByTaskType(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashTaskScoped}

	readOnly := EvaluateBash("cat a.go", profile, models.TaskImplement)
	assert.True(t, readOnly.Allowed)

	disabled := EvaluateBash("cat a.go", profile, models.TaskResearch)
	assert.False(t, disabled.Allowed)
}

func TestEvaluateBashUnknownModeDenied(t *testing.T) {
	profile := models.PolicyProfile{BashMode: models.BashMode("something-else")}
	auth := EvaluateBash("ls", profile, models.TaskImplement)
	assert.False(t, auth.Allowed)
}

func TestExtractFileTargetAndLooksMutating(t *testing.T) {
	assert.Equal(t, "a.go", extractFileTarget("head -n 5 a.go"))
	assert.Empty(t, extractFileTarget("cat a.go b.go"))

	assert.True(t, looksMutating("git commit -m x"))
	assert.False(t, looksMutating("git status"))
}
