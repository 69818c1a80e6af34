package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmcore/internal/models"
)

func TestResolveExplicitProfileWins(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{ExplicitProfile: ProfileCodeFull})
	require.NoError(t, err)
	assert.Equal(t, ProfileCodeFull, res.ProfileName)
	assert.Equal(t, models.SourceExplicit, res.Metadata.Source)
}

func TestResolveWorkerCapabilityBeatsTaskType(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{
		Worker:   &WorkerCapabilities{Capability: "reviewer"},
		TaskType: models.TaskImplement,
	})
	require.NoError(t, err)
	assert.Equal(t, ProfileReviewSafe, res.ProfileName)
	assert.Equal(t, models.SourceWorkerCapability, res.Metadata.Source)
}

func TestResolveTaskTypeSelectsProfile(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{TaskType: models.TaskImplement})
	require.NoError(t, err)
	assert.Equal(t, ProfileCodeStrictBash, res.ProfileName)
	assert.Equal(t, models.SourceTaskType, res.Metadata.Source)
}

func TestResolveSwarmContextDefaultsToCodeStrictBash(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{SwarmContext: true})
	require.NoError(t, err)
	assert.Equal(t, ProfileCodeStrictBash, res.ProfileName)
}

func TestResolveDefaultsToResearchSafe(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{})
	require.NoError(t, err)
	assert.Equal(t, ProfileResearchSafe, res.ProfileName)
}

func TestResolveUnknownExplicitProfileFallsBackWithWarning(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{ExplicitProfile: "does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, ProfileResearchSafe, res.ProfileName)
	assert.NotEmpty(t, res.Metadata.Warnings)
}

func TestResolveAppliesProfileExtensions(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{
		ExplicitProfile: ProfileReviewSafe,
		ProfileExtensions: &ProfileExtension{
			AddAllowedTools: []string{"Bash"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Profile.AllowedTools, "Bash")
}

func TestResolveAppliesLegacyFallbackAndRecordsFields(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{
		ExplicitProfile: ProfileCodeFull,
		LegacyFallback:  true,
		Sandbox: SandboxConfig{
			GlobalDeniedTools: []string{"Bash"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Profile.DeniedTools, "Bash")
	assert.Contains(t, res.Metadata.LegacyFieldsUsed, "global.deniedTools")
	assert.NotEmpty(t, res.Metadata.Warnings)
}

func TestResolveWorkerExtraToolsOverrideDenial(t *testing.T) {
	e := NewEngine()
	res, err := e.Resolve(ResolveInput{
		ExplicitProfile: ProfileCodeFull,
		LegacyFallback:  true,
		Sandbox:         SandboxConfig{GlobalDeniedTools: []string{"Bash"}},
		Worker:          &WorkerCapabilities{ExtraTools: []string{"Bash"}},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Profile.AllowedTools, "Bash")
	assert.NotContains(t, res.Profile.DeniedTools, "Bash")
}

func TestIsToolAllowedWhitelistMode(t *testing.T) {
	profile := models.PolicyProfile{ToolAccessMode: models.ToolAccessWhitelist, AllowedTools: []string{"Read"}}
	assert.True(t, IsToolAllowed("Read", profile).Allowed)
	assert.False(t, IsToolAllowed("Bash", profile).Allowed)
}

func TestIsToolAllowedDenyListWins(t *testing.T) {
	profile := models.PolicyProfile{ToolAccessMode: models.ToolAccessAll, DeniedTools: []string{"Bash"}}
	assert.False(t, IsToolAllowed("Bash", profile).Allowed)
	assert.True(t, IsToolAllowed("Read", profile).Allowed)
}
