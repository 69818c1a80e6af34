package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarmforge/swarmcore/internal/economics"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/planmode"
	"github.com/swarmforge/swarmcore/internal/spawner"
)

func TestNewFactoryAppliesDefaults(t *testing.T) {
	factory := NewFactory(FactoryConfig{})
	child := factory(spawner.AgentConfig{AgentID: "a1", Prompt: "do the task"})

	ca, ok := child.(*childAgent)
	require.True(t, ok)
	assert.Equal(t, "claude", ca.factory.BinaryPath)
	assert.Equal(t, IsolationNone, ca.factory.Isolation)
}

func TestNewFactoryPreservesExplicitConfig(t *testing.T) {
	factory := NewFactory(FactoryConfig{BinaryPath: "my-agent", Isolation: IsolationDocker})
	child := factory(spawner.AgentConfig{AgentID: "a1"})

	ca := child.(*childAgent)
	assert.Equal(t, "my-agent", ca.factory.BinaryPath)
	assert.Equal(t, IsolationDocker, ca.factory.Isolation)
}

func TestBuildPromptAppendsWrapupNote(t *testing.T) {
	ca := &childAgent{cfg: spawner.AgentConfig{Prompt: "implement the feature"}}

	assert.Equal(t, "implement the feature", ca.buildPrompt())

	ca.RequestWrapup("budget exhausted")
	prompt := ca.buildPrompt()
	assert.Contains(t, prompt, "implement the feature")
	assert.Contains(t, prompt, "STOP: budget exhausted")
}

func TestCommandArgsIncludesPromptAndEnvelopeFormat(t *testing.T) {
	ca := &childAgent{}
	args := ca.commandArgs("do the thing")

	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "do the thing")
	assert.Contains(t, args, "--output-format")
	assert.Contains(t, args, "json")
}

func TestIsolationCommandDefaultPassesThrough(t *testing.T) {
	ca := &childAgent{factory: FactoryConfig{BinaryPath: "claude"}}
	binary, args := ca.isolationCommand("/work", []string{"-p", "x"})

	assert.Equal(t, "claude", binary)
	assert.Equal(t, []string{"-p", "x"}, args)
}

func TestIsolationCommandDockerWrapsInDockerRun(t *testing.T) {
	ca := &childAgent{factory: FactoryConfig{BinaryPath: "claude", Isolation: IsolationDocker, DockerImage: "custom:latest"}}
	binary, args := ca.isolationCommand("/work", []string{"-p", "x"})

	assert.Equal(t, "docker", binary)
	assert.Contains(t, args, "run")
	assert.Contains(t, args, "custom:latest")
	assert.Contains(t, args, "claude")
}

func TestIsolationCommandDockerDefaultsImage(t *testing.T) {
	ca := &childAgent{factory: FactoryConfig{BinaryPath: "claude", Isolation: IsolationDocker}}
	_, args := ca.isolationCommand("/work", nil)

	assert.Contains(t, args, "swarmcore-agent:latest")
}

func TestPrepareWorkspaceDefaultUsesCurrentDir(t *testing.T) {
	ca := &childAgent{}
	dir, cleanup, err := ca.prepareWorkspace()
	require.NoError(t, err)
	defer cleanup()
	assert.NotEmpty(t, dir)
}

func TestPrepareWorkspaceWorktreeRequiresRepoRoot(t *testing.T) {
	ca := &childAgent{factory: FactoryConfig{Isolation: IsolationWorktree}}
	_, _, err := ca.prepareWorkspace()
	assert.Error(t, err)
}

func TestParseEnvelopeReadsTrailingJSONLine(t *testing.T) {
	raw := []byte("some transcript text\nmore output\n" +
		`{"content":"done","tool_calls":3,"tokens_used":120,"files_modified":["a.go"]}`)

	envelope, err := parseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "done", envelope.Content)
	assert.Equal(t, 3, envelope.ToolCalls)
	assert.Equal(t, int64(120), envelope.TokensUsed)
	assert.Equal(t, []string{"a.go"}, envelope.FilesModified)
}

func TestParseEnvelopeErrorsOnNonJSONOutput(t *testing.T) {
	_, err := parseEnvelope([]byte("plain transcript, no envelope at all"))
	assert.Error(t, err)
}

func TestProgressAndPendingPlanStartEmpty(t *testing.T) {
	ca := &childAgent{}
	assert.Equal(t, spawner.ChildProgress{}, ca.Progress())
	assert.Nil(t, ca.PendingPlan())
}

type fakeChildAgent struct {
	spawner.ChildAgent
	wrapupReason string
	plan         *models.PendingPlan
}

func (f *fakeChildAgent) RequestWrapup(reason string)      { f.wrapupReason = reason }
func (f *fakeChildAgent) PendingPlan() *models.PendingPlan { return f.plan }
func (f *fakeChildAgent) Run(context.Context) (spawner.ChildOutput, error) {
	return spawner.ChildOutput{}, nil
}
func (f *fakeChildAgent) Progress() spawner.ChildProgress { return spawner.ChildProgress{} }

func TestWireBudgetRequestsWrapupWhenStopped(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), "sess-1")
	budget := models.ExecutionBudget{MaxTokens: 10, MaxCost: 0.01, MaxDuration: 1, MaxIterations: 1}
	mgr := economics.NewManager("agent-1", budget, bus)
	mgr.RecordLLMUsage(1_000_000, 0, "test-model", nil)

	child := &fakeChildAgent{}
	wireBudget(mgr, child)

	assert.NotEmpty(t, child.wrapupReason)
}

func TestWirePlanModeRestoresPendingPlan(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), "sess-1")
	mgr := planmode.NewManager(bus)
	plan := models.PendingPlan{ID: "p1"}
	child := &fakeChildAgent{plan: &plan}

	wirePlanMode(mgr, child)

	assert.True(t, mgr.HasPendingPlan())
}

func TestWirePlanModeNoopWhenNoPendingPlan(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), "sess-1")
	mgr := planmode.NewManager(bus)
	child := &fakeChildAgent{}

	wirePlanMode(mgr, child)

	assert.False(t, mgr.HasPendingPlan())
}
