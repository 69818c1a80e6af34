// Package agent provides the concrete spawner.ChildAgent implementation:
// a subagent is a child CLI process (spec.md 1 places "the individual
// tools" out of scope, so swarmcore delegates tool execution to whatever
// coding-agent CLI is configured, the way the teacher's Invoker shelled out
// to the claude CLI). Isolation modes (worktree/docker/none, SPEC_FULL.md 2
// "CLI") control where that subprocess runs.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmforge/swarmcore/internal/claude"
	"github.com/swarmforge/swarmcore/internal/economics"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/planmode"
	"github.com/swarmforge/swarmcore/internal/spawner"
)

// Isolation selects where a child process runs (spec.md 4 "CLI surface"
// `--isolation {worktree,docker,none}`).
type Isolation string

const (
	IsolationNone     Isolation = "none"
	IsolationWorktree Isolation = "worktree"
	IsolationDocker   Isolation = "docker"
)

// FactoryConfig is process-level configuration shared by every child the
// factory produces, as opposed to spawner.AgentConfig's per-spawn fields.
type FactoryConfig struct {
	// BinaryPath is the coding-agent CLI to invoke. Defaults to "claude".
	BinaryPath string
	// Isolation controls subprocess sandboxing.
	Isolation Isolation
	// RepoRoot is the git repository worktrees are created from (required
	// when Isolation == IsolationWorktree).
	RepoRoot string
	// DockerImage is the image `docker run` uses when Isolation ==
	// IsolationDocker.
	DockerImage string
	// Timeout bounds one child's Run call, in addition to any deadline
	// already on the context the spawner passes in.
	Timeout time.Duration
}

// NewFactory returns a spawner.AgentFactory producing subprocess-backed
// ChildAgents configured by cfg.
func NewFactory(cfg FactoryConfig) spawner.AgentFactory {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "claude"
	}
	if cfg.Isolation == "" {
		cfg.Isolation = IsolationNone
	}
	return func(agentCfg spawner.AgentConfig) spawner.ChildAgent {
		return &childAgent{factory: cfg, cfg: agentCfg}
	}
}

// childOutputEnvelope is the JSON contract a child CLI process is expected
// to emit on its final line of stdout.
type childOutputEnvelope struct {
	Content       string   `json:"content"`
	SessionID     string   `json:"session_id"`
	Cost          *float64 `json:"cost"`
	TokensUsed    int64    `json:"tokens_used"`
	ToolCalls     int      `json:"tool_calls"`
	FilesModified []string `json:"files_modified"`
}

type childAgent struct {
	factory FactoryConfig
	cfg     spawner.AgentConfig

	mu         sync.Mutex
	progress   spawner.ChildProgress
	wrapupNote string
	plan       *models.PendingPlan
	cancelFunc context.CancelFunc
}

// RequestWrapup records the wrap-up reason; the subprocess is cooperative
// only through the context deadline supervisor.Supervisor/cancel.Graceful
// already enforce upstream, so this narrows the next prompt rather than
// interrupting an in-flight call.
func (c *childAgent) RequestWrapup(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wrapupNote = reason
}

func (c *childAgent) Progress() spawner.ChildProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *childAgent) PendingPlan() *models.PendingPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan
}

// Run implements spawner.ChildAgent: resolves the isolation workspace,
// builds the subprocess prompt from cfg, invokes the CLI once, and parses
// its envelope into a ChildOutput.
func (c *childAgent) Run(ctx context.Context) (spawner.ChildOutput, error) {
	start := time.Now()

	workDir, cleanup, err := c.prepareWorkspace()
	if err != nil {
		return spawner.ChildOutput{}, fmt.Errorf("agent: prepare workspace: %w", err)
	}
	defer cleanup()

	runCtx := ctx
	if c.factory.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.factory.Timeout)
		defer cancel()
	}

	prompt := c.buildPrompt()

	args := c.commandArgs(prompt)
	binary, args := c.isolationCommand(workDir, args)

	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Dir = workDir
	claude.SetCleanEnv(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	c.mu.Lock()
	c.progress = spawner.ChildProgress{LastActivity: time.Now(), Iterations: 1}
	c.mu.Unlock()

	if runErr != nil {
		if ctx.Err() != nil {
			return spawner.ChildOutput{TextOutput: stdout.String()}, ctx.Err()
		}
		return spawner.ChildOutput{}, fmt.Errorf("agent: %s invocation failed: %w (stderr: %s)",
			c.factory.BinaryPath, runErr, strings.TrimSpace(stderr.String()))
	}

	envelope, err := parseEnvelope(stdout.Bytes())
	if err != nil {
		// A coding-agent CLI that ignores the envelope contract still
		// produced usable transcript text; fall back rather than failing
		// the whole task over a formatting miss.
		envelope = childOutputEnvelope{Content: stdout.String()}
	}

	usage := models.ExecutionUsage{
		Tokens:     envelope.TokensUsed,
		DurationMs: time.Since(start).Milliseconds(),
		Iterations: 1,
		LLMCalls:   1,
	}

	return spawner.ChildOutput{
		TextOutput:    envelope.Content,
		FilesModified: envelope.FilesModified,
		ToolCalls:     envelope.ToolCalls,
		Usage:         usage,
		ActualCost:    envelope.Cost,
	}, nil
}

func (c *childAgent) buildPrompt() string {
	c.mu.Lock()
	wrapup := c.wrapupNote
	c.mu.Unlock()

	prompt := c.cfg.Prompt
	if wrapup != "" {
		prompt += fmt.Sprintf("\n\nSTOP: %s. Produce your closure report now instead of further tool calls.", wrapup)
	}
	return prompt
}

func (c *childAgent) commandArgs(prompt string) []string {
	args := []string{
		"--system-prompt", childSystemPrompt,
		"-p", prompt,
		"--output-format", "json",
		"--permission-mode", "bypassPermissions",
		"--settings", `{"disableAllHooks": true}`,
	}
	return args
}

// isolationCommand wraps the base command according to factory.Isolation,
// returning the binary and arguments to actually execute.
func (c *childAgent) isolationCommand(workDir string, baseArgs []string) (string, []string) {
	switch c.factory.Isolation {
	case IsolationDocker:
		image := c.factory.DockerImage
		if image == "" {
			image = "swarmcore-agent:latest"
		}
		dockerArgs := []string{
			"run", "--rm",
			"-v", fmt.Sprintf("%s:/workspace", workDir),
			"-w", "/workspace",
			image,
			c.factory.BinaryPath,
		}
		return "docker", append(dockerArgs, baseArgs...)
	default:
		return c.factory.BinaryPath, baseArgs
	}
}

// prepareWorkspace resolves the directory the child runs in, creating and
// tearing down a git worktree when Isolation == IsolationWorktree so
// concurrent siblings never race on the same working tree (spec.md 4.G
// "parallel dispatch").
func (c *childAgent) prepareWorkspace() (dir string, cleanup func(), err error) {
	switch c.factory.Isolation {
	case IsolationWorktree:
		if c.factory.RepoRoot == "" {
			return "", nil, fmt.Errorf("worktree isolation requires RepoRoot")
		}
		branch := fmt.Sprintf("swarmcore/%s", c.cfg.AgentID)
		worktreeDir := filepath.Join(os.TempDir(), "swarmcore-worktrees", uuid.NewString())

		addCmd := exec.Command("git", "-C", c.factory.RepoRoot, "worktree", "add", "-b", branch, worktreeDir, "HEAD")
		if out, err := addCmd.CombinedOutput(); err != nil {
			return "", nil, fmt.Errorf("git worktree add: %w (%s)", err, strings.TrimSpace(string(out)))
		}

		cleanup := func() {
			removeCmd := exec.Command("git", "-C", c.factory.RepoRoot, "worktree", "remove", "--force", worktreeDir)
			removeCmd.Run()
			branchCmd := exec.Command("git", "-C", c.factory.RepoRoot, "branch", "-D", branch)
			branchCmd.Run()
		}
		return worktreeDir, cleanup, nil
	case IsolationDocker:
		dir := filepath.Join(os.TempDir(), "swarmcore-docker", uuid.NewString())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, err
		}
		return dir, func() { os.RemoveAll(dir) }, nil
	default:
		wd, err := os.Getwd()
		if err != nil {
			return "", nil, err
		}
		return wd, func() {}, nil
	}
}

const childSystemPrompt = "You are a coding subagent executing one task of a larger plan. " +
	"Use the tools available to you to complete the task, then emit exactly one line of JSON " +
	`matching {"content":"...","files_modified":["..."],"tool_calls":0,"tokens_used":0,"cost":0.0} as your final output.`

func parseEnvelope(raw []byte) (childOutputEnvelope, error) {
	output := strings.TrimSpace(string(raw))
	start := strings.LastIndex(output, "\n{")
	jsonStr := output
	if start >= 0 {
		jsonStr = output[start+1:]
	}

	var envelope childOutputEnvelope
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return childOutputEnvelope{}, fmt.Errorf("agent: parse output envelope: %w", err)
	}
	return envelope, nil
}

// wireBudget connects an economics.Manager's CheckBudget result to the
// spawner's RequestWrapup call, used by the supervisor poll loop (spec.md
// 4.H) rather than by childAgent itself. Kept here because it shares the
// same ChildAgent-facing vocabulary.
func wireBudget(mgr *economics.Manager, child spawner.ChildAgent) {
	result := mgr.CheckBudget()
	if result.SuggestedAction == economics.ActionStop {
		child.RequestWrapup("budget exhausted")
	}
}

// wirePlanMode records a child's pending plan into the parent's plan-mode
// manager on completion (spec.md 9 "Shared-resource policy": ownership of
// the pending-plan manager transfers on completion). Exposed here so
// spawner call sites don't need to know childAgent's concrete type.
func wirePlanMode(mgr *planmode.Manager, child spawner.ChildAgent) {
	if plan := child.PendingPlan(); plan != nil && mgr != nil {
		mgr.RestorePlan(*plan)
	}
}
