// Package claude provides process-isolation helpers for invoking a child
// agent CLI binary (spec.md 4.G "Execution": the spawner hands a concrete
// agent implementation an AgentConfig; this package is the subprocess
// transport one such implementation, internal/agent's ChildAgent, uses).
package claude

import (
	"os"
	"os/exec"
	"path/filepath"
)

// swarmcoreTmpDir is a clean temp directory for child CLI invocations, kept
// separate from the ambient TMPDIR to avoid editor/IDE socket files that
// crash some CLI agents when a custom settings file is passed (observed
// with claude-code: github.com/anthropics/claude-code/issues/7624).
var swarmcoreTmpDir string

func init() {
	swarmcoreTmpDir = filepath.Join(os.TempDir(), "swarmcore-agent")
	os.MkdirAll(swarmcoreTmpDir, 0755)
}

// SetCleanEnv configures a command to use a clean TMPDIR.
func SetCleanEnv(cmd *exec.Cmd) {
	cmd.Env = os.Environ()

	found := false
	for i, env := range cmd.Env {
		if len(env) > 7 && env[:7] == "TMPDIR=" {
			cmd.Env[i] = "TMPDIR=" + swarmcoreTmpDir
			found = true
			break
		}
	}
	if !found {
		cmd.Env = append(cmd.Env, "TMPDIR="+swarmcoreTmpDir)
	}
}

// GetCleanTmpDir returns the clean temp directory path for child invocations.
func GetCleanTmpDir() string {
	return swarmcoreTmpDir
}
