package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/swarmforge/swarmcore/internal/models"
)

// fileReadCommand matches a bare cat/head/tail/grep invocation against a
// single path argument, with no pipes and no redirects — the heuristic
// spec.md 4.B uses to extract a single file target for read-only
// verification.
var fileReadCommand = regexp.MustCompile(`^(cat|head|tail|grep)\s+(?:-[A-Za-z0-9]+\s+)*([^\s|><&;]+)\s*$`)

// mutatingVerbs are the shell verbs evaluateBash treats as file mutation
// for bash-write-protection purposes.
var mutatingVerbs = []string{"rm", "mv", "cp", "mkdir", "rmdir", "truncate", "dd", "tee", "sed -i", "chmod", "chown", "git commit", "git add", "git reset", "git checkout"}

// EvaluateBash implements spec.md 4.B's evaluateBash: task_scoped expands
// to read_only for the task types it names and to disabled otherwise, then
// the command is checked against the resulting mode and the profile's
// bash-write-protection setting.
func EvaluateBash(command string, profile models.PolicyProfile, taskType models.TaskType) models.BashAuthorization {
	mode := profile.BashMode
	if mode == models.BashTaskScoped {
		if bashScopedTaskTypes[taskType] {
			mode = models.BashReadOnly
		} else {
			mode = models.BashDisabled
		}
	}

	fileTarget := extractFileTarget(command)

	switch mode {
	case models.BashDisabled:
		return models.BashAuthorization{Allowed: false, Reason: "bash is disabled for this profile"}

	case models.BashReadOnly:
		if fileTarget != "" {
			return models.BashAuthorization{Allowed: true, Reason: "read-only file command", FileTarget: fileTarget}
		}
		return models.BashAuthorization{Allowed: false, Reason: "only single-file read commands (cat/head/tail/grep) are allowed in read-only bash mode"}

	case models.BashFull:
		if profile.BashWriteProtection == models.WriteProtectionBlockFileMutation && looksMutating(command) {
			return models.BashAuthorization{Allowed: false, Reason: "command looks like a file mutation and bash-write-protection is enabled", FileTarget: fileTarget}
		}
		return models.BashAuthorization{Allowed: true, Reason: "full bash access", FileTarget: fileTarget}

	default:
		return models.BashAuthorization{Allowed: false, Reason: fmt.Sprintf("unknown bash mode %q", mode)}
	}
}

func extractFileTarget(command string) string {
	trimmed := strings.TrimSpace(command)
	m := fileReadCommand.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	return m[2]
}

func looksMutating(command string) bool {
	trimmed := strings.TrimSpace(command)
	for _, verb := range mutatingVerbs {
		if trimmed == verb || strings.HasPrefix(trimmed, verb+" ") {
			return true
		}
	}
	return false
}
