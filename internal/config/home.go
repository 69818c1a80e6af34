package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetSwarmcoreHome returns the swarmcore home directory, creating it if
// necessary. Priority order: SWARMCORE_HOME environment variable, the
// repository root (detected by finding a go.mod naming this module), then
// the current working directory.
func GetSwarmcoreHome() (string, error) {
	if home := os.Getenv("SWARMCORE_HOME"); home != "" {
		return home, nil
	}

	if repoRoot, err := findRepoRoot(); err == nil && repoRoot != "" {
		home := filepath.Join(repoRoot, ".swarmcore")
		if err := os.MkdirAll(home, 0o755); err != nil {
			return "", fmt.Errorf("create swarmcore home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".swarmcore")
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", fmt.Errorf("create swarmcore home directory: %w", err)
	}
	return home, nil
}

// findRepoRoot walks up from the working directory looking for a
// .swarmcore-root marker or a go.mod naming this module.
func findRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		markerPath := filepath.Join(current, ".swarmcore-root")
		if _, err := os.Stat(markerPath); err == nil {
			return current, nil
		}

		goModPath := filepath.Join(current, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if strings.Contains(string(data), "github.com/swarmforge/swarmcore") {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("swarmcore repository root not found (looking for .swarmcore-root or go.mod naming github.com/swarmforge/swarmcore)")
}

// DBPath returns the absolute path to the session-state database under the
// swarmcore home directory.
func DBPath() (string, error) {
	home, err := GetSwarmcoreHome()
	if err != nil {
		return "", err
	}
	stateDir := filepath.Join(home, "state")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return filepath.Join(stateDir, "swarmcore.db"), nil
}
