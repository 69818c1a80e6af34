// Command swarmcore is the CLI entry point for the swarmcore orchestration
// core: decompose a goal, dispatch it to a swarm of child agents under
// budget and policy constraints, and report the outcome.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/swarmforge/swarmcore/internal/cmd"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	cmd.Version = version
	root := cmd.NewRootCommand()

	err := root.Execute()
	if err == nil {
		os.Exit(0)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var exitCoder interface{ ExitCode() int }
	if errors.As(err, &exitCoder) {
		os.Exit(exitCoder.ExitCode())
	}
	os.Exit(1)
}
