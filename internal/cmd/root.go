// Package cmd implements swarmcore's CLI surface (spec.md 6 "CLI
// surface"): run, grade, compare, list, built on the teacher's cobra
// conventions.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set by cmd/swarmcore/main.go at build time.
var Version = "dev"

// NewRootCommand builds the swarmcore CLI.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "swarmcore",
		Short: "Hierarchical autonomous-agent execution engine",
		Long: "swarmcore decomposes a goal into a task graph, dispatches each\n" +
			"task to an isolated child agent under budget and policy\n" +
			"constraints, and assesses progress wave by wave until the goal\n" +
			"is done, exhausted, or stalled.",
		Version:      Version,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newGradeCommand())
	root.AddCommand(newCompareCommand())
	root.AddCommand(newListCommand())

	return root
}
