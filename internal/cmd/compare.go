package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/swarmforge/swarmcore/internal/config"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/store"
)

// newCompareCommand implements spec.md 6 "CLI surface" `compare`: two
// sessions' checkpoint summaries, side by side.
func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <session-a> <session-b>",
		Short: "Compare two sessions' task-status breakdowns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := config.DBPath()
			if err != nil {
				return exitErr(2, err)
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return exitErr(2, err)
			}
			defer st.Close()

			ctx := context.Background()
			a, err := resolveCheckpoint(ctx, st, args[0])
			if err != nil {
				return exitErr(1, fmt.Errorf("session %s: %w", args[0], err))
			}
			b, err := resolveCheckpoint(ctx, st, args[1])
			if err != nil {
				return exitErr(1, fmt.Errorf("session %s: %w", args[1], err))
			}

			renderCompare(a, b)
			return nil
		},
	}
	return cmd
}

func renderCompare(a, b models.SwarmCheckpoint) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", a.SessionID, b.SessionID})
	table.Append([]string{"Phase", string(a.Phase), string(b.Phase)})
	table.Append([]string{"Total tasks", fmt.Sprintf("%d", a.Stats.TotalTasks), fmt.Sprintf("%d", b.Stats.TotalTasks)})
	table.Append([]string{"Completed", fmt.Sprintf("%d", a.Stats.CompletedTasks), fmt.Sprintf("%d", b.Stats.CompletedTasks)})
	table.Append([]string{"Failed", fmt.Sprintf("%d", a.Stats.FailedTasks), fmt.Sprintf("%d", b.Stats.FailedTasks)})
	table.Append([]string{"Skipped", fmt.Sprintf("%d", a.Stats.SkippedTasks), fmt.Sprintf("%d", b.Stats.SkippedTasks)})
	table.Append([]string{"Dispatches", fmt.Sprintf("%d", a.Stats.DispatchCount), fmt.Sprintf("%d", b.Stats.DispatchCount)})
	table.Append([]string{"Hollow completions", fmt.Sprintf("%d", a.Stats.HollowCount), fmt.Sprintf("%d", b.Stats.HollowCount)})
	table.Render()
}
