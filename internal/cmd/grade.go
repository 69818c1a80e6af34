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

// newGradeCommand implements spec.md 6 "CLI surface" `grade`: scores one
// session's outcome against its own checkpoint (no external rubric exists
// in this core, so "grading" here means the per-task status breakdown and
// cost/duration a dataset-evaluation harness would fold into its own
// scoring).
func newGradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade [session-id]",
		Short: "Report the task-status breakdown for a completed session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := "latest"
			if len(args) == 1 {
				sessionID = args[0]
			}

			dbPath, err := config.DBPath()
			if err != nil {
				return exitErr(2, err)
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return exitErr(2, err)
			}
			defer st.Close()

			checkpoint, err := resolveCheckpoint(context.Background(), st, sessionID)
			if err != nil {
				return exitErr(1, err)
			}

			renderGrade(checkpoint)
			return nil
		},
	}
	return cmd
}

// resolveCheckpoint loads the checkpoint sessionID names, resolving
// "latest" to the newest session across the store the same way `run
// --resume` does.
func resolveCheckpoint(ctx context.Context, st *store.Store, sessionID string) (models.SwarmCheckpoint, error) {
	if sessionID == "latest" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return models.SwarmCheckpoint{}, fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			return models.SwarmCheckpoint{}, fmt.Errorf("no sessions recorded")
		}
		sessionID = sessions[0].SessionID
	}

	checkpoint, found, err := st.LatestCheckpoint(ctx, sessionID)
	if err != nil {
		return models.SwarmCheckpoint{}, fmt.Errorf("load checkpoint for session %s: %w", sessionID, err)
	}
	if !found {
		return models.SwarmCheckpoint{}, fmt.Errorf("no checkpoint found for session %s", sessionID)
	}
	return checkpoint, nil
}

func renderGrade(checkpoint models.SwarmCheckpoint) {
	fmt.Printf("Session %s — phase %s\n", checkpoint.SessionID, checkpoint.Phase)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Task ID", "Status", "Attempts", "Type"})
	for _, t := range checkpoint.TaskStates {
		table.Append([]string{t.ID, string(t.Status), fmt.Sprintf("%d", t.Attempts), string(t.Type)})
	}
	table.Render()

	fmt.Printf("\nTotals: %d tasks, %d completed, %d failed, %d skipped\n",
		checkpoint.Stats.TotalTasks, checkpoint.Stats.CompletedTasks,
		checkpoint.Stats.FailedTasks, checkpoint.Stats.SkippedTasks)
}
