package cmd

import (
	"context"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/swarmforge/swarmcore/internal/config"
	"github.com/swarmforge/swarmcore/internal/store"
)

// newListCommand implements spec.md 6 "CLI surface" `list`: every known
// session's newest checkpoint, newest-first.
func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known sessions and their latest checkpoint phase",
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

			sessions, err := st.ListSessions(context.Background())
			if err != nil {
				return exitErr(1, err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Session ID", "Phase", "Last Checkpoint"})
			for _, s := range sessions {
				table.Append([]string{s.SessionID, string(s.Phase), s.Timestamp.Format("2006-01-02 15:04:05")})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}
