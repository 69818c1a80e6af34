package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/swarmforge/swarmcore/internal/config"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/store"
	"github.com/swarmforge/swarmcore/internal/swarm"
)

// newRunCommand implements spec.md 6 "CLI surface": dataset evaluation via
// goal decomposition and swarm dispatch.
func newRunCommand() *cobra.Command {
	var (
		parallelism int
		isolation   string
		costLimit   float64
		resumeFlag  string
		swarmResume string
		taskIDsFlag string
		configPath  string
	)

	cmd := &cobra.Command{
		Use:   "run [goal]",
		Short: "Decompose a goal and run it to completion under swarm orchestration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return exitErr(2, fmt.Errorf("load config: %w", err))
			}
			if err := validateIsolation(isolation); err != nil {
				return exitErr(2, err)
			}

			flags := runtimeFlags{
				parallelism: parallelism,
				isolation:   isolation,
				costLimit:   costLimit,
				taskIDs:     splitNonEmpty(taskIDsFlag),
			}

			resumeID, resuming := resolveResumeID(cmd, resumeFlag, swarmResume)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessionID := uuid.NewString()
			if resuming && resumeID != "latest" {
				sessionID = resumeID
			}

			orch, st, fileLog, err := buildRuntime(cfg, flags, sessionID)
			if err != nil {
				return exitErr(2, err)
			}
			defer st.Close()
			defer fileLog.Close()

			var (
				checkpoint models.SwarmCheckpoint
				runErr     error
			)
			if resuming {
				sp := newWaitSpinner("resuming session " + resumeID)
				sp.Start()
				checkpoint, runErr = runResumed(ctx, orch, st, resumeID)
				sp.Stop()
			} else {
				goal := strings.Join(args, " ")
				if goal == "" {
					return exitErr(2, fmt.Errorf("run requires a goal argument unless --resume/--swarm-resume is given"))
				}
				sp := newWaitSpinner("decomposing goal")
				sp.Start()
				checkpoint, runErr = orch.Run(ctx, goal, "")
				sp.Stop()
			}

			if st != nil {
				_ = st.SaveCheckpoint(context.Background(), checkpoint)
			}

			return reportOutcome(orch, runErr)
		},
	}

	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "maximum concurrent tasks (0 = config default)")
	cmd.Flags().StringVar(&isolation, "isolation", "none", "child process isolation: worktree, docker, or none")
	cmd.Flags().Float64Var(&costLimit, "cost-limit", 0, "override the budget preset's cost ceiling in dollars")
	cmd.Flags().StringVar(&resumeFlag, "resume", "", "resume a prior session (default id: latest)")
	cmd.Flags().Lookup("resume").NoOptDefVal = "latest"
	cmd.Flags().StringVar(&swarmResume, "swarm-resume", "", "resume a prior swarm session (default id: latest); alias for --resume")
	cmd.Flags().Lookup("swarm-resume").NoOptDefVal = "latest"
	cmd.Flags().StringVar(&taskIDsFlag, "task-ids", "", "comma-separated task IDs to restrict this run to")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a swarmcore.yaml config file")

	return cmd
}

// resolveResumeID reads --resume/--swarm-resume the way spec.md 6
// describes: both imply swarm mode, default id is "latest", and neither
// ever consumes a following flag as its id — cobra's NoOptDefVal handles
// that, so a bare --resume sets the flag to "latest" instead of swallowing
// whatever comes after it on the command line.
func resolveResumeID(cmd *cobra.Command, resumeFlag, swarmResumeFlag string) (id string, resuming bool) {
	if cmd.Flags().Changed("swarm-resume") {
		return defaultLatest(swarmResumeFlag), true
	}
	if cmd.Flags().Changed("resume") {
		return defaultLatest(resumeFlag), true
	}
	return "", false
}

func defaultLatest(v string) string {
	if v == "" {
		return "latest"
	}
	return v
}

func validateIsolation(isolation string) error {
	switch isolation {
	case "worktree", "docker", "none":
		return nil
	default:
		return fmt.Errorf("invalid --isolation %q: must be worktree, docker, or none", isolation)
	}
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	return config.LoadFromHome()
}

// runResumed looks up the checkpoint resumeID names ("latest" means the
// newest checkpoint across all sessions) and drives the orchestrator from
// there (spec.md 6 CLI surface `--resume [id]`/`--swarm-resume [id]`).
func runResumed(ctx context.Context, orch *swarm.Orchestrator, st *store.Store, resumeID string) (models.SwarmCheckpoint, error) {
	sessionID := resumeID
	if resumeID == "latest" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return models.SwarmCheckpoint{}, fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			return models.SwarmCheckpoint{}, fmt.Errorf("no prior session to resume")
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

	return orch.ResumeAndRun(ctx, checkpoint)
}

// reportOutcome maps a run's terminal state to the process exit code
// spec.md 6 names: 0 on overall success, 1 on failure, 2 on configuration
// error (already handled before any orchestrator work begins).
func reportOutcome(orch *swarm.Orchestrator, runErr error) error {
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return exitErr(1, runErr)
	}

	result := orch.ExecutionResult()
	if result.Failed > 0 && result.Completed == 0 {
		return exitErr(1, fmt.Errorf("run failed: %d/%d tasks failed", result.Failed, result.TotalTasks))
	}
	if result.Failed > 0 {
		return exitErr(1, fmt.Errorf("run partially failed: %d/%d tasks failed", result.Failed, result.TotalTasks))
	}
	return nil
}

// exitErr wraps err so main can translate it into the right process exit
// code (spec.md 6 CLI surface: 0/1/2).
func exitErr(code int, err error) error {
	return &cliError{code: code, err: err}
}

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }
func (e *cliError) ExitCode() int { return e.code }
