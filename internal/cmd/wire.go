package cmd

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/swarmforge/swarmcore/internal/agent"
	"github.com/swarmforge/swarmcore/internal/budgetpool"
	"github.com/swarmforge/swarmcore/internal/config"
	"github.com/swarmforge/swarmcore/internal/decomposer"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/logger"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/planner"
	"github.com/swarmforge/swarmcore/internal/policy"
	"github.com/swarmforge/swarmcore/internal/queue"
	"github.com/swarmforge/swarmcore/internal/spawner"
	"github.com/swarmforge/swarmcore/internal/store"
	"github.com/swarmforge/swarmcore/internal/swarm"
)

// runtimeFlags carries the CLI flag values shared by run/grade/compare
// (spec.md 6 "CLI surface").
type runtimeFlags struct {
	parallelism int
	isolation   string
	costLimit   float64
	taskIDs     []string
}

// buildRuntime assembles the full dependency graph a swarm run needs —
// store, event bus, narration, decomposer, spawner, orchestrator — from
// resolved config and CLI flags. Callers own closing the returned store
// and file logger.
func buildRuntime(cfg *config.Config, flags runtimeFlags, sessionID string) (*swarm.Orchestrator, *store.Store, *logger.FileLogger, error) {
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open session store: %w", err)
	}

	bus := events.NewBus(zap.NewNop(), sessionID)

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("open file logger: %w", err)
	}
	consoleLog := logger.NewConsoleLogger(logger.ConsoleConfigLike(cfg.Console), cfg.LogLevel)
	narrator := logger.NewMultiLogger(consoleLog, fileLog)

	swarmCfg := swarm.Config{
		MaxConcurrency:                 cfg.Swarm.MaxConcurrency,
		DispatchStagger:                cfg.Swarm.DispatchStagger,
		MaxRetries:                     cfg.Swarm.MaxRetries,
		ExpendableFraction:             cfg.Swarm.ExpendableFraction,
		EnableHollowTermination:        cfg.Swarm.EnableHollowTermination,
		HollowTerminationMinDispatches: cfg.Swarm.HollowTerminationMinDispatches,
		HollowTerminationRatio:         cfg.Swarm.HollowTerminationRatio,
		HollowStreakThreshold:          cfg.Swarm.HollowStreakThreshold,
	}
	if flags.parallelism > 0 {
		swarmCfg.MaxConcurrency = flags.parallelism
	}

	budget := resolveBudget(cfg, flags)

	pool := budgetpool.New(budget.MaxTokens, budget.MaxCost, swarmCfg.MaxConcurrency)
	policyEngine := policy.NewEngine()

	plannerClient := planner.NewClient(planner.Config{
		BaseURL: envOrDefault("SWARMCORE_PLANNER_URL", "http://localhost:8085/v1/chat"),
		APIKey:  envOrDefault("SWARMCORE_PLANNER_API_KEY", ""),
		Model:   envOrDefault("SWARMCORE_PLANNER_MODEL", "planner-default"),
		Timeout: 2 * time.Minute,
		Logger:  narrator,
	})

	decomp := decomposer.New(plannerClient, decomposer.DefaultConfig(), bus)

	repoRoot, err := os.Getwd()
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("resolve working directory: %w", err)
	}
	factory := agent.NewFactory(agent.FactoryConfig{
		Isolation: agent.Isolation(flags.isolation),
		RepoRoot:  repoRoot,
		Timeout:   cfg.Timeout,
	})

	sp := spawner.New(spawner.Config{
		Policy:  policyEngine,
		Bus:     bus,
		Factory: factory,
		Timeouts: spawner.TimeoutConfig{
			GlobalTimeout: &cfg.Timeout,
		},
		Pool: pool,
	})

	q := queue.New(bus)

	orch := swarm.New(swarm.OrchestratorConfig{
		Queue:        q,
		Decomposer:   decomp,
		Spawner:      sp,
		Pool:         pool,
		Bus:          bus,
		Logger:       narrator,
		Store:        st,
		SessionID:    sessionID,
		Config:       swarmCfg,
		TaskIDFilter: flags.taskIDs,
	})

	return orch, st, fileLog, nil
}

// resolveBudget picks the execution budget a swarm run is bounded by:
// --cost-limit overrides the configured default preset's cost ceiling,
// otherwise the default preset applies unchanged.
func resolveBudget(cfg *config.Config, flags runtimeFlags) models.ExecutionBudget {
	preset := models.BudgetPreset(cfg.DefaultBudgetPreset)
	budget, ok := models.Presets()[preset]
	if !ok {
		budget = models.Presets()[models.BudgetStandard]
	}
	if flags.costLimit > 0 {
		budget.MaxCost = flags.costLimit
		budget.SoftCostLimit = flags.costLimit * 0.75
	}
	return budget
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
