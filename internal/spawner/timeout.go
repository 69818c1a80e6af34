package spawner

import (
	"context"
	"time"

	"github.com/swarmforge/swarmcore/internal/cancel"
	"github.com/swarmforge/swarmcore/internal/models"
)

// Default timeout knobs (spec.md 4.G).
const (
	defaultSubagentTimeout = 300 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultWrapupWindow    = 30 * time.Second
)

// TimeoutConfig carries the per-type and global overrides the precedence
// chain in resolveSubagentTimeout consults.
type TimeoutConfig struct {
	AgentDefTimeout *time.Duration
	PerTypeConfig   map[models.TaskType]time.Duration
	PerTypeDefault  map[models.TaskType]time.Duration
	GlobalTimeout   *time.Duration
	IdleTimeout     time.Duration
	WrapupWindow    time.Duration
}

// resolveSubagentTimeout implements spec.md 4.G's precedence order:
// agent-def -> per-type config -> per-type default -> global config ->
// 300s.
func resolveSubagentTimeout(taskType models.TaskType, cfg TimeoutConfig) time.Duration {
	if cfg.AgentDefTimeout != nil {
		return *cfg.AgentDefTimeout
	}
	if d, ok := cfg.PerTypeConfig[taskType]; ok {
		return d
	}
	if d, ok := cfg.PerTypeDefault[taskType]; ok {
		return d
	}
	if cfg.GlobalTimeout != nil {
		return *cfg.GlobalTimeout
	}
	return defaultSubagentTimeout
}

func idleTimeout(cfg TimeoutConfig) time.Duration {
	if cfg.IdleTimeout > 0 {
		return cfg.IdleTimeout
	}
	return defaultIdleTimeout
}

func wrapupWindow(cfg TimeoutConfig) time.Duration {
	if cfg.WrapupWindow > 0 {
		return cfg.WrapupWindow
	}
	return defaultWrapupWindow
}

// buildGracefulSource constructs the child's graceful-timeout source,
// linked to any parent cancellation token, wiring its wrap-up warning to
// invoke requestWrapup and emit subagent.wrapup.started (spec.md 4.G). The
// callback is a plain func rather than a ChildAgent so the source can be
// built before the child itself exists (the child's config embeds the
// resulting token). The returned cleanup function must be called once the
// child has finished, win or lose.
func (s *Spawner) buildGracefulSource(ctx context.Context, parentToken cancel.Token, taskType models.TaskType, agentID string, agentDefTimeout *time.Duration, requestWrapup func(reason string)) (*cancel.GracefulSource, cancel.Token, func()) {
	cfg := s.timeouts
	if agentDefTimeout != nil {
		cfg.AgentDefTimeout = agentDefTimeout
	}
	timeout := resolveSubagentTimeout(taskType, cfg)
	deadline := time.Now().Add(timeout)

	graceful := cancel.NewGracefulSource(ctx, deadline, idleTimeout(s.timeouts), wrapupWindow(s.timeouts))
	graceful.OnWrapupWarning(func() {
		s.emit(models.EventSubagentWrapupStarted, map[string]interface{}{"agent_id": agentID})
		requestWrapup("Timeout approaching — produce structured summary")
	})

	var linkedCleanup func()
	token := graceful.Token()
	if parentToken != nil {
		var linked cancel.Token
		linked, linkedCleanup = cancel.Linked(ctx, graceful.Token(), parentToken)
		token = linked
	}

	cleanup := func() {
		if linkedCleanup != nil {
			linkedCleanup()
		}
		graceful.Dispose()
	}
	return graceful, token, cleanup
}
