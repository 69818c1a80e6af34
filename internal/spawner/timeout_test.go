package spawner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/swarmforge/swarmcore/internal/models"
)

func durPtr(d time.Duration) *time.Duration { return &d }

func TestResolveSubagentTimeoutAgentDefWins(t *testing.T) {
	cfg := TimeoutConfig{
		AgentDefTimeout: durPtr(5 * time.Second),
		PerTypeConfig:   map[models.TaskType]time.Duration{models.TaskImplement: time.Minute},
		GlobalTimeout:   durPtr(time.Hour),
	}
	assert.Equal(t, 5*time.Second, resolveSubagentTimeout(models.TaskImplement, cfg))
}

func TestResolveSubagentTimeoutPerTypeConfigBeatsPerTypeDefaultAndGlobal(t *testing.T) {
	cfg := TimeoutConfig{
		PerTypeConfig:  map[models.TaskType]time.Duration{models.TaskImplement: 2 * time.Minute},
		PerTypeDefault: map[models.TaskType]time.Duration{models.TaskImplement: 3 * time.Minute},
		GlobalTimeout:  durPtr(time.Hour),
	}
	assert.Equal(t, 2*time.Minute, resolveSubagentTimeout(models.TaskImplement, cfg))
}

func TestResolveSubagentTimeoutPerTypeDefaultBeatsGlobal(t *testing.T) {
	cfg := TimeoutConfig{
		PerTypeDefault: map[models.TaskType]time.Duration{models.TaskImplement: 3 * time.Minute},
		GlobalTimeout:  durPtr(time.Hour),
	}
	assert.Equal(t, 3*time.Minute, resolveSubagentTimeout(models.TaskImplement, cfg))
}

func TestResolveSubagentTimeoutGlobalBeatsDefault(t *testing.T) {
	cfg := TimeoutConfig{GlobalTimeout: durPtr(90 * time.Second)}
	assert.Equal(t, 90*time.Second, resolveSubagentTimeout(models.TaskImplement, cfg))
}

func TestResolveSubagentTimeoutFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultSubagentTimeout, resolveSubagentTimeout(models.TaskImplement, TimeoutConfig{}))
}

func TestIdleTimeoutFallback(t *testing.T) {
	assert.Equal(t, defaultIdleTimeout, idleTimeout(TimeoutConfig{}))
	assert.Equal(t, 5*time.Second, idleTimeout(TimeoutConfig{IdleTimeout: 5 * time.Second}))
}

func TestWrapupWindowFallback(t *testing.T) {
	assert.Equal(t, defaultWrapupWindow, wrapupWindow(TimeoutConfig{}))
	assert.Equal(t, 5*time.Second, wrapupWindow(TimeoutConfig{WrapupWindow: 5 * time.Second}))
}

func TestTimeoutConfigWithOverride(t *testing.T) {
	base := TimeoutConfig{GlobalTimeout: durPtr(time.Minute)}

	unchanged := timeoutConfigWithOverride(base, nil)
	assert.Nil(t, unchanged.AgentDefTimeout)

	overridden := timeoutConfigWithOverride(base, durPtr(10*time.Second))
	assert.Equal(t, 10*time.Second, *overridden.AgentDefTimeout)
}
