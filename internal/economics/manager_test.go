package economics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swarmforge/swarmcore/internal/errs"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

func bigBudget() models.ExecutionBudget {
	return models.ExecutionBudget{
		MaxTokens:     10_000_000,
		MaxCost:       1000,
		MaxDuration:   time.Hour,
		MaxIterations: 100,
	}
}

func newTestManager(budget models.ExecutionBudget) *Manager {
	return NewManager("agent-1", budget, events.NewBus(zap.NewNop(), "sess-1"))
}

func TestRecordLLMUsagePrefersActualCostOverPricingTable(t *testing.T) {
	m := newTestManager(bigBudget())
	actual := 2.5
	m.RecordLLMUsage(1000, 500, "claude-opus-4-5-20251101", &actual)

	usage := m.Usage()
	assert.Equal(t, int64(1500), usage.Tokens)
	assert.Equal(t, 1, usage.LLMCalls)
	assert.Equal(t, 2.5, usage.Cost)
}

func TestRecordLLMUsageComputesCostFromPricingTable(t *testing.T) {
	m := newTestManager(bigBudget())
	m.RecordLLMUsage(1000, 1000, "claude-3-5-haiku-20241022", nil)

	usage := m.Usage()
	assert.InDelta(t, 0.001+0.005, usage.Cost, 1e-9)
}

func TestRecordLLMUsageUnknownModelContributesZeroCost(t *testing.T) {
	m := newTestManager(bigBudget())
	m.RecordLLMUsage(1000, 1000, "unknown-model", nil)

	assert.Equal(t, 0.0, m.Usage().Cost)
}

func TestCheckBudgetHardStopOnTokens(t *testing.T) {
	budget := bigBudget()
	budget.MaxTokens = 100
	m := newTestManager(budget)
	m.RecordLLMUsage(100, 0, "unknown-model", nil)

	result := m.CheckBudget()
	assert.False(t, result.CanContinue)
	assert.True(t, result.IsHardLimit)
	assert.Equal(t, errs.DimensionTokens, result.BudgetType)
	assert.Equal(t, ActionStop, result.SuggestedAction)
}

func TestCheckBudgetHardStopOnCost(t *testing.T) {
	budget := bigBudget()
	budget.MaxCost = 1.0
	m := newTestManager(budget)
	actual := 1.5
	m.RecordLLMUsage(1, 1, "claude-opus-4-5-20251101", &actual)

	result := m.CheckBudget()
	assert.False(t, result.CanContinue)
	assert.Equal(t, errs.DimensionCost, result.BudgetType)
}

func TestCheckBudgetMaxIterationsForcesTextOnly(t *testing.T) {
	budget := bigBudget()
	budget.MaxIterations = 1
	m := newTestManager(budget)
	m.RecordToolCall("fp-1", nil, nil, false, false)

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.True(t, result.ForceTextOnly)
	assert.Equal(t, errs.DimensionIterations, result.BudgetType)
}

func TestCheckBudgetSoftLimitAtEightyPercentForcesTextOnly(t *testing.T) {
	budget := bigBudget()
	budget.MaxTokens = 100
	m := newTestManager(budget)
	m.RecordLLMUsage(81, 0, "unknown-model", nil)

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.True(t, result.IsSoftLimit)
	assert.True(t, result.ForceTextOnly)
	assert.Equal(t, ActionStop, result.SuggestedAction)
}

func TestCheckBudgetSoftLimitAtSixtySevenPercentSuggestsExtension(t *testing.T) {
	budget := bigBudget()
	budget.MaxTokens = 100
	m := newTestManager(budget)
	m.RecordLLMUsage(70, 0, "unknown-model", nil)

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.True(t, result.IsSoftLimit)
	assert.Equal(t, ActionRequestExtension, result.SuggestedAction)
}

func TestCheckBudgetDetectsStuckAfterRepeatedFingerprint(t *testing.T) {
	m := newTestManager(bigBudget())
	for i := 0; i < 3; i++ {
		m.RecordToolCall("same-fingerprint", nil, nil, false, false)
	}

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.Equal(t, ActionRequestExtension, result.SuggestedAction)
	assert.Contains(t, result.InjectedPrompt, "stuck")
}

func TestCheckBudgetFlagsExplorationSaturation(t *testing.T) {
	m := newTestManager(bigBudget())
	for i := 0; i < 10; i++ {
		m.progress.FilesRead[string(rune('a'+i))] = struct{}{}
	}

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.Contains(t, result.InjectedPrompt, "editing")
}

func TestCheckBudgetFlagsRepeatedTestFailures(t *testing.T) {
	m := newTestManager(bigBudget())
	for i := 0; i < 3; i++ {
		m.RecordToolCall(fmt.Sprintf("fp-%d", i), nil, nil, true, false)
	}

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.Contains(t, result.InjectedPrompt, "three times")
}

func TestCheckBudgetFlagsVerificationReserveWhenNoTestsRun(t *testing.T) {
	budget := bigBudget()
	m := newTestManager(budget)
	m.usage.Iterations = 90

	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.Contains(t, result.InjectedPrompt, "Run tests")
}

func TestCheckBudgetOtherwiseContinues(t *testing.T) {
	m := newTestManager(bigBudget())
	result := m.CheckBudget()
	assert.True(t, result.CanContinue)
	assert.Equal(t, ActionContinue, result.SuggestedAction)
	assert.Empty(t, result.InjectedPrompt)
}

func TestPauseResumeDurationExcludesPausedSpan(t *testing.T) {
	m := newTestManager(bigBudget())
	m.PauseDuration()
	time.Sleep(20 * time.Millisecond)
	m.ResumeDuration()

	d := m.effectiveDuration(time.Now())
	assert.Less(t, d, 20*time.Millisecond)
}

func TestPauseResumeAreIdempotent(t *testing.T) {
	m := newTestManager(bigBudget())
	m.PauseDuration()
	m.PauseDuration()
	m.ResumeDuration()
	m.ResumeDuration()
	assert.NotPanics(t, func() { m.effectiveDuration(time.Now()) })
}

func TestRequestExtensionDeniedWithNoHandler(t *testing.T) {
	m := newTestManager(bigBudget())
	granted, err := m.RequestExtension(errs.DimensionTokens)
	assert.NoError(t, err)
	assert.False(t, granted)
}

func TestRequestExtensionGrantedIncreasesBudget(t *testing.T) {
	m := newTestManager(bigBudget())
	m.SetExtensionHandler(func(usage models.ExecutionUsage, budget models.ExecutionBudget, delta models.ExecutionBudget) (*models.ExecutionBudget, error) {
		return &delta, nil
	})

	before := m.Budget().MaxTokens
	granted, err := m.RequestExtension(errs.DimensionTokens)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Greater(t, m.Budget().MaxTokens, before)
}

func TestRequestExtensionDeniedWhenHandlerReturnsError(t *testing.T) {
	m := newTestManager(bigBudget())
	m.SetExtensionHandler(func(models.ExecutionUsage, models.ExecutionBudget, models.ExecutionBudget) (*models.ExecutionBudget, error) {
		return nil, errors.New("denied by policy")
	})

	granted, err := m.RequestExtension(errs.DimensionCost)
	assert.Error(t, err)
	assert.False(t, granted)
}

func TestRequestExtensionSurvivesHandlerPanic(t *testing.T) {
	m := newTestManager(bigBudget())
	m.SetExtensionHandler(func(models.ExecutionUsage, models.ExecutionBudget, models.ExecutionBudget) (*models.ExecutionBudget, error) {
		panic("boom")
	})

	granted, err := m.RequestExtension(errs.DimensionDuration)
	assert.Error(t, err)
	assert.False(t, granted)
}

func TestSuggestedDeltaScalesBreachedDimensionOnly(t *testing.T) {
	budget := models.ExecutionBudget{MaxTokens: 100, MaxCost: 10, MaxDuration: time.Minute, MaxIterations: 20}
	delta := suggestedDelta(budget, errs.DimensionTokens)
	assert.Equal(t, int64(150), delta.MaxTokens)
	assert.Equal(t, 0.0, delta.MaxCost)
}
