// Package economics tracks one agent's token/cost/duration/iteration
// consumption against its budget, detects stuck and saturated states, and
// drives the exploring->acting->verifying phase machine (spec.md 4.C).
// Grounded on the teacher's internal/budget package: UsageTracker's
// cost-from-pricing-table computation (tracker.go), and the
// pause/resume-duration idea behind internal/budget/state.go's paused
// execution states, generalized from a whole-run pause to the
// per-span pause the spec's duration accounting calls for.
package economics

import (
	"fmt"
	"sync"
	"time"

	"github.com/swarmforge/swarmcore/internal/errs"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
)

// SuggestedAction is the advisory verdict checkBudget returns alongside
// canContinue (spec.md 4.C).
type SuggestedAction string

const (
	ActionContinue         SuggestedAction = "continue"
	ActionStop             SuggestedAction = "stop"
	ActionRequestExtension SuggestedAction = "request_extension"
)

// CheckResult is checkBudget's return value (spec.md 4.C).
type CheckResult struct {
	CanContinue     bool
	IsHardLimit     bool
	IsSoftLimit     bool
	BudgetType      errs.BudgetDimension
	SuggestedAction SuggestedAction
	ForceTextOnly   bool
	InjectedPrompt  string
}

// PhaseBudgetConfig names the two phase-budget thresholds spec.md 4.C item
// 8 checks without pinning a default value; SPEC_FULL.md 5 resolves the
// open question of what those defaults are.
type PhaseBudgetConfig struct {
	MaxExplorationPercent       float64
	ReservedVerificationPercent float64
}

// DefaultPhaseBudgetConfig is the Open Question resolution recorded in
// DESIGN.md: 40% of iterations reserved as an exploration ceiling, 15% of
// the remaining budget reserved for verification.
func DefaultPhaseBudgetConfig() PhaseBudgetConfig {
	return PhaseBudgetConfig{MaxExplorationPercent: 0.40, ReservedVerificationPercent: 0.15}
}

// ExtensionHandler is the registered callback requestExtension invokes. It
// receives the current usage, the current budget, and the suggested delta
// (1.5x the breached dimension), and returns either a partial budget to
// apply as a component-wise increase, or nil to deny. A returned error also
// denies (spec.md 4.C).
type ExtensionHandler func(usage models.ExecutionUsage, budget models.ExecutionBudget, suggestedDelta models.ExecutionBudget) (*models.ExecutionBudget, error)

// Manager is the per-agent economics tracker. Not safe to share across
// agents; one Manager owns one budget, per spec.md 3's ownership rule.
type Manager struct {
	mu sync.Mutex

	agentID     string
	budget      models.ExecutionBudget
	usage       models.ExecutionUsage
	pricing     map[string]ModelPricing
	phase       models.PhaseState
	phaseBudget PhaseBudgetConfig
	progress    *models.ProgressState
	stuck       *stuckDetector

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	stuckFlag   bool

	extensionHandler ExtensionHandler
	bus              *events.Bus
}

// NewManager creates a Manager for agentID starting from budget, emitting
// events on bus (pass nil for a no-op bus via events.NewBus(nil, "")).
func NewManager(agentID string, budget models.ExecutionBudget, bus *events.Bus) *Manager {
	return &Manager{
		agentID:     agentID,
		budget:      budget,
		pricing:     DefaultPricing(),
		phase:       models.NewPhaseState(),
		phaseBudget: DefaultPhaseBudgetConfig(),
		progress:    models.NewProgressState(),
		stuck:       newStuckDetector(),
		startedAt:   time.Now(),
		bus:         bus,
	}
}

// SetExtensionHandler registers the handler requestExtension invokes.
func (m *Manager) SetExtensionHandler(h ExtensionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extensionHandler = h
}

// RecordLLMUsage implements spec.md 4.C's cost rule: actualCost wins when
// provided (>= 0), otherwise cost is computed from the pricing table,
// contributing zero for an unrecognized model.
func (m *Manager) RecordLLMUsage(inputTokens, outputTokens int64, model string, actualCost *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage.InputTokens += inputTokens
	m.usage.OutputTokens += outputTokens
	m.usage.Tokens = m.usage.InputTokens + m.usage.OutputTokens
	m.usage.LLMCalls++

	if actualCost != nil {
		m.usage.Cost += *actualCost
	} else {
		m.usage.Cost += cost(m.pricing, model, inputTokens, outputTokens)
	}
}

// RecordToolCall records one iteration's worth of tool-call bookkeeping:
// fingerprint repeats, files touched, and test outcomes feed the
// stuckness/exploration/phase checks in CheckBudget.
func (m *Manager) RecordToolCall(fingerprint string, filesRead, filesModified []string, ranTest bool, testPassed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage.Iterations++
	for _, f := range filesRead {
		m.progress.FilesRead[f] = struct{}{}
	}
	for _, f := range filesModified {
		m.progress.FilesModified[f] = struct{}{}
	}
	if len(filesModified) > 0 {
		m.progress.MarkProgress(time.Now())
	}
	if ranTest {
		m.phase.TestsRun++
		m.phase.LastTestPassed = testPassed
		if testPassed {
			m.phase.ConsecutiveTestFailures = 0
		} else {
			m.phase.ConsecutiveTestFailures++
		}
	}
	run := m.progress.RecordFingerprint(fingerprint)
	m.stuckFlag = m.stuck.observeFingerprintRun(run)
}

// PauseDuration/ResumeDuration exclude a paused span from effective
// duration. Double-pause and resume-without-pause are idempotent no-ops
// (spec.md 4.C).
func (m *Manager) PauseDuration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pausedAt.IsZero() {
		return
	}
	m.pausedAt = time.Now()
}

func (m *Manager) ResumeDuration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pausedAt.IsZero() {
		return
	}
	m.pausedTotal += time.Since(m.pausedAt)
	m.pausedAt = time.Time{}
}

func (m *Manager) effectiveDuration(now time.Time) time.Duration {
	paused := m.pausedTotal
	if !m.pausedAt.IsZero() {
		paused += now.Sub(m.pausedAt)
	}
	return now.Sub(m.startedAt) - paused
}

// Usage returns a copy of the current usage counters.
func (m *Manager) Usage() models.ExecutionUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Budget returns a copy of the current budget.
func (m *Manager) Budget() models.ExecutionBudget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budget
}

// CheckBudget implements spec.md 4.C's nine-step decision order.
func (m *Manager) CheckBudget() CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	duration := m.effectiveDuration(now)

	// 1. Hard limits.
	if m.usage.Tokens >= m.budget.MaxTokens {
		return m.hardStop(errs.DimensionTokens)
	}
	if m.usage.Cost >= m.budget.MaxCost {
		return m.hardStop(errs.DimensionCost)
	}
	if duration >= m.budget.MaxDuration {
		return m.hardStop(errs.DimensionDuration)
	}

	// 2. Max iterations.
	if m.usage.Iterations >= m.budget.MaxIterations {
		m.emit(models.EventBudgetWarning, map[string]interface{}{"dimension": "iterations"})
		return CheckResult{
			CanContinue: true, IsHardLimit: false, IsSoftLimit: true,
			BudgetType: errs.DimensionIterations, SuggestedAction: ActionContinue,
			ForceTextOnly:  true,
			InjectedPrompt: "Iteration budget reached. Finalize your work now: summarize what was accomplished without any further tool calls.",
		}
	}

	// 3 & 4. Soft limits.
	if res, ok := m.checkSoftLimits(duration); ok {
		return res
	}

	// 5. Stuckness.
	idleFor := m.progress.IdleFor(now)
	if m.stuckFlag || idleStuck(idleFor, m.usage.Iterations) {
		m.emit(models.EventProgressStuck, map[string]interface{}{"idle_for_ms": idleFor.Milliseconds()})
		return CheckResult{
			CanContinue: true, SuggestedAction: ActionRequestExtension,
			InjectedPrompt: "Progress appears stuck: the same action has repeated or nothing has changed recently. Try a materially different approach before continuing.",
		}
	}

	// 6. Exploration saturation.
	if len(m.progress.FilesRead) >= 10 && len(m.progress.FilesModified) == 0 {
		m.emit(models.EventExplorationSaturation, map[string]interface{}{"files_read": len(m.progress.FilesRead)})
		return CheckResult{
			CanContinue: true, SuggestedAction: ActionContinue,
			InjectedPrompt: "Enough exploration has happened without any edits. Start editing the relevant files now.",
		}
	}

	// 7. Repeated test failures.
	if m.phase.ConsecutiveTestFailures >= 3 {
		return CheckResult{
			CanContinue: true, SuggestedAction: ActionContinue,
			InjectedPrompt: "The same tests have failed three times in a row. Try a different strategy rather than repeating the last fix.",
		}
	}

	// 8. Phase-budget violations.
	if res, ok := m.checkPhaseBudget(); ok {
		return res
	}

	// 9. Otherwise.
	return CheckResult{CanContinue: true, SuggestedAction: ActionContinue}
}

func (m *Manager) hardStop(dim errs.BudgetDimension) CheckResult {
	m.emit(models.EventBudgetExceeded, map[string]interface{}{"dimension": string(dim)})
	return CheckResult{CanContinue: false, IsHardLimit: true, BudgetType: dim, SuggestedAction: ActionStop}
}

func (m *Manager) checkSoftLimits(duration time.Duration) (CheckResult, bool) {
	type dim struct {
		name errs.BudgetDimension
		used float64
		soft float64
		hard float64
	}
	dims := []dim{
		{errs.DimensionTokens, float64(m.usage.Tokens), float64(m.budget.SoftTokenLimit), float64(m.budget.MaxTokens)},
		{errs.DimensionCost, m.usage.Cost, m.budget.SoftCostLimit, m.budget.MaxCost},
		{errs.DimensionDuration, float64(duration), float64(m.budget.SoftDurationLimit), float64(m.budget.MaxDuration)},
	}
	for _, d := range dims {
		if d.hard <= 0 {
			continue
		}
		ratio := d.used / d.hard
		if ratio >= 0.80 {
			m.emit(models.EventBudgetWarning, map[string]interface{}{"dimension": string(d.name), "ratio": ratio})
			return CheckResult{
				CanContinue: true, IsSoftLimit: true, BudgetType: d.name, SuggestedAction: ActionStop,
				ForceTextOnly:  true,
				InjectedPrompt: "Budget is nearly exhausted. Wrap up urgently: no further exploratory tool calls, finish and summarize.",
			}, true
		}
		if ratio >= 0.67 {
			m.emit(models.EventBudgetWarning, map[string]interface{}{"dimension": string(d.name), "ratio": ratio})
			return CheckResult{
				CanContinue: true, IsSoftLimit: true, BudgetType: d.name, SuggestedAction: ActionRequestExtension,
			}, true
		}
	}
	return CheckResult{}, false
}

func (m *Manager) checkPhaseBudget() (CheckResult, bool) {
	if m.budget.MaxIterations <= 0 {
		return CheckResult{}, false
	}
	explorationShare := float64(explorationIterations(m.phase)) / float64(m.budget.MaxIterations)
	if explorationShare > m.phaseBudget.MaxExplorationPercent {
		m.emit(models.EventPhaseTransition, map[string]interface{}{"reason": "exploration-share-exceeded"})
		return CheckResult{
			CanContinue: true, SuggestedAction: ActionContinue,
			InjectedPrompt: "Exploration has used more than its share of the iteration budget. Move to acting on what's already been learned.",
		}, true
	}

	remainingShare := float64(m.budget.MaxIterations-m.usage.Iterations) / float64(m.budget.MaxIterations)
	if remainingShare <= m.phaseBudget.ReservedVerificationPercent && m.phase.TestsRun == 0 {
		return CheckResult{
			CanContinue: true, SuggestedAction: ActionContinue,
			InjectedPrompt: "Remaining budget is within the verification reserve and no tests have run yet. Run tests before continuing further changes.",
		}, true
	}
	return CheckResult{}, false
}

// explorationIterations approximates the "exploration iteration share" as
// the count of unique files read before the first file modification;
// without a full per-iteration phase log this is the best signal the
// tracked counters give us.
func explorationIterations(p models.PhaseState) int {
	if p.Current != models.PhaseExploring {
		return 0
	}
	return p.UniqueFilesRead
}

// RequestExtension implements spec.md 4.C's extension protocol: invokes
// the registered handler with a suggested 1.5x delta on the breached
// dimension; a nil return, a thrown error, or no registered handler all
// deny. A granted extension only ever increases limits.
func (m *Manager) RequestExtension(reason errs.BudgetDimension) (granted bool, err error) {
	m.mu.Lock()
	handler := m.extensionHandler
	usage := m.usage
	budget := m.budget
	m.mu.Unlock()

	m.emit(models.EventExtensionRequested, map[string]interface{}{"dimension": string(reason)})

	if handler == nil {
		m.emit(models.EventExtensionDenied, map[string]interface{}{"dimension": string(reason), "why": "no handler registered"})
		return false, nil
	}

	delta := suggestedDelta(budget, reason)
	result, hErr := safeInvokeHandler(handler, usage, budget, delta)
	if hErr != nil || result == nil {
		m.emit(models.EventExtensionDenied, map[string]interface{}{"dimension": string(reason)})
		return false, hErr
	}

	m.mu.Lock()
	m.budget = m.budget.Increase(*result)
	m.mu.Unlock()
	m.emit(models.EventExtensionGranted, map[string]interface{}{"dimension": string(reason)})
	return true, nil
}

func safeInvokeHandler(h ExtensionHandler, usage models.ExecutionUsage, budget models.ExecutionBudget, delta models.ExecutionBudget) (result *models.ExecutionBudget, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("economics: extension handler panicked: %v", r)
		}
	}()
	return h(usage, budget, delta)
}

func suggestedDelta(budget models.ExecutionBudget, dim errs.BudgetDimension) models.ExecutionBudget {
	const factor = 1.5
	delta := models.ExecutionBudget{}
	switch dim {
	case errs.DimensionTokens:
		delta.MaxTokens = int64(float64(budget.MaxTokens) * factor)
	case errs.DimensionCost:
		delta.MaxCost = budget.MaxCost * factor
	case errs.DimensionDuration:
		delta.MaxDuration = time.Duration(float64(budget.MaxDuration) * factor)
	case errs.DimensionIterations:
		delta.MaxIterations = int(float64(budget.MaxIterations) * factor)
	}
	return delta
}

func (m *Manager) emit(kind models.EventKind, payload map[string]interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(models.Event{Kind: kind, Timestamp: time.Now(), SessionID: m.agentID, Payload: payload})
}
