// Package swarm implements the checkpointable wave orchestrator (spec.md
// 4.I): plan once via the decomposer, then repeatedly dispatch every
// currently-ready task as a subagent up to a concurrency cap, collect
// results into the queue, and assess/adapt (checkpoint, budget triage,
// hollow-completion accounting, replan-on-stall) before the next round.
//
// Grounded on internal/executor/orchestrator.go's Plan -> Graph -> Waves ->
// Orchestrator -> WaveExecutor -> Results flow and internal/executor/wave.go's
// bounded-concurrency dispatch-and-collect loop, generalized from a fixed
// wave list computed once up front to a dynamically ready-driven queue,
// since conductor has no notion of a task re-entering readiness after a
// retry or a cascade-unskip.
package swarm

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/swarmforge/swarmcore/internal/budgetpool"
	"github.com/swarmforge/swarmcore/internal/decomposer"
	"github.com/swarmforge/swarmcore/internal/events"
	"github.com/swarmforge/swarmcore/internal/models"
	"github.com/swarmforge/swarmcore/internal/queue"
	"github.com/swarmforge/swarmcore/internal/spawner"
)

// CheckpointStore persists a checkpoint after every wave boundary
// (spec.md 5 "Ordering guarantees"). Optional; a nil Store in
// OrchestratorConfig skips persistence entirely.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, checkpoint models.SwarmCheckpoint) error
}

// OrchestratorConfig is everything New needs to build an Orchestrator.
type OrchestratorConfig struct {
	Queue      *queue.Queue
	Decomposer *decomposer.Decomposer
	Spawner    *spawner.Spawner
	Pool       *budgetpool.Pool
	Bus        *events.Bus
	Logger     Logger
	Store      CheckpointStore
	SessionID  string
	Config     Config
	// Tools is the full tool universe available to every dispatched
	// worker (spec.md 4.G "Tool filtering" starts from the parent's tool
	// universe intersected with the agent's declared set; the swarm
	// orchestrator is that parent for every task it dispatches, and task
	// decomposition does not itself narrow a per-task tool set).
	Tools []string
	// TaskIDFilter restricts a run to the named task IDs (spec.md 6 CLI
	// surface `--task-ids a,b,c`). Every decomposed task outside this set
	// is skipped immediately after planning. Empty means no restriction.
	TaskIDFilter []string
}

// Orchestrator drives one swarm run to completion, failure, or a resumable
// checkpoint. Not safe to share across concurrent Run calls.
type Orchestrator struct {
	mu sync.Mutex

	queue      *queue.Queue
	decomposer *decomposer.Decomposer
	spawner    *spawner.Spawner
	pool       *budgetpool.Pool
	bus        *events.Bus
	logger     Logger
	store      CheckpointStore
	sessionID  string
	config     Config
	tools      []string

	phase          models.SwarmPhase
	originalPrompt *string
	decisions      []models.SwarmDecision
	errs           []string
	finalResults   map[string]models.SwarmTaskResult

	dispatchCount int
	hollowCount   int
	hollowStreak  int

	staggerLimiter *rate.Limiter
	taskIDFilter   map[string]struct{}
}

// New constructs an Orchestrator from cfg.
func New(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	o := &Orchestrator{
		queue:        cfg.Queue,
		decomposer:   cfg.Decomposer,
		spawner:      cfg.Spawner,
		pool:         cfg.Pool,
		bus:          cfg.Bus,
		logger:       logger,
		store:        cfg.Store,
		sessionID:    cfg.SessionID,
		config:       cfg.Config,
		tools:        cfg.Tools,
		phase:        models.SwarmPlanning,
		finalResults: make(map[string]models.SwarmTaskResult),
	}
	if cfg.Config.DispatchStagger > 0 {
		o.staggerLimiter = rate.NewLimiter(rate.Every(cfg.Config.DispatchStagger), 1)
	}
	if len(cfg.TaskIDFilter) > 0 {
		o.taskIDFilter = make(map[string]struct{}, len(cfg.TaskIDFilter))
		for _, id := range cfg.TaskIDFilter {
			o.taskIDFilter[id] = struct{}{}
		}
	}
	return o
}

// Run executes the full plan/execute/assess/terminate lifecycle for goal
// (spec.md 4.I). It returns the final checkpoint on every terminal path,
// including context cancellation, so the caller can always persist and
// later resume.
func (o *Orchestrator) Run(ctx context.Context, goal, goalContext string) (models.SwarmCheckpoint, error) {
	o.plan(ctx, goal, goalContext)
	return o.drive(ctx, goal, goalContext)
}

// ResumeAndRun restores state from checkpoint (skipping decomposition,
// since the task graph already exists) and drives the same
// dispatch/assess loop Run uses to completion, failure, or a fresh
// resumable checkpoint (spec.md 6 CLI surface `--resume`/`--swarm-resume`).
func (o *Orchestrator) ResumeAndRun(ctx context.Context, checkpoint models.SwarmCheckpoint) (models.SwarmCheckpoint, error) {
	o.Resume(ctx, checkpoint)
	goal := ""
	if checkpoint.OriginalPrompt != nil {
		goal = *checkpoint.OriginalPrompt
	}
	return o.drive(ctx, goal, "")
}

// drive runs the dispatch/assess/checkpoint loop until no task is ready
// and the run is terminal, sharing the tail of Run and ResumeAndRun.
func (o *Orchestrator) drive(ctx context.Context, goal, goalContext string) (models.SwarmCheckpoint, error) {
	for {
		if err := ctx.Err(); err != nil {
			return o.checkpoint(), err
		}

		ready := o.queue.ReadyTasks()
		if len(ready) == 0 {
			if o.isTerminal() {
				break
			}
			if !o.replan(ctx, goal, goalContext) {
				break
			}
			continue
		}

		batch := ready
		if o.config.MaxConcurrency > 0 && len(batch) > o.config.MaxConcurrency {
			batch = batch[:o.config.MaxConcurrency]
		}

		wave := models.Wave{TaskIDs: batch, MaxConcurrency: o.config.MaxConcurrency}
		o.logger.LogWaveStart(wave)
		start := time.Now()
		results := o.dispatchBatch(ctx, batch)
		o.logger.LogWaveComplete(wave, time.Since(start), results)

		o.assess(ctx, goal, goalContext, results)

		cp := o.checkpoint()
		if o.store != nil {
			if err := o.store.SaveCheckpoint(ctx, cp); err != nil {
				o.emit(models.EventPersistenceWarning, map[string]interface{}{"operation": "checkpoint", "error": err.Error()})
			}
		}
	}

	o.finalize()
	return o.checkpoint(), nil
}

// plan implements spec.md 4.I step 1: decompose the goal and seed the
// queue. internal/decomposer never fails outright (it falls back to a
// deterministic heuristic skeleton internally), so there is no
// LLM-failure branch to handle here.
func (o *Orchestrator) plan(ctx context.Context, goal, goalContext string) {
	o.mu.Lock()
	o.phase = models.SwarmExecuting
	prompt := goal
	o.originalPrompt = &prompt
	o.mu.Unlock()

	result := o.decomposer.Decompose(ctx, goal, goalContext)
	o.queue.LoadFromDecomposition(result)
	o.applyTaskIDFilter()
}

// applyTaskIDFilter skips every decomposed task outside TaskIDFilter, when
// one was configured (spec.md 6 CLI surface `--task-ids`).
func (o *Orchestrator) applyTaskIDFilter() {
	if len(o.taskIDFilter) == 0 {
		return
	}
	for _, t := range o.queue.GetAllTasks() {
		if _, keep := o.taskIDFilter[t.ID]; !keep {
			o.queue.SkipTask(t.ID, "excluded by --task-ids")
		}
	}
}

// dispatchBatch runs every task in ids concurrently, staggering each
// dispatch by config.DispatchStagger to smooth token bursts (spec.md 4.I
// step 2). Grounded on internal/executor/wave.go's executeWave: a
// WaitGroup over per-task goroutines writing into a pre-sized slice by
// index, so result order matches ids regardless of completion order.
func (o *Orchestrator) dispatchBatch(ctx context.Context, ids []string) []models.SwarmTaskResult {
	results := make([]models.SwarmTaskResult, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		task, ok := o.queue.GetTask(id)
		if !ok {
			continue
		}
		_ = o.queue.MarkDispatched(id, modelForTask(task))

		wg.Add(1)
		go func(i int, task models.SwarmTask) {
			defer wg.Done()
			results[i] = o.runOne(ctx, task)
		}(i, task)

		if o.staggerLimiter != nil && i < len(ids)-1 {
			o.staggerLimiter.Wait(ctx)
		}
	}

	wg.Wait()
	return results
}

// runOne dispatches one task as a subagent (spec.md 4.G) and folds the
// result back into the queue (spec.md 4.I step 3 "Collect").
func (o *Orchestrator) runOne(ctx context.Context, task models.SwarmTask) models.SwarmTaskResult {
	req := spawner.SpawnRequest{
		Agent: spawner.AgentDefinition{
			Name:       agentNameForTask(task),
			Capability: string(task.Type),
			Tools:      o.tools,
		},
		Task:         task.Description,
		TaskType:     task.Type,
		ParentTools:  o.tools,
		SwarmContext: true,
	}
	if task.EstimatedTokens > 0 {
		req.Constraints = &spawner.Constraints{MaxTokens: int64(task.EstimatedTokens)}
	}

	started := time.Now()
	spawnResult, err := o.spawner.Spawn(ctx, req)

	result := models.SwarmTaskResult{Task: task, Duration: time.Since(started), RetryCount: task.Attempts}

	if err != nil {
		result.Status = models.StatusFailed
		result.Error = err
		retriesLeft := o.retriesLeft(task)
		_ = o.queue.MarkFailed(task.ID, retriesLeft)
		o.recordOutcome(result, retriesLeft)
		o.logger.LogTaskResult(result)
		return result
	}

	result.Output = spawnResult.Output
	result.ToolCalls = spawnResult.Metrics.ToolCalls
	result.FilesModified = spawnResult.FilesModified
	result.Structured = spawnResult.Structured

	if spawnResult.Success {
		if result.IsHollow() {
			result.Status = models.StatusYellow
		} else {
			result.Status = models.StatusGreen
		}
		_ = o.queue.MarkCompleted(task.ID, &result)
		o.recordOutcome(result, 0)
	} else {
		retriesLeft := o.retriesLeft(task)
		if retriesLeft > 0 {
			result.Status = models.StatusYellow
		} else {
			result.Status = models.StatusRed
		}
		_ = o.queue.MarkFailed(task.ID, retriesLeft)
		o.recordOutcome(result, retriesLeft)
	}

	o.logger.LogTaskResult(result)
	return result
}

// retriesLeft computes how many attempts remain for task, whose Attempts
// counter already includes the attempt just made (MarkDispatched
// increments it before the subagent runs).
func (o *Orchestrator) retriesLeft(task models.SwarmTask) int {
	left := o.config.MaxRetries - task.Attempts
	if left < 0 {
		return 0
	}
	return left
}

// recordOutcome updates the orchestrator's own bookkeeping that the queue
// does not carry: the last known result per task (for the final
// ExecutionResult), and the hollow-completion streak/ratio (spec.md 4.I
// "Hollow-completion accounting").
func (o *Orchestrator) recordOutcome(result models.SwarmTaskResult, retriesLeft int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.finalResults[result.Task.ID] = result

	if retriesLeft > 0 {
		// going back to ready; this attempt doesn't count toward the
		// hollow streak, since the task has not actually finished.
		return
	}
	o.dispatchCount++
	if result.IsHollow() {
		o.hollowCount++
		o.hollowStreak++
	} else {
		o.hollowStreak = 0
	}
}

// assess implements spec.md 4.I step 4: budget triage, hollow-completion
// accounting, and replan-on-stall, in that order. Because dispatchBatch is
// a full barrier (every dispatch in the batch completes before assess
// runs), there is never a "workers still running" case at this point in
// this port's dispatch model — every decision here is a budget-triage or
// early-termination decision, not a budget-wait.
func (o *Orchestrator) assess(ctx context.Context, goal, goalContext string, results []models.SwarmTaskResult) {
	o.budgetTriage()
	if o.hollowTerminate() {
		return
	}
	if o.madeNoProgress(results) {
		o.replan(ctx, goal, goalContext)
	}
}

// budgetTriage skips up to ceil(remaining * ExpendableFraction) expendable
// tasks in one pass when the pool reports it cannot fund another
// reservation (spec.md 4.I "Budget triage").
func (o *Orchestrator) budgetTriage() {
	if o.pool == nil || !o.pool.Insufficient() {
		return
	}

	all := o.queue.GetAllTasks()
	var remaining, expendable []string
	for _, t := range all {
		if t.Status.SatisfiesDependency() || t.Status == models.SubtaskFailed || t.Status == models.SubtaskSkipped {
			continue
		}
		remaining = append(remaining, t.ID)
		if t.IsExpendable(o.queue.HasDependents(t.ID)) {
			expendable = append(expendable, t.ID)
		}
	}
	if len(remaining) == 0 {
		return
	}

	limit := int(math.Ceil(float64(len(remaining)) * o.config.ExpendableFraction))
	if limit > len(expendable) {
		limit = len(expendable)
	}
	if limit <= 0 {
		return
	}

	for _, id := range expendable[:limit] {
		o.queue.SkipTask(id, "budget triage")
	}
	o.recordDecision("budget-triage", fmt.Sprintf("skipped %d expendable tasks", limit), expendable[:limit])
}

// hollowTerminate bulk-skips every remaining task when the hollow-streak or
// hollow-ratio threshold is crossed and enableHollowTermination is set
// (spec.md 4.I "Hollow-completion accounting"). With the flag unset it only
// emits a stall-warning decision and never bulk-skips.
func (o *Orchestrator) hollowTerminate() bool {
	o.mu.Lock()
	streak := o.hollowStreak
	dispatches := o.dispatchCount
	var ratio float64
	if dispatches > 0 {
		ratio = float64(o.hollowCount) / float64(dispatches)
	}
	o.mu.Unlock()

	triggered := streak >= o.config.HollowStreakThreshold ||
		(dispatches >= o.config.HollowTerminationMinDispatches && ratio >= o.config.HollowTerminationRatio)
	if !triggered {
		return false
	}

	if !o.config.EnableHollowTermination {
		o.recordDecision("stall-warning", fmt.Sprintf("hollow streak=%d ratio=%.2f", streak, ratio), nil)
		return false
	}

	var skipped []string
	for _, t := range o.queue.GetAllTasks() {
		if t.Status.SatisfiesDependency() || t.Status == models.SubtaskFailed || t.Status == models.SubtaskSkipped {
			continue
		}
		o.queue.SkipTask(t.ID, "early termination: hollow completions")
		skipped = append(skipped, t.ID)
	}
	o.recordDecision("early-termination", fmt.Sprintf("hollow streak=%d ratio=%.2f", streak, ratio), skipped)
	return true
}

// madeNoProgress reports whether a batch produced nothing but retriable
// failures — the signal that triggers a replan attempt.
func (o *Orchestrator) madeNoProgress(results []models.SwarmTaskResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Status == models.StatusGreen || r.Status == models.StatusYellow {
			return false
		}
	}
	return true
}

// replan requests a fresh decomposition and inserts the result as a rescue
// wave (spec.md 4.I "Replan"). Returns false if the fresh decomposition
// produced nothing new to try, so the caller should stop instead of
// looping forever.
func (o *Orchestrator) replan(ctx context.Context, goal, goalContext string) bool {
	result := o.decomposer.Decompose(ctx, goal, goalContext+"\n\nPrevious attempt stalled; avoid repeating failed approaches.")
	if len(result.Subtasks) == 0 {
		return false
	}

	nextWave := 0
	for _, t := range o.queue.GetAllTasks() {
		if t.Wave >= nextWave {
			nextWave = t.Wave + 1
		}
	}
	o.queue.AddReplanTasks(result.Subtasks, nextWave)
	o.recordDecision("replan", "requested fresh decomposition after stall", nil)
	return true
}

// isTerminal reports whether no task is ready or blocked — nothing further
// can ever become dispatchable (spec.md 4.I step 5).
func (o *Orchestrator) isTerminal() bool {
	for _, t := range o.queue.GetAllTasks() {
		if t.Status == models.SubtaskReady || t.Status == models.SubtaskBlocked || t.Status == models.SubtaskInProgress {
			return false
		}
	}
	return true
}

// finalize sets the orchestrator's terminal phase: failed if any
// foundation task did not complete, completed otherwise.
func (o *Orchestrator) finalize() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.phase = models.SwarmCompleted
	for _, t := range o.queue.GetAllTasks() {
		if t.IsFoundation && t.Status == models.SubtaskFailed {
			o.phase = models.SwarmFailed
			break
		}
	}
}

// checkpoint snapshots the orchestrator's full resumable state (spec.md 3
// "Swarm checkpoint").
func (o *Orchestrator) checkpoint() models.SwarmCheckpoint {
	o.mu.Lock()
	phase := o.phase
	decisions := append([]models.SwarmDecision(nil), o.decisions...)
	errs := append([]string(nil), o.errs...)
	originalPrompt := o.originalPrompt
	o.mu.Unlock()

	tasks, waves := o.queue.GetCheckpointState()
	return models.SwarmCheckpoint{
		SessionID:      o.sessionID,
		Timestamp:      time.Now(),
		Phase:          phase,
		TaskStates:     tasks,
		Waves:          waves,
		Stats:          o.queue.GetStats(),
		Decisions:      decisions,
		Errors:         errs,
		OriginalPrompt: originalPrompt,
	}
}

// Resume restores the queue from a prior checkpoint (spec.md 4.I
// "Resume"): any failed task returns to ready preserving its attempt
// count, then every dependency that is now completed or decomposed
// un-skips its transitive skipped dependents.
func (o *Orchestrator) Resume(ctx context.Context, checkpoint models.SwarmCheckpoint) {
	o.mu.Lock()
	o.phase = checkpoint.Phase
	o.originalPrompt = checkpoint.OriginalPrompt
	o.decisions = append([]models.SwarmDecision(nil), checkpoint.Decisions...)
	o.errs = append([]string(nil), checkpoint.Errors...)
	o.mu.Unlock()

	tasks := make([]models.SwarmTask, len(checkpoint.TaskStates))
	copy(tasks, checkpoint.TaskStates)
	for i := range tasks {
		if tasks[i].Status == models.SubtaskFailed {
			tasks[i].Status = models.SubtaskReady
		}
	}
	o.queue.RestoreFromCheckpoint(tasks, checkpoint.Waves)

	for _, t := range tasks {
		if t.Status.SatisfiesDependency() {
			o.queue.UnSkipDependents(t.ID)
		}
	}
}

// ExecutionResult aggregates every task's last known outcome into the
// summary report (spec.md 3 "ExecutionResult").
func (o *Orchestrator) ExecutionResult() *models.ExecutionResult {
	o.mu.Lock()
	results := make([]models.SwarmTaskResult, 0, len(o.finalResults))
	for _, r := range o.finalResults {
		results = append(results, r)
	}
	total := time.Duration(0)
	o.mu.Unlock()

	for _, r := range results {
		total += r.Duration
	}
	er := models.NewExecutionResult(results, total)
	o.logger.LogSummary(*er)
	return er
}

func (o *Orchestrator) recordDecision(kind, reason string, taskIDs []string) {
	o.mu.Lock()
	decision := models.SwarmDecision{Timestamp: time.Now(), Kind: kind, Reason: reason, TaskIDs: taskIDs}
	o.decisions = append(o.decisions, decision)
	o.mu.Unlock()
	o.logger.LogDecision(decision)
	o.emit(models.EventSwarmOrchestratorDecision, map[string]interface{}{"kind": kind, "reason": reason, "task_ids": taskIDs})
}

func (o *Orchestrator) emit(kind models.EventKind, payload map[string]interface{}) {
	if o.bus == nil {
		return
	}
	o.bus.Emit(models.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

func agentNameForTask(task models.SwarmTask) string {
	if task.SuggestedRole != "" {
		return task.SuggestedRole
	}
	return "worker"
}

func modelForTask(task models.SwarmTask) string {
	if task.Model != "" {
		return task.Model
	}
	return "default"
}
