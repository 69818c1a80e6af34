// Package logger prints and persists swarmcore's run narration: console
// output for a human watching a run, file output for later inspection
// (SPEC_FULL.md 2 "Logging"). ConsoleLogger implements swarm.Logger (so the
// wave orchestrator can report wave/task/decision/summary events without
// importing this package) and budget.WaiterLogger (so internal/planner's
// rate-limit wait can narrate its countdown).
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/swarmforge/swarmcore/internal/models"
)

// ConsoleLogger writes colorized, level-filtered run narration to a
// terminal (or any io.Writer for tests).
type ConsoleLogger struct {
	out      io.Writer
	cfg      ConsoleConfigLike
	logLevel string
	verbose  bool
	mu       sync.Mutex
}

// ConsoleConfigLike is the subset of config.ConsoleConfig ConsoleLogger
// reads, kept local so this package doesn't import internal/config.
type ConsoleConfigLike struct {
	EnableColor       bool
	EnableProgressBar bool
	EnableTaskDetails bool
	CompactMode       bool
	ShowAgentNames    bool
	ShowFileCounts    bool
	ShowDurations     bool
}

// DefaultConsoleConfigLike mirrors config.DefaultConsoleConfig's values.
func DefaultConsoleConfigLike() ConsoleConfigLike {
	return ConsoleConfigLike{
		EnableColor:       true,
		EnableProgressBar: true,
		EnableTaskDetails: true,
		ShowAgentNames:    true,
		ShowFileCounts:    true,
		ShowDurations:     true,
	}
}

// NewConsoleLogger creates a ConsoleLogger writing to stdout, with color
// auto-disabled when stdout is not a TTY.
func NewConsoleLogger(cfg ConsoleConfigLike, logLevel string) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stdout, cfg, logLevel)
}

// NewConsoleLoggerTo creates a ConsoleLogger writing to an arbitrary
// io.Writer, used directly by tests.
func NewConsoleLoggerTo(out io.Writer, cfg ConsoleConfigLike, logLevel string) *ConsoleLogger {
	if cfg.EnableColor {
		if f, ok := out.(*os.File); ok {
			cfg.EnableColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return &ConsoleLogger{
		out:      out,
		cfg:      cfg,
		logLevel: normalizeLogLevel(logLevel),
	}
}

// SetVerbose toggles whether per-task detail (output, file list) is shown
// regardless of CompactMode.
func (cl *ConsoleLogger) SetVerbose(v bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.verbose = v
}

// IsVerbose reports the current verbosity setting.
func (cl *ConsoleLogger) IsVerbose() bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.verbose
}

func (cl *ConsoleLogger) shouldLog(level string) bool {
	return logLevelToInt(level) >= logLevelToInt(cl.logLevel)
}

func (cl *ConsoleLogger) write(s string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	fmt.Fprint(cl.out, s)
}

func (cl *ConsoleLogger) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if !cl.shouldLog(level) {
		return
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", cl.timestamp(), strings.ToUpper(level), message))
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) { cl.logWithLevel("trace", message) }

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) { cl.logWithLevel("debug", message) }

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) { cl.logWithLevel("info", message) }

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) { cl.logWithLevel("warn", message) }

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) { cl.logWithLevel("error", message) }

// Infof formats and logs an info-level message.
func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.LogInfo(fmt.Sprintf(format, args...))
}

// Warnf formats and logs a warning-level message.
func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.LogWarn(fmt.Sprintf(format, args...))
}

// Errorf formats and logs an error-level message.
func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.LogError(fmt.Sprintf(format, args...))
}

// LogWaveStart implements swarm.Logger.
func (cl *ConsoleLogger) LogWaveStart(wave models.Wave) {
	if !cl.shouldLog("info") {
		return
	}
	taskLabel := "task"
	if len(wave.TaskIDs) != 1 {
		taskLabel = "tasks"
	}
	cl.write(fmt.Sprintf("[%s] Wave %d: %d %s (max concurrency %d)\n",
		cl.timestamp(), wave.Index, len(wave.TaskIDs), taskLabel, wave.MaxConcurrency))
}

// LogWaveComplete implements swarm.Logger.
func (cl *ConsoleLogger) LogWaveComplete(wave models.Wave, duration time.Duration, results []models.SwarmTaskResult) {
	if !cl.shouldLog("info") {
		return
	}
	scheme := newColorScheme()
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}

	var parts []string
	for _, status := range []string{models.StatusGreen, models.StatusYellow, models.StatusRed, models.StatusFailed} {
		if counts[status] == 0 {
			continue
		}
		if cl.cfg.EnableColor {
			parts = append(parts, formatStatusCount(status, counts[status], scheme))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %d", status, counts[status]))
		}
	}

	cl.write(fmt.Sprintf("[%s] Wave %d complete in %.1fs (%s)\n",
		cl.timestamp(), wave.Index, duration.Seconds(), strings.Join(parts, ", ")))
}

// LogTaskResult implements swarm.Logger.
func (cl *ConsoleLogger) LogTaskResult(result models.SwarmTaskResult) {
	if !cl.shouldLog("info") {
		return
	}

	icon := statusIcon(result.Status)
	line := fmt.Sprintf("[%s] %s %s", cl.timestamp(), icon, result.Task.ID)
	if cl.cfg.ShowDurations {
		line += fmt.Sprintf(" (%.1fs)", result.Duration.Seconds())
	}
	if result.RetryCount > 0 {
		line += fmt.Sprintf(" [retry %d]", result.RetryCount)
	}
	if cl.cfg.ShowFileCounts && len(result.FilesModified) > 0 {
		line += fmt.Sprintf(" [%d files]", len(result.FilesModified))
	}
	cl.write(line + "\n")

	if cl.IsVerbose() && cl.cfg.EnableTaskDetails {
		cl.logTaskDetail(result)
	}
}

func (cl *ConsoleLogger) logTaskDetail(result models.SwarmTaskResult) {
	if result.Error != nil {
		cl.write(fmt.Sprintf("         error: %v\n", result.Error))
	}
	if result.Output != "" {
		cl.write(fmt.Sprintf("         output: %s\n", truncate(result.Output, 400)))
	}
	if len(result.FilesModified) > 0 {
		cl.write(fmt.Sprintf("         files: %s\n", strings.Join(result.FilesModified, ", ")))
	}
}

func statusIcon(status string) string {
	switch status {
	case models.StatusGreen:
		return "✓"
	case models.StatusYellow:
		return "~"
	case models.StatusRed:
		return "✗"
	case models.StatusFailed:
		return "!"
	default:
		return "?"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// LogDecision implements swarm.Logger: narrates an adaptive choice the
// orchestrator made (budget triage, replan, hollow termination, ...).
func (cl *ConsoleLogger) LogDecision(decision models.SwarmDecision) {
	if !cl.shouldLog("info") {
		return
	}
	msg := fmt.Sprintf("[%s] [decision] %s: %s", cl.timestamp(), decision.Kind, decision.Reason)
	if len(decision.TaskIDs) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(decision.TaskIDs, ", "))
	}
	cl.write(msg + "\n")
}

// LogSummary implements swarm.Logger: prints the final run tally.
func (cl *ConsoleLogger) LogSummary(result models.ExecutionResult) {
	if !cl.shouldLog("info") {
		return
	}

	status := "SUCCESS"
	if result.Failed > 0 {
		if result.Completed == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	ts := cl.timestamp()
	cl.write(fmt.Sprintf("\n[%s] === Run summary ===\n", ts))
	cl.write(fmt.Sprintf("[%s] total: %d  completed: %d  failed: %d  skipped: %d\n",
		ts, result.TotalTasks, result.Completed, result.Failed, result.Skipped))
	cl.write(fmt.Sprintf("[%s] duration: %.1fs  avg/task: %.1fs  status: %s\n",
		ts, result.Duration.Seconds(), result.AvgTaskDuration.Seconds(), status))

	if len(result.StatusBreakdown) > 0 {
		scheme := newColorScheme()
		keys := make([]string, 0, len(result.StatusBreakdown))
		for k := range result.StatusBreakdown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			if cl.cfg.EnableColor {
				parts = append(parts, formatStatusCount(k, result.StatusBreakdown[k], scheme))
			} else {
				parts = append(parts, fmt.Sprintf("%s: %d", k, result.StatusBreakdown[k]))
			}
		}
		cl.write(fmt.Sprintf("[%s] breakdown: %s\n", ts, strings.Join(parts, ", ")))
	}

	if len(result.FailedTasks) > 0 {
		cl.write(fmt.Sprintf("[%s] failed tasks:\n", ts))
		for _, ft := range result.FailedTasks {
			cl.write(fmt.Sprintf("[%s]   - %s: %v\n", ts, ft.Task.ID, ft.Error))
		}
	}
}

// LogRateLimitCountdown implements budget.WaiterLogger, narrating the
// remaining wait while internal/planner pauses for a rate-limit reset.
func (cl *ConsoleLogger) LogRateLimitCountdown(remaining, total time.Duration) {
	if !cl.shouldLog("warn") {
		return
	}
	bar := ""
	if cl.cfg.EnableProgressBar && total > 0 {
		pb := NewProgressBar(int(total.Seconds()), 20, cl.cfg.EnableColor)
		pb.Update(int((total - remaining).Seconds()))
		bar = " " + pb.Render()
	}
	msg := fmt.Sprintf("[%s] rate limit: resuming in %s%s", cl.timestamp(), remaining.Round(time.Second), bar)
	if cl.cfg.EnableColor {
		msg = color.New(color.FgYellow).Sprint(msg)
	}
	cl.write("\r" + msg)
	if remaining <= 0 {
		cl.write("\n")
	}
}
