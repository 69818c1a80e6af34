package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/swarmforge/swarmcore/internal/models"
)

// FileLogger logs orchestrator events to files under .swarmcore/logs/. It
// creates a size-rotated run log (via lumberjack), per-task detailed logs
// in a tasks/ subdirectory, and maintains a latest.log symlink pointing at
// the current run. It is thread-safe and supports log-level filtering.
type FileLogger struct {
	logDir   string
	runLog   *lumberjack.Logger
	runFile  string
	tasksDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a new FileLogger that writes to .swarmcore/logs/
// with default log level "info".
func NewFileLogger() (*FileLogger, error) {
	logDir := filepath.Join(".swarmcore", "logs")
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDir creates a new FileLogger with a custom log directory
// and default log level "info".
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log
// directory and log level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	tasksDir := filepath.Join(logDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	runLog := &lumberjack.Logger{
		Filename:   runFile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   runLog,
		runFile:  runFile,
		tasksDir: tasksDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== swarmcore run log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) { fl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) { fl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

// Infof formats and logs an info-level message.
func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.LogInfo(fmt.Sprintf(format, args...))
}

// Warnf formats and logs a warning-level message.
func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.LogWarn(fmt.Sprintf(format, args...))
}

// Errorf formats and logs an error-level message.
func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.LogError(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	formatted := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message)
	fl.writeRunLog(formatted)
}

// LogWaveStart implements swarm.Logger.
func (fl *FileLogger) LogWaveStart(wave models.Wave) {
	if !fl.shouldLog("info") {
		return
	}
	taskCount := len(wave.TaskIDs)
	taskLabel := "task"
	if taskCount != 1 {
		taskLabel = "tasks"
	}
	message := fmt.Sprintf(
		"[%s] Starting wave %d: %d %s (max concurrency: %d)\n",
		time.Now().Format("15:04:05"), wave.Index, taskCount, taskLabel, wave.MaxConcurrency,
	)
	fl.writeRunLog(message)
}

// LogWaveComplete implements swarm.Logger.
func (fl *FileLogger) LogWaveComplete(wave models.Wave, duration time.Duration, results []models.SwarmTaskResult) {
	if !fl.shouldLog("info") {
		return
	}
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	message := fmt.Sprintf(
		"[%s] Wave %d complete: duration %.1fs, green=%d yellow=%d red=%d failed=%d\n",
		time.Now().Format("15:04:05"), wave.Index, duration.Seconds(),
		counts[models.StatusGreen], counts[models.StatusYellow], counts[models.StatusRed], counts[models.StatusFailed],
	)
	fl.writeRunLog(message)
}

// LogDecision implements swarm.Logger.
func (fl *FileLogger) LogDecision(decision models.SwarmDecision) {
	if !fl.shouldLog("info") {
		return
	}
	message := fmt.Sprintf("[%s] [decision] %s: %s", time.Now().Format("15:04:05"), decision.Kind, decision.Reason)
	if len(decision.TaskIDs) > 0 {
		message += fmt.Sprintf(" (%s)", strings.Join(decision.TaskIDs, ", "))
	}
	fl.writeRunLog(message + "\n")
}

// LogSummary implements swarm.Logger.
func (fl *FileLogger) LogSummary(result models.ExecutionResult) {
	if !fl.shouldLog("info") {
		return
	}

	timestamp := time.Now().Format("15:04:05")

	status := "SUCCESS"
	if result.Failed > 0 {
		if result.Completed == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === EXECUTION SUMMARY ===\n"+
			"[%s] Total tasks:  %d\n"+
			"[%s] Completed:    %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Skipped:      %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s (%d/%d tasks passed)\n"+
			"[%s] Completed at: %s\n",
		timestamp, timestamp, result.TotalTasks, timestamp, result.Completed,
		timestamp, result.Failed, timestamp, result.Skipped, timestamp, result.Duration.Seconds(),
		timestamp, status, result.Completed, result.TotalTasks,
		timestamp, time.Now().Format(time.RFC3339),
	)

	fl.writeRunLog(message)
}

// LogTaskResult implements swarm.Logger, writing a per-task log file under
// the tasks/ subdirectory keyed by task ID.
func (fl *FileLogger) LogTaskResult(result models.SwarmTaskResult) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	taskLogPath := filepath.Join(fl.tasksDir, fmt.Sprintf("task-%s.log", sanitizeTaskID(result.Task.ID)))

	file, err := os.OpenFile(taskLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	defer file.Close()

	content := fmt.Sprintf("=== Task %s: %s ===\n", result.Task.ID, result.Task.Description)
	content += fmt.Sprintf("Status: %s\n", result.Status)
	content += fmt.Sprintf("Wave: %d\n", result.Task.Wave)
	content += fmt.Sprintf("Duration: %.1fs\n", result.Duration.Seconds())
	content += fmt.Sprintf("Retry Count: %d\n", result.RetryCount)
	content += fmt.Sprintf("Tool Calls: %d\n", result.ToolCalls)
	content += "\n"

	if result.Output != "" {
		content += fmt.Sprintf("Output:\n%s\n\n", result.Output)
	}

	if len(result.FilesModified) > 0 {
		content += fmt.Sprintf("Files Modified:\n%s\n\n", strings.Join(result.FilesModified, "\n"))
	}

	if result.Error != nil {
		content += fmt.Sprintf("Error:\n%v\n\n", result.Error)
	}

	content += fmt.Sprintf("Completed at: %s\n", time.Now().Format(time.RFC3339))

	file.WriteString(content)
}

func sanitizeTaskID(id string) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "-").Replace(id)
}

// LogRateLimitCountdown implements budget.WaiterLogger.
func (fl *FileLogger) LogRateLimitCountdown(remaining, total time.Duration) {
	if !fl.shouldLog("warn") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [WARN] rate limit: resuming in %s\n",
		time.Now().Format("15:04:05"), remaining.Round(time.Second)))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.Write([]byte(message))
	}
}
