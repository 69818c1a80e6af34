package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/swarmforge/swarmcore/internal/models"
)

func newTestTask(id string) models.SwarmTask {
	return models.SwarmTask{
		SmartSubtask: models.SmartSubtask{ID: id, Description: "do the thing"},
	}
}

func TestConsoleLoggerRespectsLogLevel(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLoggerTo(&buf, DefaultConsoleConfigLike(), "warn")

	cl.LogInfo("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected info suppressed at warn level, got %q", buf.String())
	}

	cl.LogWarn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn message, got %q", buf.String())
	}
}

func TestConsoleLoggerLogWaveStart(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLoggerTo(&buf, DefaultConsoleConfigLike(), "info")

	cl.LogWaveStart(models.Wave{Index: 2, TaskIDs: []string{"a", "b"}, MaxConcurrency: 3})

	out := buf.String()
	if !strings.Contains(out, "Wave 2") || !strings.Contains(out, "2 tasks") {
		t.Errorf("unexpected wave start output: %q", out)
	}
}

func TestConsoleLoggerLogTaskResult(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLoggerTo(&buf, DefaultConsoleConfigLike(), "info")

	cl.LogTaskResult(models.SwarmTaskResult{
		Task:     newTestTask("t1"),
		Status:   models.StatusGreen,
		Duration: 2 * time.Second,
	})

	if !strings.Contains(buf.String(), "t1") {
		t.Errorf("expected task id in output, got %q", buf.String())
	}
}

func TestConsoleLoggerLogSummaryReportsStatus(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLoggerTo(&buf, DefaultConsoleConfigLike(), "info")

	result := *models.NewExecutionResult([]models.SwarmTaskResult{
		{Task: newTestTask("t1"), Status: models.StatusGreen},
		{Task: newTestTask("t2"), Status: models.StatusFailed, Error: errBoom},
	}, 5*time.Second)

	cl.LogSummary(result)

	out := buf.String()
	if !strings.Contains(out, "PARTIAL") {
		t.Errorf("expected PARTIAL status, got %q", out)
	}
	if !strings.Contains(out, "t2") {
		t.Errorf("expected failed task id listed, got %q", out)
	}
}

func TestConsoleLoggerLogDecision(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLoggerTo(&buf, DefaultConsoleConfigLike(), "info")

	cl.LogDecision(models.SwarmDecision{Kind: "budget-triage", Reason: "exploration cap hit", TaskIDs: []string{"t3"}})

	out := buf.String()
	if !strings.Contains(out, "budget-triage") || !strings.Contains(out, "t3") {
		t.Errorf("unexpected decision output: %q", out)
	}
}

func TestConsoleLoggerLogRateLimitCountdown(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLoggerTo(&buf, DefaultConsoleConfigLike(), "info")

	cl.LogRateLimitCountdown(30*time.Second, 60*time.Second)

	if !strings.Contains(buf.String(), "rate limit") {
		t.Errorf("expected rate limit message, got %q", buf.String())
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

var errBoom = &testError{msg: "boom"}
