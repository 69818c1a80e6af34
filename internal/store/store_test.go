package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmcore/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLatestCheckpointReturnsFalseWhenNoneSaved(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LatestCheckpoint(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestCheckpointReturnsNewestBySessionAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := models.SwarmCheckpoint{SessionID: "sess-1", Timestamp: time.Now().Add(-time.Hour), Phase: models.SwarmExecuting, CurrentWave: 1}
	newer := models.SwarmCheckpoint{SessionID: "sess-1", Timestamp: time.Now(), Phase: models.SwarmCompleted, CurrentWave: 2}
	other := models.SwarmCheckpoint{SessionID: "sess-2", Timestamp: time.Now(), Phase: models.SwarmFailed, CurrentWave: 9}

	require.NoError(t, s.SaveCheckpoint(ctx, older))
	require.NoError(t, s.SaveCheckpoint(ctx, newer))
	require.NoError(t, s.SaveCheckpoint(ctx, other))

	got, ok, err := s.LatestCheckpoint(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.SwarmCompleted, got.Phase)
	assert.Equal(t, 2, got.CurrentWave)
}

func TestLogPredictionAndPredictionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogPrediction(ctx, Prediction{
		SessionID: "sess-1", TaskID: "task-a", Payload: json.RawMessage(`{"confidence":0.9}`),
	}))
	require.NoError(t, s.LogPrediction(ctx, Prediction{
		SessionID: "sess-1", TaskID: "task-b", Payload: json.RawMessage(`{"confidence":0.4}`),
	}))

	preds, err := s.Predictions(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "task-a", preds[0].TaskID)
	assert.JSONEq(t, `{"confidence":0.4}`, string(preds[1].Payload))
}

func TestRecordWorkerResultAndQueryByTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := &models.SpawnResult{
		Success:       true,
		Output:        "done",
		FilesModified: []string{"a.go"},
		Metrics:       models.SpawnMetrics{TokensUsed: 100, Cost: 0.02},
	}
	require.NoError(t, s.RecordWorkerResult(ctx, "sess-1", "task-a", "worker-1", result))

	results, err := s.WorkerResultsForTask(ctx, "sess-1", "task-a")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "done", results[0].Output)
	assert.Equal(t, int64(100), results[0].Metrics.TokensUsed)
}

func TestRecordFileChangesAndQueryDistinctPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFileChanges(ctx, "sess-1", "worker-1", "task-a", []string{"a.go", "b.go"}))
	require.NoError(t, s.RecordFileChanges(ctx, "sess-1", "worker-2", "task-b", []string{"a.go"}))

	paths, err := s.FileChangesSince(ctx, "sess-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, paths)
}

func TestSaveAndLoadLatestPause(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePause(ctx, ExecutionPause{
		SessionID: "sess-1", PlanFile: "plan.md", CompletedTasks: []string{"a", "b"},
	}))

	got, ok, err := s.LatestPause(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "plan.md", got.PlanFile)
	assert.Equal(t, []string{"a", "b"}, got.CompletedTasks)
}
