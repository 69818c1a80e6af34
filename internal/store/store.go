// Package store persists the per-session state spec.md 6 "Persisted state
// layout" names: the latest swarm checkpoint, a predictions log,
// worker-result records, and a per-agent file-change log. Grounded on
// internal/learning/store.go: a database/sql + go-sqlite3 store with an
// embedded schema, opened once and used concurrently.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"database/sql"

	"github.com/swarmforge/swarmcore/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store is the session-state database: swarm checkpoints, predictions,
// worker results, file changes, and pause/resume fast-path records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at path and applies
// the embedded schema. path may be ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCheckpoint implements swarm.CheckpointStore: it inserts a new
// timestamped row rather than overwriting one, so "resume latest" (spec.md
// 6) is simply the newest row for this session.
func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint models.SwarmCheckpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("store: marshal checkpoint: %w", err)
	}

	ts := checkpoint.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO swarm_checkpoints (session_id, timestamp, phase, checkpoint_json) VALUES (?, ?, ?, ?)`,
		checkpoint.SessionID, ts, string(checkpoint.Phase), string(data),
	)
	if err != nil {
		return fmt.Errorf("store: insert checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the newest checkpoint for sessionID ("latest" in
// spec.md 6's --resume/--swarm-resume default), or false if none exists.
func (s *Store) LatestCheckpoint(ctx context.Context, sessionID string) (models.SwarmCheckpoint, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT checkpoint_json FROM swarm_checkpoints WHERE session_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		sessionID,
	)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return models.SwarmCheckpoint{}, false, nil
		}
		return models.SwarmCheckpoint{}, false, fmt.Errorf("store: query latest checkpoint: %w", err)
	}

	var cp models.SwarmCheckpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return models.SwarmCheckpoint{}, false, fmt.Errorf("store: unmarshal checkpoint: %w", err)
	}
	return cp, true, nil
}

// SessionSummary is one row of the `swarmcore list` CLI command's listing
// (SPEC_FULL.md 2 "CLI"): the newest checkpoint recorded per session.
type SessionSummary struct {
	SessionID string
	Timestamp time.Time
	Phase     string
}

// ListSessions returns the most recent checkpoint per distinct session ID,
// newest-first, for the `swarmcore list` command.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.session_id, c.timestamp, c.phase
		FROM swarm_checkpoints c
		INNER JOIN (
			SELECT session_id, MAX(timestamp) AS max_ts
			FROM swarm_checkpoints
			GROUP BY session_id
		) latest ON c.session_id = latest.session_id AND c.timestamp = latest.max_ts
		ORDER BY c.timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.SessionID, &sum.Timestamp, &sum.Phase); err != nil {
			return nil, fmt.Errorf("store: scan session summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate sessions: %w", err)
	}
	return summaries, nil
}

// Prediction is one logged prediction row (spec.md 6 "predictions log
// (JSONL)").
type Prediction struct {
	SessionID string
	TaskID    string
	Timestamp time.Time
	Payload   json.RawMessage
}

// LogPrediction appends one prediction row.
func (s *Store) LogPrediction(ctx context.Context, p Prediction) error {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions_log (session_id, timestamp, task_id, prediction_json) VALUES (?, ?, ?, ?)`,
		p.SessionID, ts, p.TaskID, string(p.Payload),
	)
	if err != nil {
		return fmt.Errorf("store: insert prediction: %w", err)
	}
	return nil
}

// Predictions returns every logged prediction for sessionID, oldest first
// (the JSONL-append order spec.md 6 describes).
func (s *Store) Predictions(ctx context.Context, sessionID string) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, timestamp, prediction_json FROM predictions_log WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query predictions: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		var taskID sql.NullString
		var raw string
		if err := rows.Scan(&taskID, &p.Timestamp, &raw); err != nil {
			return nil, fmt.Errorf("store: scan prediction: %w", err)
		}
		p.SessionID = sessionID
		p.TaskID = taskID.String
		p.Payload = json.RawMessage(raw)
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordWorkerResult persists one completed subagent spawn (spec.md 6
// "worker-result records").
func (s *Store) RecordWorkerResult(ctx context.Context, sessionID, taskID, agentName string, result *models.SpawnResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("store: marshal worker result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO worker_results (session_id, task_id, agent_name, success, termination, duration_ms, tokens_used, cost, timestamp, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, taskID, agentName, result.Success, string(result.Termination),
		result.Metrics.Duration.Milliseconds(), result.Metrics.TokensUsed, result.Metrics.Cost,
		time.Now(), string(data),
	)
	if err != nil {
		return fmt.Errorf("store: insert worker result: %w", err)
	}
	return nil
}

// WorkerResultsForTask returns every recorded spawn result for taskID,
// oldest first (one row per attempt, so callers can see retry history).
func (s *Store) WorkerResultsForTask(ctx context.Context, sessionID, taskID string) ([]*models.SpawnResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_json FROM worker_results WHERE session_id = ? AND task_id = ? ORDER BY id ASC`,
		sessionID, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query worker results: %w", err)
	}
	defer rows.Close()

	var out []*models.SpawnResult
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan worker result: %w", err)
		}
		var result models.SpawnResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("store: unmarshal worker result: %w", err)
		}
		out = append(out, &result)
	}
	return out, rows.Err()
}

// RecordFileChanges appends one row per file an agent touched (spec.md 6
// "per-agent file-change log").
func (s *Store) RecordFileChanges(ctx context.Context, sessionID, agentName, taskID string, files []string) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin file-change tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO file_changes (session_id, agent_name, task_id, file_path, timestamp) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare file-change insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, sessionID, agentName, taskID, f, now); err != nil {
			return fmt.Errorf("store: insert file change: %w", err)
		}
	}
	return tx.Commit()
}

// FileChangesSince returns every file touched by sessionID, most recently
// changed first, used to seed write-write conflict detection across a
// resume (SPEC_FULL.md 4 "Package/file write-guard").
func (s *Store) FileChangesSince(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT file_path FROM file_changes WHERE session_id = ? ORDER BY id DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query file changes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: scan file change: %w", err)
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// ExecutionPause is the cheap pause/resume fast-path record distinct from a
// full swarm checkpoint (SPEC_FULL.md 4 "Execution-state pause/resume
// beyond checkpoints"), grounded on internal/budget/state.go's
// ExecutionState.
type ExecutionPause struct {
	SessionID      string
	PlanFile       string
	CompletedTasks []string
	ResumeAt       time.Time
}

// SavePause records an ExecutionPause row.
func (s *Store) SavePause(ctx context.Context, p ExecutionPause) error {
	completed, err := json.Marshal(p.CompletedTasks)
	if err != nil {
		return fmt.Errorf("store: marshal completed tasks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO execution_pauses (session_id, plan_file, completed_task_ids, resume_at, timestamp) VALUES (?, ?, ?, ?, ?)`,
		p.SessionID, p.PlanFile, string(completed), p.ResumeAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("store: insert execution pause: %w", err)
	}
	return nil
}

// LatestPause returns the newest ExecutionPause for sessionID, or false if
// none exists.
func (s *Store) LatestPause(ctx context.Context, sessionID string) (ExecutionPause, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT plan_file, completed_task_ids, resume_at FROM execution_pauses WHERE session_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		sessionID,
	)

	var planFile sql.NullString
	var completedJSON string
	var resumeAt sql.NullTime
	if err := row.Scan(&planFile, &completedJSON, &resumeAt); err != nil {
		if err == sql.ErrNoRows {
			return ExecutionPause{}, false, nil
		}
		return ExecutionPause{}, false, fmt.Errorf("store: query latest pause: %w", err)
	}

	var completed []string
	if err := json.Unmarshal([]byte(completedJSON), &completed); err != nil {
		return ExecutionPause{}, false, fmt.Errorf("store: unmarshal completed tasks: %w", err)
	}

	return ExecutionPause{
		SessionID:      sessionID,
		PlanFile:       planFile.String,
		CompletedTasks: completed,
		ResumeAt:       resumeAt.Time,
	}, true, nil
}
