package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/gads/pkg/models"
)

// RunStatus is the lifecycle state of a recorded pipeline run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunCancelled   RunStatus = "cancelled"
	RunInterrupted RunStatus = "interrupted"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline execution.
type Run struct {
	ID             string            `json:"id"`
	SessionID      string            `json:"session_id"`
	Pipeline       string            `json:"pipeline"`
	Status         RunStatus         `json:"status"`
	CompletedSteps []string          `json:"completed_steps"`
	Error          string            `json:"error,omitempty"`
	Usage          models.TokenUsage `json:"usage"`
	Cost           float64           `json:"cost"`
	PID            int               `json:"pid"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     *time.Time        `json:"finished_at,omitempty"`
}

// RunEvent is one entry of a run's ordered event stream.
type RunEvent struct {
	RunID     string          `json:"run_id"`
	Seq       int             `json:"seq"`
	Kind      string          `json:"kind"`
	Step      string          `json:"step,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// StartRun inserts a run in the running state.
func (db *DB) StartRun(r *Run) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	steps, err := json.Marshal(nonNil(r.CompletedSteps))
	if err != nil {
		return fmt.Errorf("encode completed steps: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO pipeline_runs (id, session_id, pipeline, status, completed_steps, pid, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SessionID, r.Pipeline, string(r.Status), string(steps), r.PID, formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (db *DB) FinishRun(r *Run) error {
	if r.FinishedAt == nil {
		now := time.Now().UTC()
		r.FinishedAt = &now
	}
	steps, err := json.Marshal(nonNil(r.CompletedSteps))
	if err != nil {
		return fmt.Errorf("encode completed steps: %w", err)
	}
	res, err := db.Exec(`
		UPDATE pipeline_runs SET status = ?, completed_steps = ?, error = ?,
			input_tokens = ?, output_tokens = ?, cost = ?, finished_at = ?
		WHERE id = ?
	`, string(r.Status), string(steps), r.Error, r.Usage.InputTokens, r.Usage.OutputTokens,
		r.Cost, formatTime(*r.FinishedAt), r.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, ErrRunNotFound)
	}
	return nil
}

// AppendRunEvent appends an event to a run, assigning the next sequence number.
func (db *DB) AppendRunEvent(e *RunEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if len(e.Payload) == 0 {
		e.Payload = json.RawMessage("{}")
	}
	return db.Transaction(func(tx *sql.Tx) error {
		var seq int
		if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM run_events WHERE run_id = ?`, e.RunID).Scan(&seq); err != nil {
			return fmt.Errorf("next event seq: %w", err)
		}
		e.Seq = seq + 1
		_, err := tx.Exec(`
			INSERT INTO run_events (run_id, seq, kind, step, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.RunID, e.Seq, e.Kind, e.Step, string(e.Payload), formatTime(e.CreatedAt))
		if err != nil {
			return fmt.Errorf("append run event: %w", err)
		}
		return nil
	})
}

const runColumns = `id, session_id, pipeline, status, completed_steps, error,
	input_tokens, output_tokens, cost, pid, started_at, finished_at`

// GetRun retrieves a run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first. An empty sessionID lists every run;
// a non-positive limit returns all matches.
func (db *DB) ListRuns(sessionID string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// RunEvents returns the events of a run in sequence order.
func (db *DB) RunEvents(runID string) ([]RunEvent, error) {
	rows, err := db.Query(`
		SELECT run_id, seq, kind, step, payload, created_at
		FROM run_events WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var payload, createdAt string
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &e.Step, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		e.CreatedAt, _ = parseTime(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// PurgeOldRuns deletes runs started before the cutoff, with their events.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM run_events WHERE run_id IN (SELECT id FROM pipeline_runs WHERE started_at < ?)
		`, cutoff); err != nil {
			return fmt.Errorf("purge run events: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM pipeline_runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("purge old runs: %w", err)
		}
		count, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var r Run
	var status, steps, startedAt string
	var finishedAt sql.NullString
	if err := s.Scan(&r.ID, &r.SessionID, &r.Pipeline, &status, &steps, &r.Error,
		&r.Usage.InputTokens, &r.Usage.OutputTokens, &r.Cost, &r.PID, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(steps), &r.CompletedSteps); err != nil {
		return nil, fmt.Errorf("decode completed steps: %w", err)
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
