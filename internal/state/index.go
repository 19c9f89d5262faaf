package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

// IndexedSession is one row of the session index.
type IndexedSession struct {
	session.Summary
	Path     string
	Checksum string
}

// PutSession records or replaces the index row for a saved session.
func (db *DB) PutSession(e session.IndexEntry) error {
	_, err := db.Exec(`
		INSERT INTO session_index (id, project_name, project_kind, current_phase, path, checksum,
			message_count, truncated_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_name = excluded.project_name,
			project_kind = excluded.project_kind,
			current_phase = excluded.current_phase,
			path = excluded.path,
			checksum = excluded.checksum,
			message_count = excluded.message_count,
			truncated_count = excluded.truncated_count,
			updated_at = excluded.updated_at
	`, e.ID, e.ProjectName, string(e.Kind), e.CurrentPhase, e.Path, e.Checksum,
		e.MessageCount, e.TruncatedCount, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put session index: %w", err)
	}
	return nil
}

// SessionChecksum returns the checksum recorded at the last indexed save,
// or "" when the session is not indexed.
func (db *DB) SessionChecksum(id string) (string, error) {
	var sum string
	err := db.QueryRow(`SELECT checksum FROM session_index WHERE id = ?`, id).Scan(&sum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session checksum: %w", err)
	}
	return sum, nil
}

// ListIndexed returns every indexed session, most recently updated first.
func (db *DB) ListIndexed() ([]IndexedSession, error) {
	rows, err := db.Query(`
		SELECT id, project_name, project_kind, current_phase, path, checksum,
			message_count, truncated_count, created_at, updated_at
		FROM session_index ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list indexed sessions: %w", err)
	}
	defer rows.Close()

	var out []IndexedSession
	for rows.Next() {
		var s IndexedSession
		var kind, createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.ProjectName, &kind, &s.CurrentPhase, &s.Path, &s.Checksum,
			&s.MessageCount, &s.TruncatedCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan indexed session: %w", err)
		}
		s.Kind = models.ProjectKind(kind)
		s.CreatedAt, _ = parseTime(createdAt)
		s.UpdatedAt, _ = parseTime(updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// RemoveSession drops a session from the index. Its run log is kept.
func (db *DB) RemoveSession(id string) error {
	if _, err := db.Exec(`DELETE FROM session_index WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove session index: %w", err)
	}
	return nil
}
