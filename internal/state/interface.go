package state

import (
	"io"

	"github.com/ShayCichocki/gads/internal/session"
)

// RunLog records pipeline runs and their event streams.
type RunLog interface {
	StartRun(r *Run) error
	FinishRun(r *Run) error
	AppendRunEvent(e *RunEvent) error
	ListRuns(sessionID string, limit int) ([]Run, error)
	RunEvents(runID string) ([]RunEvent, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store is the full inspection database surface.
type Store interface {
	io.Closer
	Migrator
	RunLog
	session.Index
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store         = (*DB)(nil)
	_ RunLog        = (*DB)(nil)
	_ session.Index = (*DB)(nil)
)
