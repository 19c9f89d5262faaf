package session

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/ShayCichocki/gads/pkg/models"
)

// DefaultMaxHistory is the history cap used when none is configured.
const DefaultMaxHistory = 100

var (
	// ErrNotFound is returned when no document exists for a session id.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidID is returned for ids that cannot name a session file.
	ErrInvalidID = errors.New("invalid session id")
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// IndexEntry is what the store reports to an Index after each save.
type IndexEntry struct {
	Summary
	Path     string
	Checksum string
}

// Index is an optional secondary record of saved sessions. The store uses
// the recorded checksum to notice documents rewritten by another process.
type Index interface {
	PutSession(e IndexEntry) error
	// SessionChecksum returns "" when the session is not indexed.
	SessionChecksum(id string) (string, error)
}

// FileStore persists sessions as one JSON document per id in a directory.
// It assumes a single writer per session id.
type FileStore struct {
	dir        string
	maxHistory int
	archive    bool
	index      Index
	logger     *slog.Logger
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithIndex records every save in idx.
func WithIndex(idx Index) StoreOption {
	return func(s *FileStore) { s.index = idx }
}

// WithArchive controls whether truncated messages are appended to the
// per-session compressed archive. Enabled by default.
func WithArchive(enabled bool) StoreOption {
	return func(s *FileStore) { s.archive = enabled }
}

// WithLogger sets the logger used for truncation and integrity warnings.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore creates the directory if needed and returns a store rooted
// there. A non-positive maxHistory selects DefaultMaxHistory.
func NewFileStore(dir string, maxHistory int, opts ...StoreOption) (*FileStore, error) {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	s := &FileStore{
		dir:        dir,
		maxHistory: maxHistory,
		archive:    true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory holding session documents.
func (s *FileStore) Dir() string {
	return s.dir
}

// MaxHistory returns the history cap enforced on save.
func (s *FileStore) MaxHistory() int {
	return s.maxHistory
}

// Create builds a new session and persists it.
func (s *FileStore) Create(name, description string, kind models.ProjectKind, styleHint string) (*Session, error) {
	sess := New(name, description, kind, styleHint)
	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load reads the session with the given id.
func (s *FileStore) Load(id string) (*Session, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.AgentMemory == nil {
		sess.AgentMemory = map[models.AgentName]map[string]any{}
	}
	s.verify(id, data)
	return &sess, nil
}

// verify compares the document against the checksum recorded at the last
// save through this store.
func (s *FileStore) verify(id string, data []byte) {
	if s.index == nil {
		return
	}
	want, err := s.index.SessionChecksum(id)
	if err != nil {
		s.logger.Warn("session index lookup failed", "session", id, "error", err)
		return
	}
	if want != "" && want != checksum(data) {
		s.logger.Warn("session document changed outside this store",
			"session", id,
			"path", filepath.Join(s.dir, id+".json"))
	}
}

// Save enforces the history cap and then atomically replaces the document.
func (s *FileStore) Save(sess *Session) error {
	if sess == nil {
		return errors.New("save session: nil session")
	}
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}

	if over := len(sess.History) - s.maxHistory; s.maxHistory > 0 && over > 0 {
		// The archive is written before the session is mutated so a failed
		// append leaves History and the truncation count untouched.
		if s.archive {
			if err := appendArchive(s.archivePath(sess.ID), sess.History[:over]); err != nil {
				return fmt.Errorf("archive truncated messages for %s: %w", sess.ID, err)
			}
		}
		removed := sess.Truncate(s.maxHistory)
		s.logger.Warn("truncated session history",
			"session", sess.ID,
			"removed", len(removed),
			"total_truncated", sess.TruncatedMessageCount,
			"max_history", s.maxHistory)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}

	if s.index != nil {
		entry := IndexEntry{Summary: sess.Summarize(), Path: path, Checksum: checksum(data)}
		if err := s.index.PutSession(entry); err != nil {
			s.logger.Warn("session index update failed", "session", sess.ID, "error", err)
		}
	}
	return nil
}

// List returns summaries of every stored session, most recently updated first.
// Unreadable documents are skipped with a warning.
func (s *FileStore) List() ([]Summary, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]Summary, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			s.logger.Warn("skipping unreadable session", "path", p, "error", err)
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			s.logger.Warn("skipping malformed session", "path", p, "error", err)
			continue
		}
		out = append(out, sess.Summarize())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Latest returns the most recently updated session.
func (s *FileStore) Latest() (*Session, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("latest session: %w", ErrNotFound)
	}
	return s.Load(list[0].ID)
}

// Delete removes a session document and its archive.
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", id, ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if err := os.Remove(s.archivePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete archive %s: %w", id, err)
	}
	return nil
}

// Archive returns every message truncated from the session, oldest first.
// A session that was never truncated has an empty archive.
func (s *FileStore) Archive(id string) ([]Message, error) {
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	msgs, err := readArchive(s.archivePath(id))
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", id, err)
	}
	return msgs, nil
}

func (s *FileStore) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) archivePath(id string) string {
	return filepath.Join(s.dir, id+".archive.jsonl.zst")
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
