package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/gads/pkg/models"
)

func newTestStore(t *testing.T, maxHistory int, opts ...StoreOption) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), maxHistory, opts...)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return s
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := newTestStore(t, 100)

	sess, err := store.Create("Skyward", "cloud platformer", models.Kind3D, "low-poly")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	sess.Project.DesignSpec["core_loop"] = "climb, glide, land"
	sess.Project.Assets3D = append(sess.Project.Assets3D, "player.glb")
	sess.Memory(models.AgentArchitect)["pillars"] = []any{"freedom", "calm"}
	sess.AddMessage(RoleHuman, "", "make it cozy", nil)
	sess.AddMessage(RoleAgent, models.AgentArchitect, "concept", map[string]any{"contains_code": false})

	if err := store.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !bytes.Equal(mustJSON(t, sess), mustJSON(t, loaded)) {
		t.Errorf("round trip mismatch:\n saved: %s\nloaded: %s", mustJSON(t, sess), mustJSON(t, loaded))
	}
}

func TestFileStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t, 100)

	_, err := store.Load("3f1c4c1e-0000-4000-8000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_InvalidID(t *testing.T) {
	store := newTestStore(t, 100)

	for _, id := range []string{"", "../etc/passwd", "a/b", ".hidden"} {
		if _, err := store.Load(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Load(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestFileStore_HistoryBound(t *testing.T) {
	const max = 5
	store := newTestStore(t, max)
	sess, err := store.Create("p", "", models.Kind2D, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	total := 0
	for _, batch := range []int{3, 4, 6, 1} {
		for i := 0; i < batch; i++ {
			total++
			sess.AddMessage(RoleHuman, "", "msg", nil)
		}
		prev := sess.TruncatedMessageCount
		if err := store.Save(sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if len(sess.History) > max {
			t.Errorf("len(History) = %d after save, want <= %d", len(sess.History), max)
		}
		if sess.TruncatedMessageCount < prev {
			t.Error("TruncatedMessageCount decreased")
		}
	}
	if want := total - max; sess.TruncatedMessageCount != want {
		t.Errorf("TruncatedMessageCount = %d, want %d", sess.TruncatedMessageCount, want)
	}

	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.History) != max || loaded.TruncatedMessageCount != total-max {
		t.Errorf("persisted len=%d truncated=%d", len(loaded.History), loaded.TruncatedMessageCount)
	}
}

func TestFileStore_ArchiveKeepsTruncatedMessages(t *testing.T) {
	store := newTestStore(t, 2)
	sess, _ := store.Create("p", "", models.Kind2D, "")

	for _, c := range []string{"one", "two", "three"} {
		sess.AddMessage(RoleHuman, "", c, nil)
	}
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	sess.AddMessage(RoleHuman, "", "four", nil)
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	archived, err := store.Archive(sess.ID)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if len(archived) != 2 || archived[0].Content != "one" || archived[1].Content != "two" {
		t.Errorf("archived = %+v", archived)
	}
}

func TestFileStore_ArchiveDisabled(t *testing.T) {
	store := newTestStore(t, 1, WithArchive(false))
	sess, _ := store.Create("p", "", models.Kind2D, "")
	sess.AddMessage(RoleHuman, "", "a", nil)
	sess.AddMessage(RoleHuman, "", "b", nil)
	if err := store.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Dir(), sess.ID+".archive.jsonl.zst")); !os.IsNotExist(err) {
		t.Error("archive file written while disabled")
	}
	archived, err := store.Archive(sess.ID)
	if err != nil || len(archived) != 0 {
		t.Errorf("Archive = %v, %v; want empty", archived, err)
	}
}

func TestFileStore_ArchiveFailureKeepsHistory(t *testing.T) {
	store := newTestStore(t, 2)
	sess, _ := store.Create("p", "", models.Kind2D, "")
	for _, c := range []string{"one", "two", "three", "four"} {
		sess.AddMessage(RoleHuman, "", c, nil)
	}
	archive := filepath.Join(store.Dir(), sess.ID+".archive.jsonl.zst")
	if err := os.Mkdir(archive, 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	if err := store.Save(sess); err == nil {
		t.Fatal("expected Save to fail when the archive cannot be written")
	}
	if len(sess.History) != 4 || sess.TruncatedMessageCount != 0 {
		t.Fatalf("after failed save len=%d truncated=%d, want 4 and 0", len(sess.History), sess.TruncatedMessageCount)
	}

	if err := os.Remove(archive); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Save(sess); err != nil {
		t.Fatalf("retried Save failed: %v", err)
	}
	archived, err := store.Archive(sess.ID)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if len(archived) != 2 || archived[0].Content != "one" || sess.TruncatedMessageCount != 2 {
		t.Errorf("archived = %+v truncated = %d", archived, sess.TruncatedMessageCount)
	}
}

func TestFileStore_ListSortedByUpdate(t *testing.T) {
	store := newTestStore(t, 100)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"old", "newest", "middle"}
	offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
	for i, name := range names {
		sess := New(name, "", models.Kind2D, "")
		sess.UpdatedAt = base.Add(offsets[i])
		if err := store.Save(sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	// Stray files must not break listing.
	os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0644)

	list, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(list))
	}
	for i, want := range []string{"newest", "middle", "old"} {
		if list[i].ProjectName != want {
			t.Errorf("List[%d] = %q, want %q", i, list[i].ProjectName, want)
		}
	}

	latest, err := store.Latest()
	if err != nil || latest.Project.Name != "newest" {
		t.Errorf("Latest = %v, %v", latest, err)
	}
}

func TestFileStore_Delete(t *testing.T) {
	store := newTestStore(t, 100)
	sess, _ := store.Create("p", "", models.Kind2D, "")

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v", err)
	}
	if err := store.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}

type fakeIndex struct {
	entries map[string]IndexEntry
}

func (f *fakeIndex) PutSession(e IndexEntry) error {
	f.entries[e.ID] = e
	return nil
}

func (f *fakeIndex) SessionChecksum(id string) (string, error) {
	return f.entries[id].Checksum, nil
}

func TestFileStore_Index(t *testing.T) {
	idx := &fakeIndex{entries: map[string]IndexEntry{}}
	store := newTestStore(t, 100, WithIndex(idx))

	sess, err := store.Create("Indexed", "", models.Kind2D, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	e, ok := idx.entries[sess.ID]
	if !ok {
		t.Fatal("session not indexed on create")
	}
	if e.ProjectName != "Indexed" || len(e.Checksum) != 64 {
		t.Errorf("entry = %+v", e)
	}

	data, err := os.ReadFile(e.Path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if checksum(data) != e.Checksum {
		t.Error("indexed checksum does not match document")
	}
}
