package backup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauern/tokensync/internal/util"
)

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := util.CreateTempDir(t)
	store := NewStore(filepath.Join(dir, "backups"))
	store.Now = steppingClock()
	return store, dir
}

func TestCreate(t *testing.T) {
	store, dir := newTestStore(t)
	source := filepath.Join(dir, "tokens.json")
	util.WriteFile(t, source, `{"collections":[]}`)

	metadata, err := store.Create(source, Options{Description: "before apply", Tags: []string{"apply"}})
	util.AssertNoError(t, err)

	util.AssertEqual(t, metadata.Document, "tokens")
	util.AssertEqual(t, metadata.Description, "before apply")
	util.AssertEqual(t, len(metadata.Hash), 64)
	if !strings.HasSuffix(metadata.BackupPath, ".json") {
		t.Errorf("backup path %q should keep the source extension", metadata.BackupPath)
	}
	if !strings.HasPrefix(metadata.ID, "20260301-120001-") {
		t.Errorf("unexpected backup ID %q", metadata.ID)
	}
	util.AssertEqual(t, filepath.Dir(metadata.BackupPath), filepath.Join(store.Root, "tokens"))

	content, err := os.ReadFile(metadata.BackupPath)
	util.AssertNoError(t, err)
	util.AssertEqual(t, string(content), `{"collections":[]}`)

	index, err := store.LoadIndex()
	util.AssertNoError(t, err)
	if _, ok := index.Backups[metadata.ID]; !ok {
		t.Errorf("index missing backup %q", metadata.ID)
	}
}

func TestCreateMissingSource(t *testing.T) {
	store, dir := newTestStore(t)
	if _, err := store.Create(filepath.Join(dir, "missing.json"), Options{}); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestLoadIndexMissing(t *testing.T) {
	store, _ := newTestStore(t)
	index, err := store.LoadIndex()
	util.AssertNoError(t, err)
	util.AssertEqual(t, index.Version, IndexVersion)
	util.AssertEqual(t, len(index.Backups), 0)
}

func TestLoadIndexCorrupt(t *testing.T) {
	store, _ := newTestStore(t)
	util.WriteFile(t, store.IndexPath(), "not json")
	if _, err := store.LoadIndex(); err == nil {
		t.Fatal("expected error for corrupt index")
	}
}

func TestRestore(t *testing.T) {
	store, dir := newTestStore(t)
	source := filepath.Join(dir, "tokens.json")
	util.WriteFile(t, source, "original")

	metadata, err := store.Create(source, Options{})
	util.AssertNoError(t, err)

	util.WriteFile(t, source, "overwritten")

	t.Run("original location", func(t *testing.T) {
		target, err := store.Restore(metadata.ID, "")
		util.AssertNoError(t, err)
		util.AssertEqual(t, target, metadata.SourcePath)
		content, err := os.ReadFile(source)
		util.AssertNoError(t, err)
		util.AssertEqual(t, string(content), "original")
	})

	t.Run("explicit target", func(t *testing.T) {
		target := filepath.Join(dir, "restored", "tokens.json")
		_, err := store.Restore(metadata.ID, target)
		util.AssertNoError(t, err)
		content, err := os.ReadFile(target)
		util.AssertNoError(t, err)
		util.AssertEqual(t, string(content), "original")
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Restore("nope", "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestVerify(t *testing.T) {
	store, dir := newTestStore(t)
	source := filepath.Join(dir, "tokens.yaml")
	util.WriteFile(t, source, "collections: []\n")

	metadata, err := store.Create(source, Options{})
	util.AssertNoError(t, err)
	util.AssertNoError(t, store.Verify(metadata.ID))

	util.WriteFile(t, metadata.BackupPath, "tampered")
	if err := store.Verify(metadata.ID); !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}
	if _, err := store.Restore(metadata.ID, ""); !errors.Is(err, ErrCorrupted) {
		t.Errorf("restore of corrupted backup: expected ErrCorrupted, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	store, dir := newTestStore(t)
	tokens := filepath.Join(dir, "tokens.json")
	theme := filepath.Join(dir, "theme.json")

	var ids []string
	for i, path := range []string{tokens, theme, tokens} {
		util.WriteFile(t, path, strings.Repeat("x", i+1))
		m, err := store.Create(path, Options{})
		util.AssertNoError(t, err)
		ids = append(ids, m.ID)
	}

	all, err := store.List("")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(all), 3)
	// Newest first.
	util.AssertEqual(t, all[0].ID, ids[2])
	util.AssertEqual(t, all[2].ID, ids[0])

	onlyTokens, err := store.List("tokens")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(onlyTokens), 2)

	util.AssertNoError(t, store.Delete(ids[1]))
	if _, err := os.Stat(filepath.Join(store.Root, "theme")); err != nil {
		t.Fatalf("document directory should remain: %v", err)
	}
	remaining, err := store.List("theme")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(remaining), 0)

	if err := store.Delete(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	tests := []struct {
		name        string
		keep        int
		wantDeleted int
	}{
		{"keep all when zero", 0, 0},
		{"keep fewer", 2, 3},
		{"keep more than exist", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestStore(t)
			source := filepath.Join(dir, "tokens.json")
			var ids []string
			for i := range 5 {
				util.WriteFile(t, source, strings.Repeat("v", i+1))
				m, err := store.Create(source, Options{})
				util.AssertNoError(t, err)
				ids = append(ids, m.ID)
			}

			deleted, err := store.Prune("tokens", tt.keep)
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(deleted), tt.wantDeleted)

			left, err := store.List("tokens")
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(left), 5-tt.wantDeleted)
			if tt.wantDeleted > 0 {
				util.AssertEqual(t, left[0].ID, ids[4])
			}
		})
	}
}

func TestDocumentName(t *testing.T) {
	tests := map[string]string{
		"tokens.json":            "tokens",
		"/a/b/theme.tokens.yaml": "theme.tokens",
		"plain":                  "plain",
	}
	for in, want := range tests {
		util.AssertEqual(t, DocumentName(in), want)
	}
}
