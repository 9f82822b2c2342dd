package storage

import (
	"path/filepath"
	"testing"

	"hitbeacon/internal/tracker"
)

var (
	_ tracker.Storage = (*Memory)(nil)
	_ tracker.Storage = (*SQLite)(nil)
)

func TestMemoryGetSet(t *testing.T) {
	store := NewMemory()

	if _, ok, err := store.Get("missing"); ok || err != nil {
		t.Fatalf("Get(missing): ok=%v err=%v", ok, err)
	}
	if err := store.Set(tracker.SessionKey, "123"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if value, ok, _ := store.Get(tracker.SessionKey); !ok || value != "123" {
		t.Fatalf("Get(): got=(%q,%v)", value, ok)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	store, err := OpenSQLite(path, "tab-1")
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	if _, ok, err := store.Get(tracker.SessionKey); ok || err != nil {
		t.Fatalf("Get() on fresh db: ok=%v err=%v", ok, err)
	}
	if err := store.Set(tracker.SessionKey, "first"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set(tracker.SessionKey, "second"); err != nil {
		t.Fatalf("overwrite Set() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := OpenSQLite(path, "tab-1")
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	if value, ok, err := reopened.Get(tracker.SessionKey); err != nil || !ok || value != "second" {
		t.Fatalf("Get() after reopen: got=(%q,%v) err=%v", value, ok, err)
	}
}

func TestSQLiteScopesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	tabA, err := OpenSQLite(path, "tab-a")
	if err != nil {
		t.Fatalf("OpenSQLite(tab-a) error: %v", err)
	}
	defer tabA.Close()
	if err := tabA.Set(tracker.SessionKey, "a"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	tabB, err := OpenSQLite(path, "tab-b")
	if err != nil {
		t.Fatalf("OpenSQLite(tab-b) error: %v", err)
	}
	defer tabB.Close()
	if _, ok, err := tabB.Get(tracker.SessionKey); ok || err != nil {
		t.Fatalf("scope leak: ok=%v err=%v", ok, err)
	}
}
