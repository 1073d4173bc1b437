// Package testutil provides shared test helpers for setting up stores,
// data directories, and journals.
package testutil

import (
	"os"
	"testing"

	"github.com/mikeleppane/envx-sub000/internal/envstore"
	"github.com/mikeleppane/envx-sub000/internal/journal"
	"github.com/mikeleppane/envx-sub000/internal/platform"
	"github.com/mikeleppane/envx-sub000/internal/storage"
)

// TestJournal creates a temporary SQLite journal that is automatically
// cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "envx-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataDir creates a temporary data directory with a storage.Dir.
func TestDataDir(t *testing.T) (string, *storage.Dir) {
	t.Helper()
	dataDir := t.TempDir()
	dir, err := storage.New(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	return dataDir, dir
}

// TestStore creates a variable store backed by an in-memory platform
// backend, so tests never touch the real persistent environment.
func TestStore(t *testing.T) (*envstore.Store, *platform.Memory) {
	t.Helper()
	backend := platform.NewMemory()
	return envstore.New(backend), backend
}
