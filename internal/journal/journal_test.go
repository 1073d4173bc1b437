package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mikeleppane/envx-sub000/internal/events"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAndRecent(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	first := events.NewChange(events.VarAdded, "EDITOR", "", "vi", "")
	first.Timestamp = base
	second := events.NewChange(events.VarModified, "EDITOR", "vi", "nvim", "")
	second.Timestamp = base.Add(time.Second)

	for _, c := range []events.Change{first, second} {
		if err := db.Append(c); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != second.ID {
		t.Errorf("newest first: got %s, want %s", got[0].ID, second.ID)
	}
	if got[0].Kind != events.VarModified || got[0].NewValue != "nvim" {
		t.Errorf("row = %+v", got[0])
	}
}

func TestAppendIgnoresDuplicateID(t *testing.T) {
	db := openTestDB(t)

	c := events.NewChange(events.VarAdded, "X", "", "1", "")
	if err := db.Append(c); err != nil {
		t.Fatal(err)
	}
	if err := db.Append(c); err != nil {
		t.Fatal(err)
	}
	n, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestByVariable(t *testing.T) {
	db := openTestDB(t)

	for _, name := range []string{"A", "B", "A"} {
		if err := db.Append(events.NewChange(events.VarModified, name, "", "v", "")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ByVariable("A", 0)
	if err != nil {
		t.Fatalf("ByVariable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, c := range got {
		if c.Name != "A" {
			t.Errorf("name = %q", c.Name)
		}
	}
}

func TestPrune(t *testing.T) {
	db := openTestDB(t)

	old := events.NewChange(events.VarDeleted, "OLD", "1", "", "")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	fresh := events.NewChange(events.VarAdded, "FRESH", "", "1", "")

	if err := db.Append(old); err != nil {
		t.Fatal(err)
	}
	if err := db.Append(fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := db.Prune(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	got, err := db.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "FRESH" {
		t.Errorf("remaining = %+v", got)
	}
}
