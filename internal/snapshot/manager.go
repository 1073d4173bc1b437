package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/storage"
)

const snapshotsDir = "snapshots"

// Restorer is the subset of the variable store Restore drives.
type Restorer interface {
	Clear()
	Set(name, value string, persistent bool) error
}

// Diff is the pairwise comparison of two snapshots.
type Diff struct {
	Added    map[string]string    `json:"added"`
	Removed  map[string]string    `json:"removed"`
	Modified map[string][2]string `json:"modified"`
}

// Manager persists snapshots under <data>/snapshots/<id>.json.
type Manager struct {
	dir *storage.Dir
}

// NewManager returns a manager storing snapshots in dir.
func NewManager(dir *storage.Dir) *Manager {
	return &Manager{dir: dir}
}

func snapshotPath(id string) string {
	return path.Join(snapshotsDir, id+".json")
}

// Create captures a new snapshot and writes it to disk.
func (m *Manager) Create(s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := m.dir.Write(snapshotPath(s.ID), data); err != nil {
		return fmt.Errorf("snapshot: save: %w", err)
	}
	return nil
}

// List returns all snapshots sorted by creation time, newest first.
// Files that fail to parse are skipped with a warning.
func (m *Manager) List() ([]*Snapshot, error) {
	files, err := m.dir.List(".json")
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	var out []*Snapshot
	for _, f := range files {
		if path.Dir(f) != snapshotsDir {
			continue
		}
		data, err := m.dir.Read(f)
		if err != nil {
			slog.Warn("snapshot: unreadable file skipped", slog.String("path", f), slog.String("error", err.Error()))
			continue
		}
		var s Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			slog.Warn("snapshot: unparseable file skipped", slog.String("path", f), slog.String("error", err.Error()))
			continue
		}
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get resolves a snapshot by id (exact file) first, then by the first
// name match in newest-first order. The integrity checksum is verified.
func (m *Manager) Get(idOrName string) (*Snapshot, error) {
	if data, err := m.dir.Read(snapshotPath(idOrName)); err == nil {
		var s Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: snapshot %s: %v", apperr.ErrParse, idOrName, err)
		}
		return m.checked(&s)
	}

	all, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.Name == idOrName {
			return m.checked(s)
		}
	}
	return nil, fmt.Errorf("%w: snapshot %q", apperr.ErrNotFound, idOrName)
}

func (m *Manager) checked(s *Snapshot) (*Snapshot, error) {
	if !s.VerifyChecksum() {
		return nil, fmt.Errorf("%w: snapshot %s: checksum mismatch", apperr.ErrValidation, s.ID)
	}
	return s, nil
}

// Delete removes a snapshot by id or name.
func (m *Manager) Delete(idOrName string) error {
	s, err := m.Get(idOrName)
	if err != nil {
		return err
	}
	if err := m.dir.Delete(snapshotPath(s.ID)); err != nil {
		return fmt.Errorf("snapshot: delete %s: %w", s.ID, err)
	}
	return nil
}

// Restore clears the store and reinstates every captured variable as a
// persistent set.
func (m *Manager) Restore(idOrName string, store Restorer) error {
	s, err := m.Get(idOrName)
	if err != nil {
		return err
	}
	store.Clear()
	for name, v := range s.Variables {
		if err := store.Set(name, v.Value, true); err != nil {
			return fmt.Errorf("snapshot: restore %s: %w", name, err)
		}
	}
	return nil
}

// Compare diffs two snapshots by id or name.
func (m *Manager) Compare(a, b string) (*Diff, error) {
	sa, err := m.Get(a)
	if err != nil {
		return nil, err
	}
	sb, err := m.Get(b)
	if err != nil {
		return nil, err
	}

	d := &Diff{
		Added:    make(map[string]string),
		Removed:  make(map[string]string),
		Modified: make(map[string][2]string),
	}
	for name, v := range sb.Variables {
		old, ok := sa.Variables[name]
		switch {
		case !ok:
			d.Added[name] = v.Value
		case old.Value != v.Value:
			d.Modified[name] = [2]string{old.Value, v.Value}
		}
	}
	for name, v := range sa.Variables {
		if _, ok := sb.Variables[name]; !ok {
			d.Removed[name] = v.Value
		}
	}
	return d, nil
}
