package envstore

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/platform"
)

// shellPrefixes mark inherited shell-specific variables during LoadAll.
var shellPrefixes = []string{"BASH_", "ZSH_"}

// Store is the insertion-ordered variable store. All methods are safe
// for concurrent use; the watcher shares a Store across goroutines.
type Store struct {
	mu      sync.Mutex
	order   []string
	vars    map[string]*Variable
	history *History
	backend platform.Backend
}

// New creates an empty store writing persistent changes through backend.
func New(backend platform.Backend) *Store {
	return &Store{
		vars:    make(map[string]*Variable),
		history: NewHistory(DefaultHistoryLimit),
		backend: backend,
	}
}

// LoadAll populates the store from every reachable source. Order:
// process environment first, then machine-scope and user-scope
// persistent sources; the last write wins and sets the source tag.
// Names with a known shell prefix are re-tagged as shell inherited.
func (s *Store) LoadAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		src := Source{Kind: SourceProcess}
		for _, p := range shellPrefixes {
			if strings.HasPrefix(name, p) {
				src = Source{Kind: SourceShell}
				break
			}
		}
		s.insertLocked(&Variable{Name: name, Value: value, Source: src, Modified: now})
	}

	system, err := s.backend.LoadSystem()
	if err != nil {
		return fmt.Errorf("envstore: load system scope: %w", err)
	}
	for name, value := range system {
		s.insertLocked(&Variable{Name: name, Value: value, Source: Source{Kind: SourceSystem}, Modified: now})
	}

	user, err := s.backend.LoadUser()
	if err != nil {
		return fmt.Errorf("envstore: load user scope: %w", err)
	}
	for name, value := range user {
		s.insertLocked(&Variable{Name: name, Value: value, Source: Source{Kind: SourceUser}, Modified: now})
	}
	return nil
}

// Get returns a copy of the record for an exact name.
func (s *Store) Get(name string) (*Variable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[name]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// List returns copies of all records in insertion order.
func (s *Store) List() []*Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) listLocked() []*Variable {
	out := make([]*Variable, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.vars[name].Clone())
	}
	return out
}

// Len returns the number of stored variables.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vars)
}

// GetPattern returns records whose names match p. A `/…/` form is a
// regular expression, a pattern with `*` or `?` is a glob, anything
// else must match exactly.
func (s *Store) GetPattern(p string) ([]*Variable, error) {
	match, err := compilePattern(p)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Variable
	for _, name := range s.order {
		if match(name) {
			out = append(out, s.vars[name].Clone())
		}
	}
	return out, nil
}

// Search returns records whose name or value contains q, case-insensitively.
func (s *Store) Search(q string) []*Variable {
	q = strings.ToLower(q)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Variable
	for _, name := range s.order {
		v := s.vars[name]
		if strings.Contains(strings.ToLower(v.Name), q) || strings.Contains(strings.ToLower(v.Value), q) {
			out = append(out, v.Clone())
		}
	}
	return out
}

// GetPrefix returns records whose names start with prefix.
func (s *Store) GetPrefix(prefix string) []*Variable {
	return s.filter(func(v *Variable) bool { return strings.HasPrefix(v.Name, prefix) })
}

// GetSuffix returns records whose names end with suffix.
func (s *Store) GetSuffix(suffix string) []*Variable {
	return s.filter(func(v *Variable) bool { return strings.HasSuffix(v.Name, suffix) })
}

// GetContaining returns records whose names contain sub.
func (s *Store) GetContaining(sub string) []*Variable {
	return s.filter(func(v *Variable) bool { return strings.Contains(v.Name, sub) })
}

// FilterBySource returns records tagged with the given source kind.
func (s *Store) FilterBySource(kind SourceKind) []*Variable {
	return s.filter(func(v *Variable) bool { return v.Source.Kind == kind })
}

func (s *Store) filter(keep func(*Variable) bool) []*Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Variable
	for _, name := range s.order {
		if keep(s.vars[name]) {
			out = append(out, s.vars[name].Clone())
		}
	}
	return out
}

// Set records history, updates the in-memory record and the process
// environment, and, when persistent, writes through the platform
// backend with user scope. A backend failure is reported as a
// persistence error; the in-memory change is kept.
func (s *Store) Set(name, value string, persistent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(name, value, persistent)
}

func (s *Store) setLocked(name, value string, persistent bool) error {
	if name == "" || strings.Contains(name, "=") {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidName, name)
	}

	var old *string
	if prev, ok := s.vars[name]; ok {
		v := prev.Value
		old = &v
	}
	s.history.Push(Action{Kind: ActionSet, Name: name, OldValue: old, NewValue: value})

	src := Source{Kind: SourceProcess}
	if persistent {
		src = Source{Kind: SourceUser}
	}
	s.insertLocked(&Variable{
		Name:          name,
		Value:         value,
		Source:        src,
		Modified:      time.Now(),
		OriginalValue: old,
	})

	if err := os.Setenv(name, value); err != nil {
		return fmt.Errorf("envstore: set process env %s: %w", name, err)
	}
	if persistent {
		if err := s.backend.SetPersistent(name, value, platform.ScopeUser); err != nil {
			return fmt.Errorf("%w: %s: %v", apperr.ErrPersistence, name, err)
		}
	}
	return nil
}

// Delete removes a variable from the store and the process environment.
// Variables tagged as persistent are also removed from their scope.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(name)
}

func (s *Store) deleteLocked(name string) error {
	v, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("%w: variable %q", apperr.ErrNotFound, name)
	}
	old := v.Value
	s.history.Push(Action{Kind: ActionDelete, Name: name, OldValue: &old})
	s.removeLocked(name)

	if err := os.Unsetenv(name); err != nil {
		return fmt.Errorf("envstore: unset process env %s: %w", name, err)
	}

	switch v.Source.Kind {
	case SourceUser:
		if err := s.backend.DeletePersistent(name, platform.ScopeUser); err != nil {
			return fmt.Errorf("%w: %s: %v", apperr.ErrPersistence, name, err)
		}
	case SourceSystem:
		if err := s.backend.DeletePersistent(name, platform.ScopeSystem); err != nil {
			return fmt.Errorf("%w: %s: %v", apperr.ErrPersistence, name, err)
		}
	}
	return nil
}

// Rename moves variables to new names and returns how many were
// renamed. A pattern with a single `*` renames every match, splicing
// the matched middle into the replacement's own `*`. Renames are
// persistent writes.
func (s *Store) Rename(pattern, replacement string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.Contains(pattern, "*") {
		patParts := strings.Split(pattern, "*")
		if len(patParts) != 2 {
			return 0, fmt.Errorf("%w: rename pattern %q must contain exactly one *", apperr.ErrInvalidPattern, pattern)
		}
		repParts := strings.Split(replacement, "*")
		if len(repParts) != 2 {
			return 0, fmt.Errorf("%w: replacement %q must contain exactly one *", apperr.ErrInvalidPattern, replacement)
		}
		prefix, suffix := patParts[0], patParts[1]

		var matches []string
		for _, name := range s.order {
			if len(name) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
				matches = append(matches, name)
			}
		}
		if len(matches) == 0 {
			return 0, fmt.Errorf("%w: no variables match %q", apperr.ErrNotFound, pattern)
		}

		renamed := 0
		for _, name := range matches {
			middle := name[len(prefix) : len(name)-len(suffix)]
			newName := repParts[0] + middle + repParts[1]
			if err := s.renameOneLocked(name, newName); err != nil {
				return renamed, err
			}
			renamed++
		}
		return renamed, nil
	}

	if _, ok := s.vars[pattern]; !ok {
		return 0, fmt.Errorf("%w: variable %q", apperr.ErrNotFound, pattern)
	}
	if err := s.renameOneLocked(pattern, replacement); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Store) renameOneLocked(oldName, newName string) error {
	if _, exists := s.vars[newName]; exists {
		return fmt.Errorf("%w: variable %q", apperr.ErrAlreadyExists, newName)
	}
	value := s.vars[oldName].Value
	if err := s.setLocked(newName, value, true); err != nil {
		return err
	}
	return s.deleteLocked(oldName)
}

// Replace sets a new value for every variable matching pattern (glob
// or exact) and returns the match count. An exact pattern with no
// match is an error.
func (s *Store) Replace(pattern, value string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isWildcard(pattern) {
		match, err := compilePattern(pattern)
		if err != nil {
			return 0, err
		}
		var names []string
		for _, name := range s.order {
			if match(name) {
				names = append(names, name)
			}
		}
		for _, name := range names {
			if err := s.setLocked(name, value, true); err != nil {
				return 0, err
			}
		}
		return len(names), nil
	}

	if _, ok := s.vars[pattern]; !ok {
		return 0, fmt.Errorf("%w: variable %q", apperr.ErrNotFound, pattern)
	}
	if err := s.setLocked(pattern, value, true); err != nil {
		return 0, err
	}
	return 1, nil
}

// FindReplace substitutes all occurrences of search in the values of
// variables matching pattern (every variable when pattern is empty)
// and returns how many variables changed.
func (s *Store) FindReplace(search, replacement, pattern string) (int, error) {
	match := func(string) bool { return true }
	if pattern != "" {
		var err error
		match, err = compilePattern(pattern)
		if err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, name := range s.order {
		if match(name) && strings.Contains(s.vars[name].Value, search) {
			names = append(names, name)
		}
	}
	for _, name := range names {
		newValue := strings.ReplaceAll(s.vars[name].Value, search, replacement)
		if err := s.setLocked(name, newValue, true); err != nil {
			return 0, err
		}
	}
	return len(names), nil
}

// Undo pops the most recent history entry and applies its inverse.
// The restoration itself is not recorded.
func (s *Store) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.history.Pop()
	if !ok {
		return fmt.Errorf("%w: nothing to undo", apperr.ErrNotFound)
	}

	a := entry.Action
	switch a.Kind {
	case ActionSet:
		if a.OldValue == nil {
			s.removeLocked(a.Name)
			if err := os.Unsetenv(a.Name); err != nil {
				return fmt.Errorf("envstore: undo unset %s: %w", a.Name, err)
			}
			return nil
		}
		return s.restoreLocked(a.Name, *a.OldValue)
	case ActionDelete:
		if a.OldValue == nil {
			return nil
		}
		return s.restoreLocked(a.Name, *a.OldValue)
	}
	return nil
}

func (s *Store) restoreLocked(name, value string) error {
	s.insertLocked(&Variable{
		Name:     name,
		Value:    value,
		Source:   Source{Kind: SourceProcess},
		Modified: time.Now(),
	})
	if err := os.Setenv(name, value); err != nil {
		return fmt.Errorf("envstore: undo set %s: %w", name, err)
	}
	return nil
}

// Clear drops every record. History is preserved.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.vars = make(map[string]*Variable)
}

// HistoryLen returns the number of recorded mutations.
func (s *Store) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// RecentHistory returns up to count history entries, newest first.
func (s *Store) RecentHistory(count int) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(count)
}

// insertLocked adds or replaces a record, preserving insertion order
// for names already present.
func (s *Store) insertLocked(v *Variable) {
	if _, exists := s.vars[v.Name]; !exists {
		s.order = append(s.order, v.Name)
	}
	s.vars[v.Name] = v
}

func (s *Store) removeLocked(name string) {
	if _, exists := s.vars[name]; !exists {
		return
	}
	delete(s.vars, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
