package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/envstore"
	"github.com/mikeleppane/envx-sub000/internal/events"
	"github.com/mikeleppane/envx-sub000/internal/journal"
)

const (
	// settleDelay gives the writing process time to finish before the
	// changed file is read.
	settleDelay = 50 * time.Millisecond
	// monitorInterval is how often the system environment is polled.
	monitorInterval = time.Second
	// changeLogCap bounds the in-memory change log.
	changeLogCap = 1000
	// changeLogDrop is how many oldest entries are evicted at the cap.
	changeLogDrop = 100
)

// Store is the subset of the variable store the watcher needs.
type Store interface {
	Set(name, value string, persistent bool) error
	Get(name string) (*envstore.Variable, bool)
	List() []*envstore.Variable
	LoadAll() error
}

// Watcher watches files and the system environment and syncs changes
// according to its configuration.
type Watcher struct {
	cfg    Config
	store  Store
	broker *events.Broker
	log    *journal.DB

	mu        sync.Mutex
	changeLog []events.Change

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a watcher over the given store. Broker and journal are
// optional.
func New(cfg Config, store Store) *Watcher {
	return &Watcher{cfg: cfg, store: store}
}

// SetBroker publishes every recorded change to the broker.
func (w *Watcher) SetBroker(b *events.Broker) { w.broker = b }

// SetJournal appends every recorded change to the journal.
func (w *Watcher) SetJournal(db *journal.DB) { w.log = db }

// Start begins watching. It returns once the watch goroutines are
// running; call Stop to shut them down.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: watch config: %v", apperr.ErrValidation, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create: %w", err)
	}

	for _, path := range w.cfg.Paths {
		info, statErr := os.Stat(path)
		if statErr != nil {
			slog.Warn("watch path does not exist", "path", path)
			continue
		}
		if info.IsDir() {
			if addErr := addDirsRecursive(fsw, path); addErr != nil {
				fsw.Close()
				return fmt.Errorf("watcher: watch %s: %w", path, addErr)
			}
		} else {
			// Watch the parent so rename-based saves are seen.
			if addErr := fsw.Add(filepath.Dir(path)); addErr != nil {
				fsw.Close()
				return fmt.Errorf("watcher: watch %s: %w", path, addErr)
			}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	w.group = g

	g.Go(func() error { return w.eventLoop(ctx, fsw) })
	if w.cfg.Mode == SystemToFile || w.cfg.Mode == Bidirectional {
		g.Go(func() error { return w.systemMonitor(ctx) })
	}

	if w.cfg.LogChanges {
		slog.Info("watching", "paths", w.cfg.Paths, "mode", string(w.cfg.Mode))
	}
	return nil
}

// Stop shuts the watcher down and waits for its goroutines to exit.
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	err := w.group.Wait()
	if w.cfg.LogChanges {
		slog.Info("stopped watching")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) error {
	defer fsw.Close()

	// Each path carries its own deadline so a busy file cannot starve
	// the flush of a quiet one.
	pending := make(map[string]time.Time)
	var debounce *time.Timer
	var debounceC <-chan time.Time

	rearm := func() {
		next := time.Time{}
		for _, deadline := range pending {
			if next.IsZero() || deadline.Before(next) {
				next = deadline
			}
		}
		if next.IsZero() {
			return
		}
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		if debounce == nil {
			debounce = time.NewTimer(wait)
			debounceC = debounce.C
		} else {
			debounce.Reset(wait)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()

		case <-debounceC:
			now := time.Now()
			for path, deadline := range pending {
				if !deadline.After(now) {
					delete(pending, path)
					w.processPath(path)
				}
			}
			rearm()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fsw, ev.Name); addErr != nil {
						slog.Warn("watch new dir failed", "path", ev.Name, "error", addErr)
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[ev.Name] = time.Now().Add(w.cfg.Debounce())
			rearm()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) processPath(path string) {
	// The output file is rewritten by the system monitor; reacting to
	// it in bidirectional mode would loop forever.
	if w.cfg.Output != "" && w.cfg.Mode == Bidirectional && sameFile(path, w.cfg.Output) {
		return
	}
	if !matchesPatterns(filepath.Base(path), w.cfg.Patterns) {
		return
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil

	switch w.cfg.Mode {
	case WatchOnly:
		w.recordChange(events.NewChange(events.FileChanged, "", "", "", path))
	case FileToSystem, Bidirectional:
		if !exists {
			w.recordChange(events.NewChange(events.FileChanged, "", "", "", path))
			return
		}
		if err := w.applyFile(path); err != nil {
			slog.Warn("apply file change failed", "path", path, "error", err)
		}
	case SystemToFile:
		// File changes flow the other way in this mode.
	}
}

func (w *Watcher) applyFile(path string) error {
	if !w.cfg.AutoReload {
		return nil
	}
	time.Sleep(settleDelay)

	before := w.filteredSnapshot()

	values, err := loadFile(path)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !w.passesFilter(name) {
			continue
		}
		if err := w.store.Set(name, values[name], true); err != nil {
			return err
		}
	}

	after := w.filteredSnapshot()
	for name, value := range after {
		old, had := before[name]
		switch {
		case !had:
			w.recordChange(events.NewChange(events.VarAdded, name, "", value, path))
		case old != value:
			w.recordChange(events.NewChange(events.VarModified, name, old, value, path))
		}
	}
	for name, old := range before {
		if _, ok := after[name]; !ok {
			w.recordChange(events.NewChange(events.VarDeleted, name, old, "", path))
		}
	}
	return nil
}

func (w *Watcher) systemMonitor(ctx context.Context) error {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	// Without an output file there is nothing to populate, so report
	// only changes relative to the starting state.
	last := make(map[string]string)
	if w.cfg.Output == "" {
		last = w.filteredSnapshot()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.store.LoadAll(); err != nil {
				slog.Warn("reload environment failed", "error", err)
				continue
			}
			current := w.filteredSnapshot()
			changed := false
			for name, value := range current {
				if old, ok := last[name]; !ok {
					w.recordChange(events.NewChange(events.VarAdded, name, "", value, ""))
					changed = true
				} else if old != value {
					w.recordChange(events.NewChange(events.VarModified, name, old, value, ""))
					changed = true
				}
			}
			for name, old := range last {
				if _, ok := current[name]; !ok {
					w.recordChange(events.NewChange(events.VarDeleted, name, old, "", ""))
					changed = true
				}
			}
			if changed && w.cfg.Output != "" {
				if err := w.writeOutput(current); err != nil {
					slog.Warn("write output file failed", "path", w.cfg.Output, "error", err)
				}
			}
			last = current
		}
	}
}

func (w *Watcher) writeOutput(vars map[string]string) error {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(vars[name])
		sb.WriteByte('\n')
	}
	return os.WriteFile(w.cfg.Output, []byte(sb.String()), 0o644)
}

func (w *Watcher) filteredSnapshot() map[string]string {
	out := make(map[string]string)
	for _, v := range w.store.List() {
		if w.passesFilter(v.Name) {
			out[v.Name] = v.Value
		}
	}
	return out
}

func (w *Watcher) passesFilter(name string) bool {
	if len(w.cfg.Filter) == 0 {
		return true
	}
	for _, f := range w.cfg.Filter {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func (w *Watcher) recordChange(c events.Change) {
	w.mu.Lock()
	w.changeLog = append(w.changeLog, c)
	if len(w.changeLog) > changeLogCap {
		w.changeLog = append([]events.Change(nil), w.changeLog[changeLogDrop:]...)
	}
	w.mu.Unlock()

	if w.cfg.LogChanges {
		slog.Info("change", "kind", string(c.Kind), "name", c.Name, "path", c.Path)
	}
	if w.broker != nil {
		w.broker.Publish(c)
	}
	if w.log != nil {
		if err := w.log.Append(c); err != nil {
			slog.Warn("journal append failed", "error", err)
		}
	}
}

// ChangeLog returns a copy of the recorded changes, oldest first.
func (w *Watcher) ChangeLog() []events.Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]events.Change(nil), w.changeLog...)
}

// ExportChangeLog writes the change log to path as pretty JSON.
func (w *Watcher) ExportChangeLog(path string) error {
	data, err := json.MarshalIndent(w.ChangeLog(), "", "  ")
	if err != nil {
		return fmt.Errorf("watcher: marshal change log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("watcher: write change log: %w", err)
	}
	return nil
}

func loadFile(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("watcher: read %s: %w", path, err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperr.ErrParse, path, err)
		}
		out := make(map[string]string)
		for k, v := range doc {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out, nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("watcher: read %s: %w", path, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperr.ErrParse, path, err)
		}
		out := make(map[string]string)
		for k, v := range doc {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out, nil
	default:
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperr.ErrParse, path, err)
		}
		return values, nil
	}
}

func matchesPatterns(filename string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if strings.Contains(pattern, "*") {
			quoted := strings.ReplaceAll(pattern, ".", `\.`)
			quoted = strings.ReplaceAll(quoted, "*", ".*")
			if re, err := regexp.Compile("^" + quoted + "$"); err == nil && re.MatchString(filename) {
				return true
			}
			continue
		}
		if filename == pattern {
			return true
		}
	}
	return false
}

func sameFile(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return aa == bb
}
