package watcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mikeleppane/envx-sub000/internal/envstore"
	"github.com/mikeleppane/envx-sub000/internal/events"
)

type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Set(name, value string, persistent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
	return nil
}

func (f *fakeStore) Get(name string) (*envstore.Variable, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	if !ok {
		return nil, false
	}
	return &envstore.Variable{Name: name, Value: v}, true
}

func (f *fakeStore) List() []*envstore.Variable {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.values))
	for name := range f.values {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*envstore.Variable, 0, len(names))
	for _, name := range names {
		out = append(out, &envstore.Variable{Name: name, Value: f.values[name]})
	}
	return out
}

func (f *fakeStore) LoadAll() error { return nil }

func (f *fakeStore) get(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func testConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.Paths = []string{dir}
	cfg.DebounceMS = 50
	cfg.LogChanges = false
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Mode != FileToSystem {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.Debounce() != 300*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Debounce())
	}
	if len(cfg.Patterns) != 5 {
		t.Errorf("patterns = %v", cfg.Patterns)
	}
	if !cfg.AutoReload || !cfg.LogChanges {
		t.Error("auto_reload and log_changes should default to true")
	}
	if cfg.Conflict != UseLatest {
		t.Errorf("conflict = %q", cfg.Conflict)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfigValidateRejectsBadMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfigValidateConflictStrategies(t *testing.T) {
	cfg := DefaultConfig()
	for _, s := range []ConflictStrategy{UseLatest, PreferFile, PreferSystem, AskUser, ""} {
		cfg.Conflict = s
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate(%q): %v", s, err)
		}
	}
	cfg.Conflict = "coinflip"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func TestMatchesPatterns(t *testing.T) {
	patterns := []string{"*.env", ".env.*", "*.yaml"}
	cases := []struct {
		filename string
		want     bool
	}{
		{"app.env", true},
		{".env.local", true},
		{"settings.yaml", true},
		{"notes.txt", false},
		{"env", false},
	}
	for _, tc := range cases {
		if got := matchesPatterns(tc.filename, patterns); got != tc.want {
			t.Errorf("matchesPatterns(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
	if !matchesPatterns("anything", nil) {
		t.Error("empty pattern list should match everything")
	}
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()

	envPath := filepath.Join(dir, "vars.env")
	os.WriteFile(envPath, []byte("A=1\nB=two\n"), 0o644)
	yamlPath := filepath.Join(dir, "vars.yaml")
	os.WriteFile(yamlPath, []byte("A: one\ncount: 3\n"), 0o644)
	jsonPath := filepath.Join(dir, "vars.json")
	os.WriteFile(jsonPath, []byte(`{"A":"uno","n":2}`), 0o644)

	env, err := loadFile(envPath)
	if err != nil || env["A"] != "1" || env["B"] != "two" {
		t.Errorf("env = %v, %v", env, err)
	}
	y, err := loadFile(yamlPath)
	if err != nil || y["A"] != "one" {
		t.Errorf("yaml = %v, %v", y, err)
	}
	if _, ok := y["count"]; ok {
		t.Error("non-string yaml values should be skipped")
	}
	j, err := loadFile(jsonPath)
	if err != nil || j["A"] != "uno" {
		t.Errorf("json = %v, %v", j, err)
	}
	if _, ok := j["n"]; ok {
		t.Error("non-string json values should be skipped")
	}
}

func TestFileToSystemAppliesChanges(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	w := New(testConfig(dir), store)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "app.env")
	if err := os.WriteFile(path, []byte("WATCHED_VAR=first\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return store.get("WATCHED_VAR") == "first" })

	if err := os.WriteFile(path, []byte("WATCHED_VAR=second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return store.get("WATCHED_VAR") == "second" })

	var added, modified bool
	for _, c := range w.ChangeLog() {
		switch {
		case c.Kind == events.VarAdded && c.Name == "WATCHED_VAR":
			added = true
		case c.Kind == events.VarModified && c.Name == "WATCHED_VAR":
			modified = true
		}
	}
	if !added || !modified {
		t.Errorf("change log missing events: %+v", w.ChangeLog())
	}
}

func TestBusyFileDoesNotStarveQuietOne(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.DebounceMS = 100
	store := newFakeStore()
	w := New(cfg, store)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	quiet := filepath.Join(dir, "quiet.env")
	busy := filepath.Join(dir, "busy.env")
	if err := os.WriteFile(quiet, []byte("QUIET_VAR=set\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Keep one file busy well past the quiet file's debounce window;
	// the quiet file's flush must not wait for the busy one to settle.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		os.WriteFile(busy, []byte("BUSY_VAR=x\n"), 0o644)
		if store.get("QUIET_VAR") == "set" {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("quiet file was starved by the busy one")
}

func TestVariableFilter(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Filter = []string{"APP_"}
	store := newFakeStore()
	w := New(cfg, store)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "app.env")
	os.WriteFile(path, []byte("APP_NAME=demo\nOTHER=skip\n"), 0o644)
	waitFor(t, 3*time.Second, func() bool { return store.get("APP_NAME") == "demo" })

	if store.get("OTHER") != "" {
		t.Error("filtered variable should not be set")
	}
}

func TestWatchOnlyRecordsWithoutApplying(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Mode = WatchOnly
	store := newFakeStore()
	w := New(cfg, store)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(filepath.Join(dir, "app.env"), []byte("X=1\n"), 0o644)
	waitFor(t, 3*time.Second, func() bool {
		for _, c := range w.ChangeLog() {
			if c.Kind == events.FileChanged {
				return true
			}
		}
		return false
	})

	if store.get("X") != "" {
		t.Error("watch-only mode must not apply changes")
	}
}

func TestIgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	w := New(testConfig(dir), store)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("X=1\n"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if store.get("X") != "" {
		t.Error("non-matching file should be ignored")
	}
	if len(w.ChangeLog()) != 0 {
		t.Errorf("change log = %+v", w.ChangeLog())
	}
}

func TestSystemToFileWritesOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.env")
	cfg := testConfig(dir)
	cfg.Mode = SystemToFile
	cfg.Output = output

	store := newFakeStore()
	store.Set("SYNCED", "value", false)
	w := New(cfg, store)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	waitFor(t, 4*time.Second, func() bool {
		data, err := os.ReadFile(output)
		return err == nil && string(data) == "SYNCED=value\n"
	})
}

func TestStopIsFast(t *testing.T) {
	dir := t.TempDir()
	w := New(testConfig(dir), newFakeStore())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop took %v", elapsed)
	}
}

func TestExportChangeLog(t *testing.T) {
	dir := t.TempDir()
	w := New(testConfig(dir), newFakeStore())
	w.recordChange(events.NewChange(events.VarAdded, "A", "", "1", ""))

	path := filepath.Join(dir, "log.json")
	if err := w.ExportChangeLog(path); err != nil {
		t.Fatalf("ExportChangeLog: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var log []events.Change
	if err := json.Unmarshal(data, &log); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(log) != 1 || log[0].Name != "A" {
		t.Errorf("log = %+v", log)
	}
}

func TestChangeLogEviction(t *testing.T) {
	w := New(DefaultConfig(), newFakeStore())
	w.cfg.LogChanges = false
	for i := 0; i < changeLogCap+1; i++ {
		w.recordChange(events.NewChange(events.VarAdded, "N", "", "v", ""))
	}
	if got := len(w.ChangeLog()); got != changeLogCap+1-changeLogDrop {
		t.Errorf("len = %d, want %d", got, changeLogCap+1-changeLogDrop)
	}
}
