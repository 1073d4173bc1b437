// Package scanner finds environment variable references in source
// trees so unused variables can be reported and cleaned up.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// maxFileSize is the largest file the scanner will read.
const maxFileSize = 10_000_000

// Usage records one reference to an environment variable.
type Usage struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Context string `json:"context"`
}

// Tracker scans configured paths for environment variable references.
type Tracker struct {
	mu             sync.Mutex
	usages         map[string][]Usage
	scanPaths      []string
	ignorePatterns []string
}

// NewTracker returns a tracker that scans the current directory and
// skips the usual dependency and build directories.
func NewTracker() *Tracker {
	return &Tracker{
		usages:    make(map[string][]Usage),
		scanPaths: []string{"."},
		ignorePatterns: []string{
			".git", "node_modules", "target", ".venv", "__pycache__",
			"dist", "build", ".envx", "vendor", ".cargo",
		},
	}
}

// AddScanPath adds a file or directory to scan.
func (t *Tracker) AddScanPath(path string) {
	t.scanPaths = append(t.scanPaths, path)
}

// SetScanPaths replaces the scan path list.
func (t *Tracker) SetScanPaths(paths []string) {
	t.scanPaths = append([]string(nil), paths...)
}

// AddIgnorePattern adds a pattern matched against path components.
func (t *Tracker) AddIgnorePattern(pattern string) {
	t.ignorePatterns = append(t.ignorePatterns, pattern)
}

// Scan walks every configured path and records all variable references.
// Previous results are discarded.
func (t *Tracker) Scan(ctx context.Context) error {
	t.mu.Lock()
	t.usages = make(map[string][]Usage)
	t.mu.Unlock()

	var files []string
	for _, path := range t.scanPaths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("scanner: stat %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if t.shouldIgnore(p) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scanner: walk %s: %w", path, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return t.scanFile(file)
		})
	}
	return g.Wait()
}

func (t *Tracker) shouldIgnore(path string) bool {
	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		for _, pattern := range t.ignorePatterns {
			if strings.Contains(component, pattern) {
				return true
			}
		}
	}
	return false
}

// scanFile skips files that vanish or become unreadable mid-scan so
// one bad file never aborts the rest of the batch.
func (t *Tracker) scanFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("skipping unreadable file", "path", path, "error", err)
		return nil
	}
	if info.Size() > maxFileSize {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("skipping unreadable file", "path", path, "error", err)
		return nil
	}
	if !utf8.Valid(data) {
		// Binary file.
		return nil
	}
	content := string(data)

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	filename := filepath.Base(path)

	p := packForExtension(ext)
	if p == nil {
		switch {
		case filename == "Makefile" || strings.HasPrefix(filename, "Makefile."):
			p = &makefilePack
		case strings.HasPrefix(content, "#!/"):
			p = &shellPack
		default:
			return nil
		}
	}

	t.scanContent(p, content, path)
	return nil
}

func (t *Tracker) scanContent(p *pack, content, path string) {
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if p.isComment != nil && p.isComment(trimmed) {
			continue
		}
		for _, re := range p.patterns {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				name := m[1]
				if _, denied := p.deny[name]; denied {
					continue
				}
				if p.denyPrefix != "" && strings.HasPrefix(name, p.denyPrefix) {
					continue
				}
				t.recordUsage(name, path, i+1, trimmed)
			}
		}
	}
}

func (t *Tracker) recordUsage(name, file string, line int, context string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, u := range t.usages[name] {
		if u.File == file && u.Line == line && u.Context == context {
			return
		}
	}
	t.usages[name] = append(t.usages[name], Usage{File: file, Line: line, Context: context})
}

// Usages returns all recorded references to one variable.
func (t *Tracker) Usages(name string) []Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Usage(nil), t.usages[name]...)
}

// UsedVariables returns the set of variables referenced anywhere.
func (t *Tracker) UsedVariables() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]struct{}, len(t.usages))
	for name := range t.usages {
		out[name] = struct{}{}
	}
	return out
}

// UsageCounts returns the number of references per variable.
func (t *Tracker) UsageCounts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.usages))
	for name, usages := range t.usages {
		out[name] = len(usages)
	}
	return out
}

// FindUnused returns the variables from the given set that are never
// referenced in the scanned code.
func (t *Tracker) FindUnused(all []string) []string {
	used := t.UsedVariables()
	var unused []string
	for _, name := range all {
		if _, ok := used[name]; !ok {
			unused = append(unused, name)
		}
	}
	return unused
}
