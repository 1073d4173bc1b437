// Package pathlist manipulates PATH-like variable values as ordered,
// platform-aware entry lists.
package pathlist

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
)

// List is an ordered sequence of PATH entries. Entries keep their
// original spelling; comparisons go through a normalized form.
type List struct {
	entries []string
	windows bool
}

// New splits value on the current platform's separator, dropping empty
// segments.
func New(value string) *List {
	return NewForPlatform(value, runtime.GOOS == "windows")
}

// NewForPlatform is New with the platform conventions chosen by the
// caller. Used directly by tests covering both families.
func NewForPlatform(value string, windows bool) *List {
	l := &List{windows: windows}
	for _, seg := range strings.Split(value, l.separator()) {
		if seg != "" {
			l.entries = append(l.entries, seg)
		}
	}
	return l
}

func (l *List) separator() string {
	if l.windows {
		return ";"
	}
	return ":"
}

// normalize produces the canonical comparison form: trailing slashes
// stripped, separators folded to the native direction, and case folded
// on case-insensitive filesystems.
func (l *List) normalize(p string) string {
	for len(p) > 1 && (strings.HasSuffix(p, "/") || strings.HasSuffix(p, `\`)) {
		p = p[:len(p)-1]
	}
	if l.windows {
		return strings.ToLower(strings.ReplaceAll(p, "/", `\`))
	}
	return strings.ReplaceAll(p, `\`, "/")
}

// Entries returns a copy of the entries in order.
func (l *List) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Contains reports whether path is present, compared in normalized form.
func (l *List) Contains(path string) bool {
	return l.FindIndex(path) >= 0
}

// FindIndex returns the index of the first entry equal to path in
// normalized form, or -1.
func (l *List) FindIndex(path string) int {
	want := l.normalize(path)
	for i, e := range l.entries {
		if l.normalize(e) == want {
			return i
		}
	}
	return -1
}

// AddFirst prepends an entry.
func (l *List) AddFirst(path string) {
	l.entries = append([]string{path}, l.entries...)
}

// AddLast appends an entry.
func (l *List) AddLast(path string) {
	l.entries = append(l.entries, path)
}

// RemoveFirst removes the first normalized match and reports whether
// anything was removed.
func (l *List) RemoveFirst(path string) bool {
	i := l.FindIndex(path)
	if i < 0 {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

// RemoveAll removes every normalized match and returns the count.
func (l *List) RemoveAll(path string) int {
	want := l.normalize(path)
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if l.normalize(e) == want {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// Move removes the entry at from and reinserts it at to. Equal indices
// are a no-op; either index out of range is an error.
func (l *List) Move(from, to int) error {
	if from < 0 || from >= len(l.entries) || to < 0 || to >= len(l.entries) {
		return fmt.Errorf("%w: move %d -> %d with %d entries", apperr.ErrOutOfBounds, from, to, len(l.entries))
	}
	if from == to {
		return nil
	}
	e := l.entries[from]
	l.entries = append(l.entries[:from], l.entries[from+1:]...)
	rest := append([]string{e}, l.entries[to:]...)
	l.entries = append(l.entries[:to], rest...)
	return nil
}

// Invalid returns entries whose path does not exist on disk.
func (l *List) Invalid() []string {
	var out []string
	for _, e := range l.entries {
		if _, err := os.Stat(e); err != nil {
			out = append(out, e)
		}
	}
	return out
}

// RemoveInvalid drops entries whose path does not exist and returns
// the count.
func (l *List) RemoveInvalid() int {
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if _, err := os.Stat(e); err != nil {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// Duplicates returns entries (original spelling) whose normalized form
// already appeared earlier in the list. The first occurrence is not
// reported.
func (l *List) Duplicates() []string {
	seen := make(map[string]bool, len(l.entries))
	var out []string
	for _, e := range l.entries {
		n := l.normalize(e)
		if seen[n] {
			out = append(out, e)
			continue
		}
		seen[n] = true
	}
	return out
}

// Dedupe removes duplicate entries, keeping the first occurrence of
// each normalized form when keepFirst is true and the last otherwise.
// Returns the number of removed entries.
func (l *List) Dedupe(keepFirst bool) int {
	before := len(l.entries)
	if keepFirst {
		seen := make(map[string]bool, before)
		kept := l.entries[:0]
		for _, e := range l.entries {
			n := l.normalize(e)
			if seen[n] {
				continue
			}
			seen[n] = true
			kept = append(kept, e)
		}
		l.entries = kept
		return before - len(l.entries)
	}

	seen := make(map[string]bool, before)
	var reversed []string
	for i := len(l.entries) - 1; i >= 0; i-- {
		n := l.normalize(l.entries[i])
		if seen[n] {
			continue
		}
		seen[n] = true
		reversed = append(reversed, l.entries[i])
	}
	out := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		out = append(out, reversed[i])
	}
	l.entries = out
	return before - len(l.entries)
}

// String joins the entries with the platform separator.
func (l *List) String() string {
	return strings.Join(l.entries, l.separator())
}
