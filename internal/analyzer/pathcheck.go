package analyzer

import (
	"fmt"
	"os"
	"strings"
)

// PathDiagnostics checks every entry of a PATH-like value. Unlike the
// PATH engine's constructor, empty segments are kept here so they can
// be reported.
func PathDiagnostics(name, value string, windows bool) []Issue {
	sep := ":"
	if windows {
		sep = ";"
	}

	var out []Issue
	seen := make(map[string]bool)
	for i, entry := range strings.Split(value, sep) {
		if entry == "" {
			out = append(out, Issue{
				Level:   LevelWarning,
				Name:    name,
				Message: fmt.Sprintf("empty entry at position %d", i),
			})
			continue
		}

		lower := strings.ToLower(entry)
		if seen[lower] {
			out = append(out, Issue{
				Level:   LevelWarning,
				Name:    name,
				Message: fmt.Sprintf("duplicate entry %q", entry),
			})
		}
		seen[lower] = true

		if info, err := os.Stat(entry); err != nil {
			out = append(out, Issue{
				Level:   LevelError,
				Name:    name,
				Message: fmt.Sprintf("entry does not exist: %q", entry),
			})
		} else if !info.IsDir() {
			out = append(out, Issue{
				Level:   LevelError,
				Name:    name,
				Message: fmt.Sprintf("entry is not a directory: %q", entry),
			})
		}

		if strings.Contains(entry, "..") {
			out = append(out, Issue{
				Level:   LevelWarning,
				Name:    name,
				Message: fmt.Sprintf("entry contains relative traversal: %q", entry),
			})
		}

		if windows && strings.Contains(entry, "/") {
			out = append(out, Issue{
				Level:   LevelWarning,
				Name:    name,
				Message: fmt.Sprintf("entry uses forward slashes: %q", entry),
			})
		}
		if !windows && strings.Contains(entry, `\`) {
			out = append(out, Issue{
				Level:   LevelWarning,
				Name:    name,
				Message: fmt.Sprintf("entry uses backslashes: %q", entry),
			})
		}
	}
	return out
}
