// Package analyzer inspects the variable store for duplicates, name
// problems, PATH-value defects, and cross-variable references.
package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/mikeleppane/envx-sub000/internal/envstore"
)

// Level is the severity of a reported issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue is one finding about a variable.
type Issue struct {
	Level   Level  `json:"level"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

var (
	refPercent = regexp.MustCompile(`%(\w+)%`)
	refBraced  = regexp.MustCompile(`\$\{(\w+)\}`)
	refPlain   = regexp.MustCompile(`\$(\w+)`)
)

// FindDuplicates groups variables whose names collide case-insensitively.
// The key is the uppercased name; only groups with more than one member
// are returned.
func FindDuplicates(vars []*envstore.Variable) map[string][]*envstore.Variable {
	groups := make(map[string][]*envstore.Variable)
	for _, v := range vars {
		key := strings.ToUpper(v.Name)
		groups[key] = append(groups[key], v)
	}
	for key, group := range groups {
		if len(group) < 2 {
			delete(groups, key)
		}
	}
	return groups
}

// ValidateName reports structural problems with a variable name.
func ValidateName(name string) []Issue {
	var out []Issue
	if name == "" {
		out = append(out, Issue{Level: LevelError, Name: name, Message: "variable name is empty"})
		return out
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		out = append(out, Issue{Level: LevelError, Name: name, Message: "variable name contains whitespace"})
	}
	if name[0] >= '0' && name[0] <= '9' {
		out = append(out, Issue{Level: LevelError, Name: name, Message: "variable name starts with a digit"})
	}
	return out
}

// ValidateAll validates every variable's name and, for names ending in
// PATH, the entry list inside its value.
func ValidateAll(vars []*envstore.Variable, windows bool) []Issue {
	var out []Issue
	for _, v := range vars {
		out = append(out, ValidateName(v.Name)...)
		if strings.HasSuffix(strings.ToUpper(v.Name), "PATH") {
			out = append(out, PathDiagnostics(v.Name, v.Value, windows)...)
		}
	}
	return out
}

// FindUnusedCandidates flags names that look like leftovers from manual
// backups. Heuristic only.
func FindUnusedCandidates(vars []*envstore.Variable) []string {
	var out []string
	for _, v := range vars {
		name := strings.ToUpper(v.Name)
		if strings.HasPrefix(name, "OLD_") || strings.HasPrefix(name, "BACKUP_") ||
			strings.HasSuffix(name, "_OLD") || strings.HasSuffix(name, "_BACKUP") {
			out = append(out, v.Name)
		}
	}
	return out
}

// References extracts the names of other variables referenced inside a
// value via %NAME%, ${NAME}, or $NAME, sorted and deduplicated.
func References(value string) []string {
	seen := make(map[string]bool)
	for _, m := range refPercent.FindAllStringSubmatch(value, -1) {
		seen[m[1]] = true
	}
	for _, m := range refBraced.FindAllStringSubmatch(value, -1) {
		seen[m[1]] = true
	}
	for _, m := range refPlain.FindAllStringSubmatch(value, -1) {
		seen[m[1]] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dependencies maps each variable to the other variables its value
// references.
func Dependencies(vars []*envstore.Variable) map[string][]string {
	out := make(map[string][]string, len(vars))
	for _, v := range vars {
		if refs := References(v.Value); len(refs) > 0 {
			out[v.Name] = refs
		}
	}
	return out
}
