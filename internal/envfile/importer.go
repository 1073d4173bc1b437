package envfile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/envstore"
)

// Entry is one staged (name, value) pair in file order.
type Entry struct {
	Name  string
	Value string
}

// Setter is the subset of the variable store Apply writes through.
type Setter interface {
	Set(name, value string, persistent bool) error
}

// Importer parses a file into staged entries, applies transforms, and
// commits them to the store.
type Importer struct {
	format  Format
	entries []Entry
}

// NewImporter creates an importer for the given format.
func NewImporter(format Format) *Importer {
	return &Importer{format: format}
}

// Load reads and parses a file. The previously staged entries are
// replaced.
func (im *Importer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("envfile: read %s: %w", path, err)
	}
	return im.Parse(data)
}

// Parse stages entries from raw file content.
func (im *Importer) Parse(data []byte) error {
	var (
		entries []Entry
		err     error
	)
	switch im.format {
	case FormatJSON:
		entries, err = parseJSON(data)
	case FormatYAML:
		entries, err = parseYAML(data)
	default:
		// Dotenv and text share one grammar.
		entries, err = ParseDotenv(data)
	}
	if err != nil {
		return err
	}
	im.entries = entries
	return nil
}

// Entries returns the staged entries in order.
func (im *Importer) Entries() []Entry {
	out := make([]Entry, len(im.entries))
	copy(out, im.entries)
	return out
}

// Count returns the number of staged entries.
func (im *Importer) Count() int {
	return len(im.entries)
}

// FilterByPatterns keeps only entries whose name matches at least one
// of the given glob or exact patterns.
func (im *Importer) FilterByPatterns(patterns []string) error {
	if len(patterns) == 0 {
		return nil
	}
	kept := im.entries[:0]
	for _, e := range im.entries {
		for _, p := range patterns {
			ok, err := envstore.MatchPattern(p, e.Name)
			if err != nil {
				return err
			}
			if ok {
				kept = append(kept, e)
				break
			}
		}
	}
	im.entries = kept
	return nil
}

// AddPrefix renames every staged entry to prefix+name.
func (im *Importer) AddPrefix(prefix string) {
	for i := range im.entries {
		im.entries[i].Name = prefix + im.entries[i].Name
	}
}

// Apply writes the staged entries to the store in order.
func (im *Importer) Apply(store Setter, persistent bool) error {
	for _, e := range im.entries {
		if err := store.Set(e.Name, e.Value, persistent); err != nil {
			return fmt.Errorf("envfile: apply %s: %w", e.Name, err)
		}
	}
	return nil
}

// ParseDotenv parses dotenv-grammar content. Blank lines and lines
// whose first non-blank character is # are skipped; each remaining
// line splits at the first `=`. A matched outer quote pair is
// stripped; inside double quotes the \n \r \t \" \' and \\ escapes are
// decoded while unknown escapes keep their backslash so Windows paths
// survive. Unquoted values lose a trailing ` #…` comment, the leading
// space being required so # can appear inside values.
func ParseDotenv(data []byte) ([]Entry, error) {
	var out []Entry
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, rest, found := strings.Cut(trimmed, "=")
		if !found {
			return nil, fmt.Errorf("%w: line %d: missing '='", apperr.ErrParse, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: line %d: empty key", apperr.ErrParse, i+1)
		}
		if strings.ContainsFunc(key, unicode.IsSpace) {
			return nil, fmt.Errorf("%w: line %d: key %q contains whitespace", apperr.ErrParse, i+1, key)
		}
		out = append(out, Entry{Name: key, Value: parseDotenvValue(strings.TrimSpace(rest))})
	}
	return out, nil
}

func parseDotenvValue(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return unescapeQuoted(v[1 : len(v)-1])
		}
	}
	// Unquoted: strip a trailing comment introduced by " #".
	if idx := strings.Index(v, " #"); idx >= 0 {
		v = v[:idx]
	}
	return strings.TrimRight(v, " \t")
}

// unescapeQuoted decodes the small escape set dotenv emission uses.
// Unknown escapes keep their backslash.
func unescapeQuoted(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 >= len(v) {
			b.WriteByte(v[i])
			continue
		}
		switch v[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(v[i+1])
		}
		i++
	}
	return b.String()
}

// parseJSON accepts either a flat {name: value} object or the wrapped
// {variables: [{name, value}, …]} export shape. Non-string values in
// the flat form are ignored.
func parseJSON(data []byte) ([]Entry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: json: %v", apperr.ErrParse, err)
	}

	if wrapped, ok := raw["variables"]; ok {
		var vars []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(wrapped, &vars); err != nil {
			return nil, fmt.Errorf("%w: json variables: %v", apperr.ErrParse, err)
		}
		out := make([]Entry, 0, len(vars))
		for _, v := range vars {
			out = append(out, Entry{Name: v.Name, Value: v.Value})
		}
		return out, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Entry
	for _, name := range names {
		var value string
		if err := json.Unmarshal(raw[name], &value); err != nil {
			continue
		}
		out = append(out, Entry{Name: name, Value: value})
	}
	return out, nil
}

// parseYAML treats the document as a flat key: value mapping, stripping
// matched quotes and stopping at a `---` document separator.
func parseYAML(data []byte) ([]Entry, error) {
	var out []Entry
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, rest, found := strings.Cut(trimmed, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(rest)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = unescapeQuoted(value[1 : len(value)-1])
			}
		}
		out = append(out, Entry{Name: key, Value: value})
	}
	return out, nil
}
