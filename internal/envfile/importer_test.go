package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
)

func parseDotenvEntries(t *testing.T, content string) []Entry {
	t.Helper()
	entries, err := ParseDotenv([]byte(content))
	if err != nil {
		t.Fatalf("ParseDotenv: %v", err)
	}
	return entries
}

func TestParseDotenvBasics(t *testing.T) {
	entries := parseDotenvEntries(t, "\n# comment\nFOO=bar\n  BAZ=qux  \n")
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries[0] != (Entry{"FOO", "bar"}) || entries[1] != (Entry{"BAZ", "qux"}) {
		t.Errorf("entries = %v", entries)
	}
}

func TestParseDotenvSplitsAtFirstEquals(t *testing.T) {
	entries := parseDotenvEntries(t, "URL=key=value&x=1\n")
	if entries[0].Value != "key=value&x=1" {
		t.Errorf("value = %q", entries[0].Value)
	}
}

func TestParseDotenvQuotedEscapes(t *testing.T) {
	entries := parseDotenvEntries(t, `FOO="a\nb"`+"\nBAR=c # note\n")
	if entries[0].Value != "a\nb" {
		t.Errorf("FOO = %q, want literal newline", entries[0].Value)
	}
	if entries[1].Value != "c" {
		t.Errorf("BAR = %q, want trailing comment stripped", entries[1].Value)
	}
}

func TestParseDotenvKeepsUnknownBackslashes(t *testing.T) {
	entries := parseDotenvEntries(t, `WINPATH="C:\Users\dev"`+"\n")
	if entries[0].Value != `C:\Users\dev` {
		t.Errorf("value = %q, want backslashes preserved", entries[0].Value)
	}
}

func TestParseDotenvSingleQuotes(t *testing.T) {
	entries := parseDotenvEntries(t, "MSG='hello world'\n")
	if entries[0].Value != "hello world" {
		t.Errorf("value = %q", entries[0].Value)
	}
}

func TestParseDotenvHashInsideValueNeedsSpaceToComment(t *testing.T) {
	entries := parseDotenvEntries(t, "COLOR=#ff0000\nNOTE=value # trailing\n")
	if entries[0].Value != "#ff0000" {
		t.Errorf("COLOR = %q, want hash kept", entries[0].Value)
	}
	if entries[1].Value != "value" {
		t.Errorf("NOTE = %q", entries[1].Value)
	}
}

func TestParseDotenvRejectsBadKeys(t *testing.T) {
	for _, content := range []string{"=value\n", "BAD KEY=value\n", "NOEQUALS\n"} {
		if _, err := ParseDotenv([]byte(content)); !errors.Is(err, apperr.ErrParse) {
			t.Errorf("ParseDotenv(%q) = %v, want ErrParse", content, err)
		}
	}
}

func TestParseJSONFlat(t *testing.T) {
	im := NewImporter(FormatJSON)
	if err := im.Parse([]byte(`{"B": "2", "A": "1", "N": 42}`)); err != nil {
		t.Fatal(err)
	}
	entries := im.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want non-string values ignored", entries)
	}
	if entries[0] != (Entry{"A", "1"}) || entries[1] != (Entry{"B", "2"}) {
		t.Errorf("entries = %v", entries)
	}
}

func TestParseJSONWrapped(t *testing.T) {
	im := NewImporter(FormatJSON)
	doc := `{"exported_at": "2024-01-01T00:00:00Z", "count": 2,
		"variables": [{"name": "X", "value": "1"}, {"name": "Y", "value": "2"}]}`
	if err := im.Parse([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	entries := im.Entries()
	if len(entries) != 2 || entries[0] != (Entry{"X", "1"}) {
		t.Errorf("entries = %v", entries)
	}
}

func TestParseJSONMalformed(t *testing.T) {
	im := NewImporter(FormatJSON)
	if err := im.Parse([]byte(`{broken`)); !errors.Is(err, apperr.ErrParse) {
		t.Errorf("Parse = %v, want ErrParse", err)
	}
}

func TestParseYAMLFlatStopsAtSeparator(t *testing.T) {
	im := NewImporter(FormatYAML)
	doc := "# comment\nA: 1\nB: \"two words\"\n---\nC: dropped\n"
	if err := im.Parse([]byte(doc)); err != nil {
		t.Fatal(err)
	}
	entries := im.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries[1].Value != "two words" {
		t.Errorf("B = %q", entries[1].Value)
	}
}

func TestFilterByPatterns(t *testing.T) {
	im := NewImporter(FormatDotenv)
	if err := im.Parse([]byte("API_KEY=1\nAPI_URL=2\nDB_URL=3\nHOME=4\n")); err != nil {
		t.Fatal(err)
	}
	if err := im.FilterByPatterns([]string{"API_*", "HOME"}); err != nil {
		t.Fatal(err)
	}
	entries := im.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %v", entries)
	}
	for _, e := range entries {
		if e.Name == "DB_URL" {
			t.Error("DB_URL should have been filtered out")
		}
	}
}

func TestAddPrefix(t *testing.T) {
	im := NewImporter(FormatDotenv)
	if err := im.Parse([]byte("KEY=1\n")); err != nil {
		t.Fatal(err)
	}
	im.AddPrefix("APP_")
	if im.Entries()[0].Name != "APP_KEY" {
		t.Errorf("name = %q", im.Entries()[0].Name)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("FROM_FILE=yes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	im := NewImporter(DetectFormat(path))
	if err := im.Load(path); err != nil {
		t.Fatal(err)
	}
	if im.Count() != 1 || im.Entries()[0].Name != "FROM_FILE" {
		t.Errorf("entries = %v", im.Entries())
	}
}

type recordingSetter struct {
	order []Entry
}

func (r *recordingSetter) Set(name, value string, _ bool) error {
	r.order = append(r.order, Entry{name, value})
	return nil
}

func TestApplyWritesInFileOrder(t *testing.T) {
	im := NewImporter(FormatDotenv)
	if err := im.Parse([]byte("B=2\nA=1\n")); err != nil {
		t.Fatal(err)
	}
	s := &recordingSetter{}
	if err := im.Apply(s, true); err != nil {
		t.Fatal(err)
	}
	if len(s.order) != 2 || s.order[0].Name != "B" || s.order[1].Name != "A" {
		t.Errorf("order = %v", s.order)
	}
}
