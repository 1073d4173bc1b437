package envfile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mikeleppane/envx-sub000/internal/envstore"
)

// Exporter renders a set of variable records into any supported
// textual format. With metadata enabled, a header and per-variable
// provenance comments are added.
type Exporter struct {
	vars            []*envstore.Variable
	includeMetadata bool
}

// NewExporter stages vars for export.
func NewExporter(vars []*envstore.Variable) *Exporter {
	return &Exporter{vars: vars}
}

// IncludeMetadata toggles the header and provenance comments.
func (e *Exporter) IncludeMetadata(on bool) {
	e.includeMetadata = on
}

// Count returns the number of variables staged for export.
func (e *Exporter) Count() int {
	return len(e.vars)
}

// Export renders the staged variables in the given format.
func (e *Exporter) Export(format Format) ([]byte, error) {
	switch format {
	case FormatDotenv:
		return []byte(e.toDotenv()), nil
	case FormatJSON:
		return e.toJSON()
	case FormatYAML:
		return []byte(e.toYAML()), nil
	case FormatText:
		return []byte(e.toText()), nil
	case FormatShell:
		return []byte(e.toShell()), nil
	case FormatPowerShell:
		return []byte(e.toPowerShell()), nil
	}
	return nil, fmt.Errorf("envfile: unsupported export format %q", format)
}

func (e *Exporter) header(b *strings.Builder) {
	fmt.Fprintf(b, "# Environment variables exported by envx\n")
	fmt.Fprintf(b, "# Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(b, "# Count: %d\n\n", len(e.vars))
}

func (e *Exporter) provenance(b *strings.Builder, v *envstore.Variable) {
	fmt.Fprintf(b, "# Source: %s, Modified: %s\n", v.Source, v.Modified.Format(time.RFC3339))
}

// toDotenv quotes values containing whitespace, =, #, quotes, or
// control characters. Only " \n \r \t are escaped; backslashes pass
// through so Windows paths survive a round trip.
func (e *Exporter) toDotenv() string {
	var b strings.Builder
	if e.includeMetadata {
		e.header(&b)
	}
	for _, v := range e.vars {
		if e.includeMetadata {
			e.provenance(&b, v)
		}
		fmt.Fprintf(&b, "%s=%s\n", v.Name, quoteDotenv(v.Value))
	}
	return b.String()
}

func needsQuoting(v string) bool {
	return strings.ContainsAny(v, " \t=#\"'\n\r")
}

func quoteDotenv(v string) string {
	if !needsQuoting(v) {
		return v
	}
	return `"` + escapeMinimal(v) + `"`
}

// escapeMinimal escapes the quote and control characters only, never
// backslashes.
func escapeMinimal(v string) string {
	r := strings.NewReplacer(
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(v)
}

func (e *Exporter) toJSON() ([]byte, error) {
	if e.includeMetadata {
		doc := struct {
			ExportedAt time.Time            `json:"exported_at"`
			Count      int                  `json:"count"`
			Variables  []*envstore.Variable `json:"variables"`
		}{
			ExportedAt: time.Now(),
			Count:      len(e.vars),
			Variables:  e.vars,
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("envfile: json export: %w", err)
		}
		return data, nil
	}

	flat := make(map[string]string, len(e.vars))
	for _, v := range e.vars {
		flat[v.Name] = v.Value
	}
	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("envfile: json export: %w", err)
	}
	return data, nil
}

func (e *Exporter) toYAML() string {
	var b strings.Builder
	if e.includeMetadata {
		e.header(&b)
	}
	for _, v := range e.vars {
		if e.includeMetadata {
			e.provenance(&b, v)
		}
		fmt.Fprintf(&b, "%s: %s\n", v.Name, quoteYAML(v.Value))
	}
	return b.String()
}

func quoteYAML(v string) string {
	needs := strings.ContainsAny(v, ":#\"'\n\r\t") ||
		strings.HasPrefix(v, " ") || strings.HasSuffix(v, " ")
	if !needs && v != "" {
		switch v[0] {
		case '-', '*', '&', '!', '[', '{', '>', '|':
			needs = true
		}
	}
	if !needs {
		return v
	}
	return `"` + escapeMinimal(v) + `"`
}

func (e *Exporter) toText() string {
	var b strings.Builder
	if e.includeMetadata {
		e.header(&b)
	}
	for _, v := range e.vars {
		if e.includeMetadata {
			e.provenance(&b, v)
		}
		fmt.Fprintf(&b, "%s=%s\n", v.Name, v.Value)
	}
	return b.String()
}

// toPowerShell escapes with the backtick character: ` doubles and "
// becomes `".
func (e *Exporter) toPowerShell() string {
	var b strings.Builder
	if e.includeMetadata {
		e.header(&b)
	}
	r := strings.NewReplacer("`", "``", `"`, "`\"")
	for _, v := range e.vars {
		if e.includeMetadata {
			e.provenance(&b, v)
		}
		fmt.Fprintf(&b, "$env:%s = \"%s\"\n", v.Name, r.Replace(v.Value))
	}
	return b.String()
}

// toShell emits export lines. Unlike dotenv, backslashes and dollar
// signs must be escaped inside double quotes here.
func (e *Exporter) toShell() string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	if e.includeMetadata {
		e.header(&b)
	} else {
		b.WriteString("\n")
	}
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`$`, `\$`,
		"`", "\\`",
	)
	for _, v := range e.vars {
		if e.includeMetadata {
			e.provenance(&b, v)
		}
		fmt.Fprintf(&b, "export %s=\"%s\"\n", v.Name, r.Replace(v.Value))
	}
	return b.String()
}
