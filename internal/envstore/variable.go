// Package envstore holds the unified in-memory model of the host
// environment: variables overlaid from every reachable source with
// provenance tags and an undo history.
package envstore

import "time"

// SourceKind identifies where a variable was last read from or written to.
type SourceKind string

const (
	SourceSystem      SourceKind = "system"
	SourceUser        SourceKind = "user"
	SourceProcess     SourceKind = "process"
	SourceShell       SourceKind = "shell"
	SourceApplication SourceKind = "application"
)

// Source is a provenance tag. App is set only for SourceApplication.
type Source struct {
	Kind SourceKind `json:"kind"`
	App  string     `json:"app,omitempty"`
}

func (s Source) String() string {
	if s.Kind == SourceApplication && s.App != "" {
		return string(s.Kind) + "(" + s.App + ")"
	}
	return string(s.Kind)
}

// Variable is one environment variable record. OriginalValue holds the
// value replaced by the most recent mutation, nil when the variable was
// created anew.
type Variable struct {
	Name          string    `json:"name"`
	Value         string    `json:"value"`
	Source        Source    `json:"source"`
	Modified      time.Time `json:"modified"`
	OriginalValue *string   `json:"original_value,omitempty"`
}

// Clone returns a deep copy of the record.
func (v *Variable) Clone() *Variable {
	c := *v
	if v.OriginalValue != nil {
		orig := *v.OriginalValue
		c.OriginalValue = &orig
	}
	return &c
}
