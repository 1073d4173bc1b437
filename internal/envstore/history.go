package envstore

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind enumerates the mutations the history can describe.
type ActionKind string

const (
	ActionSet    ActionKind = "set"
	ActionDelete ActionKind = "delete"
)

// Action describes a single state transition of the store.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Name     string     `json:"name"`
	OldValue *string    `json:"old_value,omitempty"`
	NewValue string     `json:"new_value,omitempty"`
}

// HistoryEntry is one recorded mutation.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
}

// History is a bounded append-only log of mutations. When full, the
// oldest entry is dropped on push.
type History struct {
	max     int
	entries []HistoryEntry
}

// DefaultHistoryLimit bounds the undo log of a store.
const DefaultHistoryLimit = 100

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistoryLimit
	}
	return &History{max: max}
}

// Push appends an action, evicting the oldest entry when at capacity.
func (h *History) Push(a Action) {
	if len(h.entries) >= h.max {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    a,
	})
}

// Pop removes and returns the most recent entry.
func (h *History) Pop() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	e := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return e, true
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Recent returns up to count entries, newest first.
func (h *History) Recent(count int) []HistoryEntry {
	if count > len(h.entries) {
		count = len(h.entries)
	}
	out := make([]HistoryEntry, 0, count)
	for i := len(h.entries) - 1; i >= len(h.entries)-count; i-- {
		out = append(out, h.entries[i])
	}
	return out
}
