package envstore

import (
	"strconv"
	"testing"
)

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(Action{Kind: ActionSet, Name: "V" + strconv.Itoa(i), NewValue: "x"})
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	recent := h.Recent(3)
	if recent[0].Action.Name != "V4" || recent[2].Action.Name != "V2" {
		t.Errorf("recent = %s..%s, want V4..V2", recent[0].Action.Name, recent[2].Action.Name)
	}
}

func TestHistoryRecentIsNewestFirst(t *testing.T) {
	h := NewHistory(10)
	h.Push(Action{Kind: ActionSet, Name: "A"})
	h.Push(Action{Kind: ActionDelete, Name: "B"})

	recent := h.Recent(5)
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Action.Name != "B" || recent[1].Action.Name != "A" {
		t.Errorf("order = %s, %s; want B, A", recent[0].Action.Name, recent[1].Action.Name)
	}
}

func TestHistoryPopEmpty(t *testing.T) {
	h := NewHistory(2)
	if _, ok := h.Pop(); ok {
		t.Error("Pop on empty history returned ok")
	}
}

func TestHistoryEntriesCarryIDs(t *testing.T) {
	h := NewHistory(2)
	h.Push(Action{Kind: ActionSet, Name: "A"})
	e, _ := h.Pop()
	if e.ID == "" {
		t.Error("entry has empty id")
	}
	if e.Timestamp.IsZero() {
		t.Error("entry has zero timestamp")
	}
}
