package events

import (
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers")
	}
	ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	b.Unsubscribe(ch)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(NewChange(VarModified, "EDITOR", "vi", "nvim", ""))

	select {
	case change := <-ch:
		if change.Kind != VarModified {
			t.Errorf("kind = %q", change.Kind)
		}
		if change.Name != "EDITOR" || change.OldValue != "vi" || change.NewValue != "nvim" {
			t.Errorf("change = %+v", change)
		}
		if change.ID.String() == "" || change.Timestamp.IsZero() {
			t.Error("change not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then some; must not block.
	for i := 0; i < 70; i++ {
		b.Publish(NewChange(VarAdded, "X", "", "1", ""))
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after close")
	}

	// Safe no-ops after close.
	b.Publish(NewChange(VarDeleted, "X", "1", "", ""))
	b.Unsubscribe(ch)
}
