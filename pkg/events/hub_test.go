package events

import "testing"

func TestHubPublishSubscribe(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", h.Subscribers())
	}

	h.Publish(GroupFailed, GroupFailedEvent{Cycle: "c1", Group: "kbFocus", Message: "out of range", Ts: 1})

	ev := <-ch
	if ev.Name != GroupFailed {
		t.Errorf("Name = %s, want %s", ev.Name, GroupFailed)
	}
	payload, err := DecodeAs[GroupFailedEvent](ev)
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if payload.Group != "kbFocus" || payload.Cycle != "c1" {
		t.Errorf("payload = %+v", payload)
	}

	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Errorf("channel should be closed after Unsubscribe")
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+3; i++ {
		h.Publish(Cycle, i)
	}
	if got := h.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestNilHubPublish(t *testing.T) {
	var h *EventHub
	h.Publish(Cycle, nil)
}
