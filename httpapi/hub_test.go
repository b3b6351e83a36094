package httpapi

import (
	"testing"

	"pkt.systems/tabtear/schema"
)

func TestHubHistoryBounded(t *testing.T) {
	hub := NewHub(3, nil)
	for i := 0; i < 5; i++ {
		hub.OnDesktopEvent(schema.DesktopEvent{Type: schema.DesktopEventTabInserted, Window: 1, Index: i})
	}
	events := hub.Replay(0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Seq != 3 || events[2].Seq != 5 {
		t.Fatalf("unexpected seqs: %d..%d", events[0].Seq, events[2].Seq)
	}
	if events[0].Index == nil || *events[0].Index != 2 {
		t.Fatalf("expected index 2, got %v", events[0].Index)
	}
	if got := hub.Replay(4); len(got) != 1 || got[0].Seq != 5 {
		t.Fatalf("expected replay after 4 to return seq 5, got %+v", got)
	}
}

func TestHubSubscribeReceivesEvents(t *testing.T) {
	hub := NewHub(0, nil)
	ch, unsubscribe, seq, history := hub.Subscribe()
	if seq != 0 || len(history) != 0 {
		t.Fatalf("expected empty hub, got seq %d history %d", seq, len(history))
	}
	hub.OnDesktopEvent(schema.DesktopEvent{Type: schema.DesktopEventWindowOpened, Window: 2, Title: "Tab"})
	event := <-ch
	if event.Seq != 1 || event.Type != "window_opened" || event.Window != 2 || event.Index != nil {
		t.Fatalf("unexpected event: %+v", event)
	}
	unsubscribe()
	hub.OnDesktopEvent(schema.DesktopEvent{Type: schema.DesktopEventWindowRetired, Window: 2})
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
}
