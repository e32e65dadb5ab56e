package httpapi

import (
	"testing"

	"pkt.systems/ayen/schema"
)

func TestHubReplayAndHistoryBound(t *testing.T) {
	hub := NewHub(2, nil)
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main"})
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main"})
	hub.OnShieldEvent(schema.ShieldEvent{WindowID: "main", BlockedCount: 1})

	events := hub.Replay(0)
	if len(events) != 2 {
		t.Fatalf("expected history bounded to 2, got %d", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs %d %d", events[0].Seq, events[1].Seq)
	}
	if got := hub.Replay(2); len(got) != 1 || got[0].Type != EventBlocked {
		t.Fatalf("unexpected replay after 2: %+v", got)
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub(10, nil)
	ch, unsubscribe := hub.Subscribe()
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "a"}})
	event := <-ch
	if event.Type != EventTab || event.TabID != "a" || event.Seq != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after unsubscribe")
	}
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main"})
}

func TestVisibleTo(t *testing.T) {
	if !visibleTo(StreamEvent{WindowID: ""}, "main") {
		t.Fatalf("expected global events to be visible")
	}
	if visibleTo(StreamEvent{WindowID: "other"}, "main") {
		t.Fatalf("expected other window events hidden")
	}
	if !visibleTo(StreamEvent{WindowID: "main"}, "main") {
		t.Fatalf("expected own window events visible")
	}
}

func TestHubDropsStaleStateEvents(t *testing.T) {
	hub := NewHub(10, nil)
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main", Shell: schema.ShellState{AddressBar: "b"}, Revision: 6})
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main", Shell: schema.ShellState{AddressBar: "a"}, Revision: 5})
	hub.OnShellEvent(schema.ShellEvent{WindowID: "other", Shell: schema.ShellState{AddressBar: "c"}, Revision: 1})
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "t1", Title: "new"}, Revision: 8})
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "t1", Title: "old"}, Revision: 7})
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "t2"}, Revision: 7})
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "t3"}, Revision: 2})

	events := hub.Replay(0)
	if len(events) != 5 {
		t.Fatalf("expected 5 events after dropping stale ones, got %d: %+v", len(events), events)
	}
	if events[0].Shell.AddressBar != "b" || events[1].WindowID != "other" {
		t.Fatalf("unexpected shell events %+v %+v", events[0], events[1])
	}
	if events[2].Tab.Title != "new" || events[3].TabID != "t2" || events[4].TabID != "t3" {
		t.Fatalf("unexpected tab events %+v", events[2:])
	}
}

func TestHubUnrevisionedEventsAlwaysPass(t *testing.T) {
	hub := NewHub(10, nil)
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main", Revision: 3})
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main"})
	if got := len(hub.Replay(0)); got != 2 {
		t.Fatalf("expected both events, got %d", got)
	}
}

func TestHubForgetsClosedWindowRevisions(t *testing.T) {
	hub := NewHub(10, nil)
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main", Revision: 9})
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "t1"}, Revision: 9})
	hub.OnWindowEvent(schema.WindowEvent{Type: schema.WindowEventClosed, Window: schema.WindowSnapshot{ID: "main"}})
	hub.OnShellEvent(schema.ShellEvent{WindowID: "main", Revision: 1})
	hub.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "t1"}, Revision: 2})
	if got := len(hub.Replay(0)); got != 5 {
		t.Fatalf("expected reopened window events delivered, got %d", got)
	}
}
