package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pkt.systems/ayen/schema"
)

func TestTabAndWindowGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OnWindowEvent(schema.WindowEvent{Type: schema.WindowEventOpened, Window: schema.WindowSnapshot{ID: "main", Tabs: 1}})
	m.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "a", URL: "https://ayen.in"}})
	m.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "b", URL: "https://ayen.in"}})
	m.OnTabEvent(schema.TabEvent{WindowID: "main", Type: schema.TabEventClosed, Tab: schema.TabSnapshot{ID: "b"}})

	if got := testutil.ToFloat64(m.TabsOpen); got != 1 {
		t.Fatalf("expected 1 open tab, got %v", got)
	}
	if got := testutil.ToFloat64(m.TabEvents.WithLabelValues("created")); got != 2 {
		t.Fatalf("expected 2 created events, got %v", got)
	}

	m.OnWindowEvent(schema.WindowEvent{Type: schema.WindowEventClosed, Window: schema.WindowSnapshot{ID: "main", Tabs: 1}})
	if got := testutil.ToFloat64(m.WindowsOpen); got != 0 {
		t.Fatalf("expected no open windows, got %v", got)
	}
	if got := testutil.ToFloat64(m.TabsOpen); got != 0 {
		t.Fatalf("expected no open tabs, got %v", got)
	}
}

func TestNavigationsCountURLChanges(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "a", URL: "https://ayen.in"}})
	m.OnTabEvent(schema.TabEvent{Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "a", URL: "https://ayen.in", Title: "Ayen"}})
	m.OnTabEvent(schema.TabEvent{Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "a", URL: "https://example.com"}})
	if got := testutil.ToFloat64(m.Navigations); got != 1 {
		t.Fatalf("expected 1 navigation, got %v", got)
	}
}

func TestDownloadsAndShield(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OnDownloadEvent(schema.DownloadEvent{Download: schema.DownloadSnapshot{ID: "d", State: schema.DownloadProgressing}, ActiveCount: 1})
	if got := testutil.ToFloat64(m.DownloadsActive); got != 1 {
		t.Fatalf("expected 1 active download, got %v", got)
	}
	m.OnDownloadEvent(schema.DownloadEvent{Download: schema.DownloadSnapshot{ID: "d", State: schema.DownloadCompleted}, ActiveCount: 0})
	if got := testutil.ToFloat64(m.Downloads.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected 1 completed download, got %v", got)
	}
	m.OnShieldEvent(schema.ShieldEvent{BlockedCount: 1})
	m.OnShieldEvent(schema.ShieldEvent{BlockedCount: 2})
	if got := testutil.ToFloat64(m.ShieldBlocked); got != 2 {
		t.Fatalf("expected 2 blocked, got %v", got)
	}
	m.ObserveRequest("GET", "/api/tabs", 200, 5*time.Millisecond)
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/tabs", "200")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}
