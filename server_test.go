package ayen

import (
	"context"
	"testing"
	"time"

	"pkt.systems/ayen/core"
	"pkt.systems/ayen/internal/profile"
	"pkt.systems/ayen/schema"
)

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(ServerConfig{}, ServerDeps{}); err == nil {
		t.Fatalf("expected error without enabled services")
	}
}

func TestServerStartOpensMainWindowAndStopReleases(t *testing.T) {
	host := &lifecycleHost{}
	store := &closeTrackingStore{Store: profile.NewMemoryStore(profile.Options{})}
	srv, err := New(ServerConfig{}, ServerDeps{Host: host, Store: store}, WithBrowser())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if host.started != 1 {
		t.Fatalf("expected host started once, got %d", host.started)
	}
	windows, err := srv.Service().ListWindows(context.Background())
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows.Windows) != 1 || windows.Windows[0].ID != schema.MainWindowID {
		t.Fatalf("expected main window, got %+v", windows.Windows)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if host.stopped != 1 || store.closed != 1 {
		t.Fatalf("expected host stop and store close, got %d %d", host.stopped, store.closed)
	}
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if store.closed != 1 {
		t.Fatalf("expected store closed once, got %d", store.closed)
	}
}

func TestEventFanoutForwardsShieldEventsToCapableSinks(t *testing.T) {
	plain := &recordingSink{}
	shieldAware := &shieldRecordingSink{}
	fanout := eventFanout{sinks: []core.EventSink{plain, nil, shieldAware}}
	fanout.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated})
	fanout.OnShieldEvent(schema.ShieldEvent{BlockedCount: 4})
	if plain.tabs != 1 || shieldAware.tabs != 1 {
		t.Fatalf("expected tab events delivered, got %d %d", plain.tabs, shieldAware.tabs)
	}
	if shieldAware.blocked != 4 {
		t.Fatalf("expected blocked count 4, got %d", shieldAware.blocked)
	}
}

type lifecycleHost struct {
	started int
	stopped int
}

func (h *lifecycleHost) Start(context.Context) error {
	h.started++
	return nil
}

func (h *lifecycleHost) Stop() { h.stopped++ }

func (h *lifecycleHost) OpenSession(context.Context, schema.WindowID, bool) error { return nil }
func (h *lifecycleHost) CloseSession(context.Context, schema.WindowID) error      { return nil }
func (h *lifecycleHost) NewSurface(context.Context, core.SurfaceRequest) (core.Surface, error) {
	return nopSurface{}, nil
}
func (h *lifecycleHost) SetBlocking(schema.WindowID, bool)                   {}
func (h *lifecycleHost) ClearStorage(context.Context, schema.WindowID) error { return nil }

type nopSurface struct{}

func (nopSurface) Navigate(string)                            {}
func (nopSurface) Back()                                      {}
func (nopSurface) Forward()                                   {}
func (nopSurface) Reload()                                    {}
func (nopSurface) Stop()                                      {}
func (nopSurface) CanGoBack() bool                            { return false }
func (nopSurface) CanGoForward() bool                         { return false }
func (nopSurface) Subscribe(func(schema.SurfaceEvent)) func() { return func() {} }
func (nopSurface) Close()                                     {}

type closeTrackingStore struct {
	profile.Store
	closed int
}

func (s *closeTrackingStore) Close() error {
	s.closed++
	return s.Store.Close()
}

type recordingSink struct {
	tabs int
}

func (r *recordingSink) OnWindowEvent(schema.WindowEvent)      {}
func (r *recordingSink) OnTabEvent(schema.TabEvent)            { r.tabs++ }
func (r *recordingSink) OnShellEvent(schema.ShellEvent)        {}
func (r *recordingSink) OnContextMenu(schema.ContextMenuEvent) {}
func (r *recordingSink) OnDownloadEvent(schema.DownloadEvent)  {}

type shieldRecordingSink struct {
	recordingSink
	blocked int64
}

func (r *shieldRecordingSink) OnShieldEvent(event schema.ShieldEvent) { r.blocked = event.BlockedCount }
