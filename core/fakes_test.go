package core

import (
	"context"
	"sync"

	"pkt.systems/ayen/schema"
)

type fakeSurface struct {
	mu           sync.Mutex
	tabID        schema.TabID
	navigations  []string
	handler      func(schema.SurfaceEvent)
	subscribes   int
	detaches     int
	closes       int
	backs        int
	forwards     int
	reloads      int
	stops        int
	inspects     int
	canGoBack    bool
	canGoForward bool
}

func (f *fakeSurface) Navigate(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
}

func (f *fakeSurface) Back()    { f.mu.Lock(); f.backs++; f.mu.Unlock() }
func (f *fakeSurface) Forward() { f.mu.Lock(); f.forwards++; f.mu.Unlock() }
func (f *fakeSurface) Reload()  { f.mu.Lock(); f.reloads++; f.mu.Unlock() }
func (f *fakeSurface) Stop()    { f.mu.Lock(); f.stops++; f.mu.Unlock() }
func (f *fakeSurface) Inspect() { f.mu.Lock(); f.inspects++; f.mu.Unlock() }

func (f *fakeSurface) CanGoBack() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canGoBack
}

func (f *fakeSurface) CanGoForward() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canGoForward
}

func (f *fakeSurface) Subscribe(handler func(schema.SurfaceEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	f.handler = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.detaches++
	}
}

func (f *fakeSurface) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
}

// emit delivers ev even after detach, the way a late host callback would.
func (f *fakeSurface) emit(ev schema.SurfaceEvent) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

func (f *fakeSurface) lastNavigation() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.navigations) == 0 {
		return ""
	}
	return f.navigations[len(f.navigations)-1]
}

type fakeHost struct {
	mu       sync.Mutex
	surfaces map[schema.TabID]*fakeSurface
	sessions map[schema.WindowID]bool
	blocking map[schema.WindowID]bool
	cleared  []schema.WindowID
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		surfaces: make(map[schema.TabID]*fakeSurface),
		sessions: make(map[schema.WindowID]bool),
		blocking: make(map[schema.WindowID]bool),
	}
}

func (h *fakeHost) OpenSession(ctx context.Context, windowID schema.WindowID, persistent bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[windowID] = persistent
	return nil
}

func (h *fakeHost) CloseSession(ctx context.Context, windowID schema.WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, windowID)
	return nil
}

func (h *fakeHost) NewSurface(ctx context.Context, req SurfaceRequest) (Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &fakeSurface{tabID: req.TabID}
	h.surfaces[req.TabID] = s
	return s, nil
}

func (h *fakeHost) SetBlocking(windowID schema.WindowID, enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blocking[windowID] = enabled
}

func (h *fakeHost) ClearStorage(ctx context.Context, windowID schema.WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleared = append(h.cleared, windowID)
	return nil
}

func (h *fakeHost) surface(id schema.TabID) *fakeSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surfaces[id]
}

type recordingSink struct {
	mu        sync.Mutex
	windows   []schema.WindowEvent
	tabs      []schema.TabEvent
	shells    []schema.ShellEvent
	menus     []schema.ContextMenuEvent
	downloads []schema.DownloadEvent
}

func (r *recordingSink) OnWindowEvent(event schema.WindowEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, event)
}

func (r *recordingSink) OnTabEvent(event schema.TabEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs = append(r.tabs, event)
}

func (r *recordingSink) OnShellEvent(event schema.ShellEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shells = append(r.shells, event)
}

func (r *recordingSink) OnContextMenu(event schema.ContextMenuEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus = append(r.menus, event)
}

func (r *recordingSink) OnDownloadEvent(event schema.DownloadEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = append(r.downloads, event)
}

func (r *recordingSink) tabEvents(kind schema.TabEventType) []schema.TabEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schema.TabEvent
	for _, ev := range r.tabs {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingSink) shellEvents() []schema.ShellEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schema.ShellEvent(nil), r.shells...)
}
