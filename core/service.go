package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pkt.systems/ayen/internal/logx"
	"pkt.systems/ayen/internal/profile"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	cfg       schema.ServiceConfig
	host      Host
	store     profile.Store
	sink      EventSink
	logger    pslog.Logger
	mu        sync.Mutex
	windows   map[schema.WindowID]*window
	order     []schema.WindowID
	downloads *downloadTracker
	closed    bool
}

// window is one browsing session with its own tab strip.
type window struct {
	id         schema.WindowID
	persistent bool
	registry   *Registry
	reconciler *Reconciler
	// revision advances with every published snapshot; guarded by service.mu.
	revision uint64
}

// stamp returns the next state revision. Callers hold service.mu.
func (w *window) stamp() uint64 {
	w.revision++
	return w.revision
}

func (w *window) Snapshot() schema.WindowSnapshot {
	return schema.WindowSnapshot{
		ID:         w.id,
		Persistent: w.persistent,
		Tabs:       w.registry.Len(),
		ActiveTab:  w.registry.ActiveID(),
		Shell:      w.reconciler.Shell(),
	}
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	store := deps.Store
	if store == nil {
		store = profile.NewMemoryStore(profile.Options{HistoryMax: normalized.HistoryMax, Logger: logger})
	}
	return &service{
		cfg:       normalized,
		host:      deps.Host,
		store:     store,
		sink:      deps.EventSink,
		logger:    logger,
		windows:   make(map[schema.WindowID]*window),
		downloads: newDownloadTracker(),
	}, nil
}

func (s *service) OpenWindow(ctx context.Context, req schema.OpenWindowRequest) (schema.OpenWindowResponse, error) {
	if ctx == nil {
		return schema.OpenWindowResponse{}, errors.New("missing context")
	}
	windowID := req.WindowID
	if windowID == "" {
		windowID = schema.MainWindowID
		if req.Incognito {
			windowID = schema.WindowID("incognito-" + strings.SplitN(uuid.NewString(), "-", 2)[0])
		}
	}
	if err := schema.ValidateWindowID(windowID); err != nil {
		return schema.OpenWindowResponse{}, err
	}
	log := logx.WithWindow(ctx, windowID).With("incognito", req.Incognito)

	defaultURL := s.cfg.DefaultURL
	if req.Incognito {
		defaultURL = s.cfg.IncognitoURL
	}
	registry := NewRegistry(strings.TrimSpace(req.InitialURL), defaultURL)
	w := &window{
		id:         windowID,
		persistent: !req.Incognito,
		registry:   registry,
		reconciler: NewReconciler(registry),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.OpenWindowResponse{}, schema.ErrClosed
	}
	if s.windows[windowID] != nil {
		s.mu.Unlock()
		log.Warn("service window open failed", "err", schema.ErrWindowExists)
		return schema.OpenWindowResponse{}, schema.ErrWindowExists
	}
	s.windows[windowID] = w
	s.order = append(s.order, windowID)
	initial, _ := registry.Active()
	snapshot := w.Snapshot()
	rev := w.stamp()
	s.mu.Unlock()

	if s.host != nil {
		if err := s.host.OpenSession(ctx, windowID, w.persistent); err != nil {
			s.mu.Lock()
			delete(s.windows, windowID)
			s.order = removeWindowID(s.order, windowID)
			s.mu.Unlock()
			log.Error("service window session failed", "err", err)
			return schema.OpenWindowResponse{}, fmt.Errorf("open session: %w", err)
		}
		settings := s.settings(log)
		s.host.SetBlocking(windowID, settings.ShieldEnabled)
	}

	s.emitWindowEvent(schema.WindowEvent{Type: schema.WindowEventOpened, Window: snapshot})
	s.emitTabEvent(schema.TabEvent{
		WindowID:  windowID,
		Type:      schema.TabEventCreated,
		Tab:       initial,
		ActiveTab: initial.ID,
		Revision:  rev,
	})
	s.emitShellEvent(schema.ShellEvent{WindowID: windowID, Shell: snapshot.Shell, Revision: rev})
	s.mountTab(ctx, log, windowID, initial.ID, initial.URL)
	s.refreshBookmarked(log, windowID, initial.ID)
	log.Info("service window opened", "tab", initial.ID, "url", initial.URL)

	s.mu.Lock()
	snapshot = w.Snapshot()
	s.mu.Unlock()
	return schema.OpenWindowResponse{Window: snapshot}, nil
}

func (s *service) CloseWindow(ctx context.Context, req schema.CloseWindowRequest) (schema.CloseWindowResponse, error) {
	log := logx.WithWindow(ctx, req.WindowID)
	s.mu.Lock()
	w := s.windows[req.WindowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service window close failed", "err", schema.ErrWindowNotFound)
		return schema.CloseWindowResponse{}, schema.ErrWindowNotFound
	}
	delete(s.windows, req.WindowID)
	s.order = removeWindowID(s.order, req.WindowID)
	snapshot := w.Snapshot()
	tabs := w.registry.all()
	s.mu.Unlock()

	s.teardownWindow(ctx, log, w.id, tabs)
	s.emitWindowEvent(schema.WindowEvent{Type: schema.WindowEventClosed, Window: snapshot})
	log.Info("service window closed", "tabs", len(tabs))
	return schema.CloseWindowResponse{Window: snapshot}, nil
}

func (s *service) ListWindows(ctx context.Context) (schema.ListWindowsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	windows := make([]schema.WindowSnapshot, 0, len(s.order))
	for _, id := range s.order {
		if w := s.windows[id]; w != nil {
			windows = append(windows, w.Snapshot())
		}
	}
	pslog.Ctx(ctx).Trace("service windows listed", "count", len(windows))
	return schema.ListWindowsResponse{Windows: windows}, nil
}

func (s *service) OpenTab(ctx context.Context, req schema.OpenTabRequest) (schema.OpenTabResponse, error) {
	log := logx.WithWindow(ctx, req.WindowID)
	s.mu.Lock()
	w := s.windows[req.WindowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service tab open failed", "err", schema.ErrWindowNotFound)
		return schema.OpenTabResponse{}, schema.ErrWindowNotFound
	}
	tabID := w.registry.Open(strings.TrimSpace(req.URL))
	snapshot, _ := w.registry.Get(tabID)
	shellChanged := w.reconciler.SyncActive()
	shell := w.reconciler.Shell()
	rev := w.stamp()
	s.mu.Unlock()

	log = log.With("tab", tabID)
	s.emitTabEvent(schema.TabEvent{
		WindowID:  req.WindowID,
		Type:      schema.TabEventCreated,
		Tab:       snapshot,
		ActiveTab: tabID,
		Revision:  rev,
	})
	if shellChanged {
		s.emitShellEvent(schema.ShellEvent{WindowID: req.WindowID, Shell: shell, Revision: rev})
	}
	s.mountTab(ctx, log, req.WindowID, tabID, snapshot.URL)
	s.refreshBookmarked(log, req.WindowID, tabID)
	log.Info("service tab opened", "url", snapshot.URL)
	return schema.OpenTabResponse{Tab: snapshot}, nil
}

func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	log := logx.WithWindowTab(ctx, req.WindowID, req.TabID)
	s.mu.Lock()
	w := s.windows[req.WindowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service tab close failed", "err", schema.ErrWindowNotFound)
		return schema.CloseTabResponse{}, schema.ErrWindowNotFound
	}
	before := w.registry.ActiveID()
	closed, ok := w.registry.remove(req.TabID)
	if !ok {
		active := w.registry.ActiveID()
		count := w.registry.Len()
		s.mu.Unlock()
		log.Debug("service tab close ignored", "tabs", count)
		return schema.CloseTabResponse{Closed: false, ActiveTab: active}, nil
	}
	active := w.registry.ActiveID()
	activeChanged := active != before
	var activeSnapshot schema.TabSnapshot
	shellChanged := false
	if activeChanged {
		activeSnapshot, _ = w.registry.Active()
		shellChanged = w.reconciler.SyncActive()
	}
	shell := w.reconciler.Shell()
	rev := w.stamp()
	s.mu.Unlock()

	closed.unmount()
	s.emitTabEvent(schema.TabEvent{
		WindowID:  req.WindowID,
		Type:      schema.TabEventClosed,
		Tab:       closed.Snapshot(false),
		ActiveTab: active,
		Revision:  rev,
	})
	if activeChanged {
		s.emitTabEvent(schema.TabEvent{
			WindowID:  req.WindowID,
			Type:      schema.TabEventActivated,
			Tab:       activeSnapshot,
			ActiveTab: active,
			Revision:  rev,
		})
		if shellChanged {
			s.emitShellEvent(schema.ShellEvent{WindowID: req.WindowID, Shell: shell, Revision: rev})
		}
		s.refreshBookmarked(log, req.WindowID, active)
	}
	log.Info("service tab closed", "active", active)
	return schema.CloseTabResponse{Closed: true, ActiveTab: active}, nil
}

func (s *service) ActivateTab(ctx context.Context, req schema.ActivateTabRequest) (schema.ActivateTabResponse, error) {
	log := logx.WithWindowTab(ctx, req.WindowID, req.TabID)
	return s.activate(log, req.WindowID, func(r *Registry) bool {
		if r.ActiveID() == req.TabID {
			return false
		}
		return r.SetActive(req.TabID)
	})
}

func (s *service) NextTab(ctx context.Context, req schema.NextTabRequest) (schema.ActivateTabResponse, error) {
	log := logx.WithWindow(ctx, req.WindowID)
	return s.activate(log, req.WindowID, func(r *Registry) bool {
		before := r.ActiveID()
		return r.Next() != before
	})
}

// activate runs move against the window's registry and, when the active tab
// changed, resyncs the shell and publishes the change.
func (s *service) activate(log pslog.Logger, windowID schema.WindowID, move func(*Registry) bool) (schema.ActivateTabResponse, error) {
	s.mu.Lock()
	w := s.windows[windowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service tab activate failed", "err", schema.ErrWindowNotFound)
		return schema.ActivateTabResponse{}, schema.ErrWindowNotFound
	}
	changed := move(w.registry)
	active, _ := w.registry.Active()
	shellChanged := false
	if changed {
		shellChanged = w.reconciler.SyncActive()
	}
	shell := w.reconciler.Shell()
	rev := w.stamp()
	s.mu.Unlock()

	if !changed {
		log.Trace("service tab activate unchanged", "active", active.ID)
		return schema.ActivateTabResponse{Tab: active}, nil
	}
	s.emitTabEvent(schema.TabEvent{
		WindowID:  windowID,
		Type:      schema.TabEventActivated,
		Tab:       active,
		ActiveTab: active.ID,
		Revision:  rev,
	})
	if shellChanged {
		s.emitShellEvent(schema.ShellEvent{WindowID: windowID, Shell: shell, Revision: rev})
	}
	s.refreshBookmarked(log, windowID, active.ID)
	log.Info("service tab activated", "active", active.ID)
	return schema.ActivateTabResponse{Tab: active}, nil
}

func (s *service) ReorderTabs(ctx context.Context, req schema.ReorderTabsRequest) (schema.ListTabsResponse, error) {
	log := logx.WithWindow(ctx, req.WindowID)
	s.mu.Lock()
	w := s.windows[req.WindowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service tab reorder failed", "err", schema.ErrWindowNotFound)
		return schema.ListTabsResponse{}, schema.ErrWindowNotFound
	}
	if err := w.registry.Reorder(req.Order); err != nil {
		s.mu.Unlock()
		log.Warn("service tab reorder rejected", "err", err, "count", len(req.Order))
		return schema.ListTabsResponse{}, err
	}
	resp := schema.ListTabsResponse{
		Tabs:      w.registry.List(),
		ActiveTab: w.registry.ActiveID(),
		Shell:     w.reconciler.Shell(),
	}
	order := w.registry.Order()
	rev := w.stamp()
	s.mu.Unlock()

	s.emitTabEvent(schema.TabEvent{
		WindowID:  req.WindowID,
		Type:      schema.TabEventReordered,
		ActiveTab: resp.ActiveTab,
		Order:     order,
		Revision:  rev,
	})
	log.Info("service tabs reordered", "count", len(order))
	return resp, nil
}

func (s *service) ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.windows[req.WindowID]
	if w == nil {
		return schema.ListTabsResponse{}, schema.ErrWindowNotFound
	}
	resp := schema.ListTabsResponse{
		Tabs:      w.registry.List(),
		ActiveTab: w.registry.ActiveID(),
		Shell:     w.reconciler.Shell(),
	}
	logx.WithWindow(ctx, req.WindowID).Trace("service tabs listed", "count", len(resp.Tabs), "active", resp.ActiveTab)
	return resp, nil
}

func (s *service) Shell(ctx context.Context, windowID schema.WindowID) (schema.ShellState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.windows[windowID]
	if w == nil {
		return schema.ShellState{}, schema.ErrWindowNotFound
	}
	return w.reconciler.Shell(), nil
}

func (s *service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	type closing struct {
		id       schema.WindowID
		snapshot schema.WindowSnapshot
		tabs     []*tab
	}
	var all []closing
	for _, id := range s.order {
		if w := s.windows[id]; w != nil {
			all = append(all, closing{id: id, snapshot: w.Snapshot(), tabs: w.registry.all()})
		}
	}
	s.windows = make(map[schema.WindowID]*window)
	s.order = nil
	s.mu.Unlock()

	for _, c := range all {
		log := logx.WithWindow(ctx, c.id)
		s.teardownWindow(ctx, log, c.id, c.tabs)
		s.emitWindowEvent(schema.WindowEvent{Type: schema.WindowEventClosed, Window: c.snapshot})
	}
	s.logger.Info("service closed", "windows", len(all))
	return nil
}

func (s *service) teardownWindow(ctx context.Context, log pslog.Logger, windowID schema.WindowID, tabs []*tab) {
	for _, t := range tabs {
		t.unmount()
	}
	if s.host == nil {
		return
	}
	if err := s.host.CloseSession(ctx, windowID); err != nil {
		log.Warn("service window session close failed", "err", err)
	}
}

// mountTab creates the tab's surface, attaches the event subscription, and
// starts the first navigation. The subscription exists before the surface
// is asked to navigate.
func (s *service) mountTab(ctx context.Context, log pslog.Logger, windowID schema.WindowID, tabID schema.TabID, url string) {
	if s.host == nil {
		return
	}
	surface, err := s.host.NewSurface(ctx, SurfaceRequest{WindowID: windowID, TabID: tabID})
	if err != nil {
		log.Warn("service surface mount failed", "tab", tabID, "err", err)
		return
	}
	s.mu.Lock()
	var t *tab
	if w := s.windows[windowID]; w != nil {
		t = w.registry.lookup(tabID)
	}
	if t == nil || t.surface != nil {
		s.mu.Unlock()
		surface.Close()
		log.Debug("service surface discarded", "tab", tabID)
		return
	}
	t.surface = surface
	t.detach = surface.Subscribe(func(ev schema.SurfaceEvent) {
		s.handleSurfaceEvent(windowID, tabID, ev)
	})
	s.mu.Unlock()
	surface.Navigate(url)
	log.Debug("service surface mounted", "tab", tabID)
}

func (s *service) handleSurfaceEvent(windowID schema.WindowID, tabID schema.TabID, ev schema.SurfaceEvent) {
	log := s.logger.With("window", windowID, "tab", tabID)
	s.mu.Lock()
	w := s.windows[windowID]
	if w == nil {
		s.mu.Unlock()
		log.Trace("service surface event ignored", "type", ev.Type)
		return
	}
	res := w.reconciler.Apply(tabID, ev)
	persistent := w.persistent
	var rev uint64
	if res.TabChanged || res.ShellChanged {
		rev = w.stamp()
	}
	s.mu.Unlock()

	if !res.Known {
		log.Trace("service surface event ignored", "type", ev.Type)
		return
	}
	log.Trace("service surface event applied", "type", ev.Type, "changed", res.TabChanged)
	if res.TabChanged {
		s.emitTabEvent(schema.TabEvent{
			WindowID:  windowID,
			Type:      schema.TabEventUpdated,
			Tab:       res.Tab,
			ActiveTab: res.ActiveTab,
			Revision:  rev,
		})
	}
	if res.ShellChanged {
		s.emitShellEvent(schema.ShellEvent{WindowID: windowID, Shell: res.Shell, Revision: rev})
	}
	if res.Menu != nil && s.sink != nil {
		s.sink.OnContextMenu(schema.ContextMenuEvent{WindowID: windowID, TabID: tabID, Request: *res.Menu})
	}
	if res.Visit != nil {
		if !s.cfg.DisableHistory && shouldRecordVisit(persistent, *res.Visit) {
			if _, err := s.store.AddHistory(*res.Visit); err != nil {
				log.Warn("service history record failed", "err", err)
			}
		}
		if res.Tab.Active {
			s.refreshBookmarked(log, windowID, tabID)
		}
	}
	if res.Retitle != nil && persistent && !s.cfg.DisableHistory {
		if _, err := s.store.RetitleHistory(res.Retitle.URL, res.Retitle.Title); err != nil {
			log.Warn("service history retitle failed", "err", err)
		}
	}
}

// refreshBookmarked looks up whether the active tab's URL is bookmarked and
// updates the shell indicator if tabID is still active on that URL.
func (s *service) refreshBookmarked(log pslog.Logger, windowID schema.WindowID, tabID schema.TabID) {
	s.mu.Lock()
	w := s.windows[windowID]
	if w == nil || w.registry.ActiveID() != tabID {
		s.mu.Unlock()
		return
	}
	snapshot, _ := w.registry.Get(tabID)
	persistent := w.persistent
	s.mu.Unlock()

	bookmarked := false
	if persistent {
		var err error
		bookmarked, err = s.store.IsBookmarked(snapshot.URL)
		if err != nil {
			log.Warn("service bookmark lookup failed", "err", err)
		}
	}

	s.mu.Lock()
	w = s.windows[windowID]
	if w == nil || w.registry.ActiveID() != tabID {
		s.mu.Unlock()
		return
	}
	if current, ok := w.registry.Get(tabID); !ok || current.URL != snapshot.URL {
		s.mu.Unlock()
		return
	}
	changed := w.reconciler.SetBookmarked(bookmarked)
	shell := w.reconciler.Shell()
	var rev uint64
	if changed {
		rev = w.stamp()
	}
	s.mu.Unlock()
	if changed {
		s.emitShellEvent(schema.ShellEvent{WindowID: windowID, Shell: shell, Revision: rev})
	}
}

func (s *service) settings(log pslog.Logger) schema.Settings {
	settings, err := s.store.Settings()
	if err != nil {
		log.Warn("service settings load failed", "err", err)
		return schema.DefaultSettings()
	}
	return settings
}

func (s *service) emitWindowEvent(event schema.WindowEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnWindowEvent(event)
}

func (s *service) emitTabEvent(event schema.TabEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabEvent(event)
}

func (s *service) emitShellEvent(event schema.ShellEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnShellEvent(event)
}

func removeWindowID(order []schema.WindowID, id schema.WindowID) []schema.WindowID {
	out := order[:0]
	for _, candidate := range order {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
