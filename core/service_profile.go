package core

import (
	"context"
	"fmt"

	"pkt.systems/ayen/internal/logx"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

func (s *service) ToggleBookmark(ctx context.Context, req schema.ToggleBookmarkRequest) (schema.ToggleBookmarkResponse, error) {
	log := logx.WithWindow(ctx, req.WindowID)
	s.mu.Lock()
	w := s.windows[req.WindowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service bookmark toggle failed", "err", schema.ErrWindowNotFound)
		return schema.ToggleBookmarkResponse{}, schema.ErrWindowNotFound
	}
	active, _ := w.registry.Active()
	persistent := w.persistent
	s.mu.Unlock()

	if !persistent {
		bookmarks, err := s.store.Bookmarks()
		if err != nil {
			return schema.ToggleBookmarkResponse{}, err
		}
		log.Debug("service bookmark toggle ignored in incognito")
		return schema.ToggleBookmarkResponse{Bookmarks: bookmarks}, nil
	}
	bookmarks, bookmarked, err := s.store.ToggleBookmark(schema.BookmarkItem{URL: active.URL, Title: active.Title})
	if err != nil {
		log.Warn("service bookmark toggle failed", "err", err)
		return schema.ToggleBookmarkResponse{}, err
	}
	s.syncBookmarkIndicators(active.URL, bookmarked)
	log.Info("service bookmark toggled", "url", active.URL, "bookmarked", bookmarked)
	return schema.ToggleBookmarkResponse{Bookmarks: bookmarks, Bookmarked: bookmarked}, nil
}

// syncBookmarkIndicators updates every persistent window whose active tab shows url.
func (s *service) syncBookmarkIndicators(url string, bookmarked bool) {
	var events []schema.ShellEvent
	s.mu.Lock()
	for _, id := range s.order {
		w := s.windows[id]
		if w == nil || !w.persistent {
			continue
		}
		active, ok := w.registry.Active()
		if !ok || active.URL != url {
			continue
		}
		if w.reconciler.SetBookmarked(bookmarked) {
			events = append(events, schema.ShellEvent{WindowID: id, Shell: w.reconciler.Shell(), Revision: w.stamp()})
		}
	}
	s.mu.Unlock()
	for _, event := range events {
		s.emitShellEvent(event)
	}
}

func (s *service) GetBookmarks(ctx context.Context) (schema.GetBookmarksResponse, error) {
	bookmarks, err := s.store.Bookmarks()
	if err != nil {
		pslog.Ctx(ctx).Warn("service bookmarks load failed", "err", err)
		return schema.GetBookmarksResponse{}, err
	}
	return schema.GetBookmarksResponse{Bookmarks: bookmarks}, nil
}

func (s *service) GetHistory(ctx context.Context) (schema.GetHistoryResponse, error) {
	history, err := s.store.History()
	if err != nil {
		pslog.Ctx(ctx).Warn("service history load failed", "err", err)
		return schema.GetHistoryResponse{}, err
	}
	return schema.GetHistoryResponse{History: history}, nil
}

func (s *service) ClearHistory(ctx context.Context) error {
	if err := s.store.ClearHistory(); err != nil {
		pslog.Ctx(ctx).Warn("service history clear failed", "err", err)
		return err
	}
	pslog.Ctx(ctx).Info("service history cleared")
	return nil
}

func (s *service) GetSettings(ctx context.Context) (schema.Settings, error) {
	settings, err := s.store.Settings()
	if err != nil {
		pslog.Ctx(ctx).Warn("service settings load failed", "err", err)
		return schema.Settings{}, err
	}
	return settings, nil
}

func (s *service) UpdateSetting(ctx context.Context, req schema.UpdateSettingRequest) (schema.Settings, error) {
	log := pslog.Ctx(ctx).With("key", req.Key)
	settings, err := s.store.Settings()
	if err != nil {
		return schema.Settings{}, err
	}
	switch req.Key {
	case schema.SettingSearchEngine:
		name, ok := req.Value.(string)
		if !ok {
			return schema.Settings{}, fmt.Errorf("%w: %s expects a string", schema.ErrInvalidSetting, req.Key)
		}
		engine, err := schema.NormalizeSearchEngine(name)
		if err != nil {
			return schema.Settings{}, err
		}
		settings.SearchEngine = engine
	case schema.SettingShieldEnabled:
		enabled, ok := req.Value.(bool)
		if !ok {
			return schema.Settings{}, fmt.Errorf("%w: %s expects a boolean", schema.ErrInvalidSetting, req.Key)
		}
		settings.ShieldEnabled = enabled
	default:
		return schema.Settings{}, fmt.Errorf("%w: %q", schema.ErrInvalidSetting, req.Key)
	}
	if err := s.store.SaveSettings(settings); err != nil {
		log.Warn("service settings save failed", "err", err)
		return schema.Settings{}, err
	}
	if req.Key == schema.SettingShieldEnabled && s.host != nil {
		for _, id := range s.windowIDs() {
			s.host.SetBlocking(id, settings.ShieldEnabled)
		}
	}
	log.Info("service setting updated", "value", req.Value)
	return settings, nil
}

func (s *service) ClearData(ctx context.Context, req schema.ClearDataRequest) error {
	log := logx.WithWindow(ctx, req.WindowID)
	s.mu.Lock()
	w := s.windows[req.WindowID]
	s.mu.Unlock()
	if w == nil {
		return schema.ErrWindowNotFound
	}
	if !w.persistent {
		return schema.ErrIncognito
	}
	if err := s.store.ClearHistory(); err != nil {
		log.Warn("service history clear failed", "err", err)
		return err
	}
	if s.host != nil {
		if err := s.host.ClearStorage(ctx, req.WindowID); err != nil {
			log.Warn("service storage clear failed", "err", err)
			return fmt.Errorf("clear storage: %w", err)
		}
	}
	log.Info("service browsing data cleared")
	return nil
}

func (s *service) windowIDs() []schema.WindowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.WindowID(nil), s.order...)
}
