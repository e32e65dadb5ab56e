package core

import (
	"context"
	"strings"

	"pkt.systems/ayen/internal/logx"
	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

func (s *service) Submit(ctx context.Context, req schema.SubmitRequest) (schema.SubmitResponse, error) {
	if strings.TrimSpace(req.Input) == "" {
		return schema.SubmitResponse{}, schema.ErrEmptyInput
	}
	log := logx.WithWindow(ctx, req.WindowID)
	settings := s.settings(log)
	resolved := ResolveInput(req.Input, settings.SearchEngine)
	resp, err := s.load(log, req.WindowID, resolved.URL)
	if err != nil {
		return schema.SubmitResponse{}, err
	}
	resp.IsSearch = resolved.IsSearch
	log.Info("service input submitted", "url", resp.URL, "search", resp.IsSearch, "handled", resp.Handled)
	return resp, nil
}

func (s *service) Navigate(ctx context.Context, req schema.NavigateRequest) (schema.SubmitResponse, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return schema.SubmitResponse{}, schema.ErrEmptyInput
	}
	log := logx.WithWindow(ctx, req.WindowID)
	resp, err := s.load(log, req.WindowID, url)
	if err != nil {
		return schema.SubmitResponse{}, err
	}
	log.Info("service navigate", "url", resp.URL, "handled", resp.Handled)
	return resp, nil
}

// load hands url to the active tab's surface and shows it in the address
// bar. Without a mounted surface nothing happens.
func (s *service) load(log pslog.Logger, windowID schema.WindowID, url string) (schema.SubmitResponse, error) {
	s.mu.Lock()
	w := s.windows[windowID]
	if w == nil {
		s.mu.Unlock()
		log.Warn("service navigate failed", "err", schema.ErrWindowNotFound)
		return schema.SubmitResponse{}, schema.ErrWindowNotFound
	}
	activeID := w.registry.ActiveID()
	resp := schema.SubmitResponse{TabID: activeID, URL: url}
	t := w.registry.lookup(activeID)
	if t == nil || t.surface == nil {
		s.mu.Unlock()
		return resp, nil
	}
	surface := t.surface
	changed := w.reconciler.SetAddressBar(url)
	shell := w.reconciler.Shell()
	rev := w.stamp()
	s.mu.Unlock()

	surface.Navigate(url)
	resp.Handled = true
	if changed {
		s.emitShellEvent(schema.ShellEvent{WindowID: windowID, Shell: shell, Revision: rev})
	}
	return resp, nil
}

func (s *service) Back(ctx context.Context, req schema.NavControlRequest) error {
	surface, err := s.activeSurface(req.WindowID)
	if err != nil || surface == nil {
		return err
	}
	if surface.CanGoBack() {
		surface.Back()
		logx.WithWindow(ctx, req.WindowID).Debug("service navigate back")
	}
	return nil
}

func (s *service) Forward(ctx context.Context, req schema.NavControlRequest) error {
	surface, err := s.activeSurface(req.WindowID)
	if err != nil || surface == nil {
		return err
	}
	if surface.CanGoForward() {
		surface.Forward()
		logx.WithWindow(ctx, req.WindowID).Debug("service navigate forward")
	}
	return nil
}

func (s *service) Reload(ctx context.Context, req schema.NavControlRequest) error {
	surface, err := s.activeSurface(req.WindowID)
	if err != nil || surface == nil {
		return err
	}
	surface.Reload()
	logx.WithWindow(ctx, req.WindowID).Debug("service reload")
	return nil
}

func (s *service) Stop(ctx context.Context, req schema.NavControlRequest) error {
	surface, err := s.activeSurface(req.WindowID)
	if err != nil || surface == nil {
		return err
	}
	surface.Stop()
	logx.WithWindow(ctx, req.WindowID).Debug("service stop")
	return nil
}

func (s *service) MenuCommand(ctx context.Context, req schema.MenuCommandRequest) error {
	nav := schema.NavControlRequest{WindowID: req.WindowID}
	switch req.Command {
	case schema.MenuBack:
		return s.Back(ctx, nav)
	case schema.MenuForward:
		return s.Forward(ctx, nav)
	case schema.MenuReload:
		return s.Reload(ctx, nav)
	case schema.MenuInspect:
		surface, err := s.activeSurface(req.WindowID)
		if err != nil || surface == nil {
			return err
		}
		if inspector, ok := surface.(Inspector); ok {
			inspector.Inspect()
		}
		return nil
	default:
		return schema.ErrInvalidRequest
	}
}

func (s *service) activeSurface(windowID schema.WindowID) (Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.windows[windowID]
	if w == nil {
		return nil, schema.ErrWindowNotFound
	}
	t := w.registry.lookup(w.registry.ActiveID())
	if t == nil {
		return nil, nil
	}
	return t.surface, nil
}
