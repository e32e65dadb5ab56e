package core

import (
	"context"

	"pkt.systems/ayen/internal/logx"
	"pkt.systems/ayen/schema"
)

// RecordDownload folds a host download notification into the tracker and
// publishes the resulting state.
func (s *service) RecordDownload(update schema.DownloadUpdate) {
	s.mu.Lock()
	snapshot, ok := s.downloads.Apply(update)
	active := s.downloads.ActiveCount()
	s.mu.Unlock()
	if !ok {
		s.logger.Trace("service download update ignored", "download", update.ID, "kind", update.Kind)
		return
	}
	log := logx.WithDownload(s.logger, snapshot)
	switch {
	case update.Kind == schema.DownloadStarted:
		log.Info("service download started", "window", snapshot.WindowID, "url", snapshot.URL)
	case snapshot.State.Terminal():
		log.Info("service download finished", "state", snapshot.State, "bytes", snapshot.ReceivedBytes)
	default:
		log.Trace("service download progress", "state", snapshot.State, "percent", snapshot.Percentage)
	}
	if s.sink != nil {
		s.sink.OnDownloadEvent(schema.DownloadEvent{Download: snapshot, ActiveCount: active})
	}
}

func (s *service) ListDownloads(ctx context.Context) (schema.ListDownloadsResponse, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.ListDownloadsResponse{
		Downloads:   s.downloads.List(),
		ActiveCount: s.downloads.ActiveCount(),
	}, nil
}
