package ayen

import (
	"pkt.systems/ayen/core"
	"pkt.systems/ayen/schema"
)

// shieldSink receives blocked-request counts.
type shieldSink interface {
	OnShieldEvent(event schema.ShieldEvent)
}

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnWindowEvent(event schema.WindowEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnWindowEvent(event)
	}
}

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabEvent(event)
	}
}

func (f eventFanout) OnShellEvent(event schema.ShellEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnShellEvent(event)
	}
}

func (f eventFanout) OnContextMenu(event schema.ContextMenuEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnContextMenu(event)
	}
}

func (f eventFanout) OnDownloadEvent(event schema.DownloadEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnDownloadEvent(event)
	}
}

// OnShieldEvent forwards to every sink that tracks blocked requests.
func (f eventFanout) OnShieldEvent(event schema.ShieldEvent) {
	for _, sink := range f.sinks {
		if s, ok := sink.(shieldSink); ok {
			s.OnShieldEvent(event)
		}
	}
}
