package core

import "pkt.systems/ayen/schema"

// EventSink receives window, tab, and profile events from the core service.
type EventSink interface {
	OnWindowEvent(event schema.WindowEvent)
	OnTabEvent(event schema.TabEvent)
	OnShellEvent(event schema.ShellEvent)
	OnContextMenu(event schema.ContextMenuEvent)
	OnDownloadEvent(event schema.DownloadEvent)
}
