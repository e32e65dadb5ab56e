package httpapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

// Stream event types.
const (
	EventWindow      = "window"
	EventTab         = "tab"
	EventShell       = "shell"
	EventContextMenu = "context_menu"
	EventDownload    = "download"
	EventBlocked     = "blocked_count"
	EventSnapshot    = "snapshot"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq             uint64                     `json:"seq"`
	Type            string                     `json:"type"`
	WindowID        schema.WindowID            `json:"window_id,omitempty"`
	WindowEvent     string                     `json:"window_event,omitempty"`
	Window          *schema.WindowSnapshot     `json:"window,omitempty"`
	TabEvent        string                     `json:"tab_event,omitempty"`
	TabID           schema.TabID               `json:"tab_id,omitempty"`
	Tab             *schema.TabSnapshot        `json:"tab,omitempty"`
	ActiveTab       schema.TabID               `json:"active_tab,omitempty"`
	Order           []schema.TabID             `json:"order,omitempty"`
	Shell           *schema.ShellState         `json:"shell,omitempty"`
	Menu            *schema.ContextMenuRequest `json:"menu,omitempty"`
	Download        *schema.DownloadSnapshot   `json:"download,omitempty"`
	ActiveDownloads int                        `json:"active_downloads,omitempty"`
	BlockedCount    int64                      `json:"blocked_count,omitempty"`
	Snapshot        *SnapshotPayload           `json:"snapshot,omitempty"`
	Revision        uint64                     `json:"revision,omitempty"`
	Timestamp       time.Time                  `json:"timestamp"`
}

// SnapshotPayload seeds client state on connect.
type SnapshotPayload struct {
	WindowID  schema.WindowID      `json:"window_id"`
	Tabs      []schema.TabSnapshot `json:"tabs"`
	ActiveTab schema.TabID         `json:"active_tab"`
	Shell     schema.ShellState    `json:"shell"`
	Blocked   int64                `json:"blocked"`
}

// Hub broadcasts service events to stream subscribers and keeps a bounded
// history for Last-Event-ID replay. State events that arrive behind a newer
// revision of the same shell or tab are dropped.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	revisions   map[string]uint64
	historySize int
	log         pslog.Logger
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int, logger pslog.Logger) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		revisions:   make(map[string]uint64),
		historySize: historySize,
		log:         logger.With("component", "hub"),
	}
}

// OnWindowEvent implements core.EventSink.
func (h *Hub) OnWindowEvent(event schema.WindowEvent) {
	h.log.Trace("hub window event", "type", event.Type, "window", event.Window.ID)
	window := event.Window
	var forget []string
	if event.Type == schema.WindowEventClosed {
		forget = []string{shellKey(window.ID), activeKey(window.ID), "tab/" + string(window.ID)}
	}
	h.publishOrdered(StreamEvent{
		Type:        EventWindow,
		WindowID:    window.ID,
		WindowEvent: string(event.Type),
		Window:      &window,
	}, "", forget...)
}

// OnTabEvent implements core.EventSink.
func (h *Hub) OnTabEvent(event schema.TabEvent) {
	h.log.Trace("hub tab event", "type", event.Type, "window", event.WindowID, "tab", event.Tab.ID, "active", event.ActiveTab)
	tab := event.Tab
	key := ""
	var forget []string
	switch event.Type {
	case schema.TabEventUpdated:
		key = tabKey(event.WindowID, tab.ID)
	case schema.TabEventActivated:
		key = activeKey(event.WindowID)
	case schema.TabEventClosed:
		forget = []string{tabKey(event.WindowID, tab.ID)}
	}
	h.publishOrdered(StreamEvent{
		Type:      EventTab,
		WindowID:  event.WindowID,
		TabEvent:  string(event.Type),
		TabID:     tab.ID,
		Tab:       &tab,
		ActiveTab: event.ActiveTab,
		Order:     event.Order,
		Revision:  event.Revision,
	}, key, forget...)
}

// OnShellEvent implements core.EventSink.
func (h *Hub) OnShellEvent(event schema.ShellEvent) {
	shell := event.Shell
	h.publishOrdered(StreamEvent{
		Type:     EventShell,
		WindowID: event.WindowID,
		Shell:    &shell,
		Revision: event.Revision,
	}, shellKey(event.WindowID))
}

// OnContextMenu implements core.EventSink.
func (h *Hub) OnContextMenu(event schema.ContextMenuEvent) {
	h.log.Debug("hub context menu", "window", event.WindowID, "tab", event.TabID)
	menu := event.Request
	h.publish(StreamEvent{Type: EventContextMenu, WindowID: event.WindowID, TabID: event.TabID, Menu: &menu})
}

// OnDownloadEvent implements core.EventSink.
func (h *Hub) OnDownloadEvent(event schema.DownloadEvent) {
	download := event.Download
	h.publish(StreamEvent{
		Type:            EventDownload,
		WindowID:        download.WindowID,
		Download:        &download,
		ActiveDownloads: event.ActiveCount,
	})
}

// OnShieldEvent publishes the running blocked-request count.
func (h *Hub) OnShieldEvent(event schema.ShieldEvent) {
	h.publish(StreamEvent{Type: EventBlocked, WindowID: event.WindowID, BlockedCount: event.BlockedCount})
}

// Subscribe registers a subscriber and returns its channel with an unsubscribe func.
func (h *Hub) Subscribe() (<-chan StreamEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	h.log.Info("hub subscribe", "subs", len(h.subs), "history", len(h.history))
	unsub := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; !ok {
			h.mu.Unlock()
			return
		}
		delete(h.subs, ch)
		close(ch)
		remaining := len(h.subs)
		h.mu.Unlock()
		h.log.Info("hub unsubscribe", "subs", remaining)
	}
	return ch, unsub
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	h.log.Debug("hub replay", "after", after, "count", len(events))
	return events
}

func (h *Hub) publish(event StreamEvent) {
	h.publishOrdered(event, "")
}

// publishOrdered publishes event unless key already saw a newer revision.
// Unrevisioned events always pass. forget drops the keys of retired tabs
// and windows, along with any key nested under them.
func (h *Hub) publishOrdered(event StreamEvent, key string, forget ...string) {
	event.Timestamp = time.Now()
	h.mu.Lock()
	for _, prefix := range forget {
		for k := range h.revisions {
			if k == prefix || strings.HasPrefix(k, prefix+"/") {
				delete(h.revisions, k)
			}
		}
	}
	if key != "" && event.Revision != 0 {
		if last := h.revisions[key]; event.Revision <= last {
			h.mu.Unlock()
			h.log.Trace("hub stale event dropped", "type", event.Type, "key", key, "revision", event.Revision, "latest", last)
			return
		}
		h.revisions[key] = event.Revision
	}
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		h.log.Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

func shellKey(windowID schema.WindowID) string { return "shell/" + string(windowID) }

func activeKey(windowID schema.WindowID) string { return "active/" + string(windowID) }

func tabKey(windowID schema.WindowID, tabID schema.TabID) string {
	return "tab/" + string(windowID) + "/" + string(tabID)
}

// visibleTo reports whether event belongs on a stream scoped to windowID.
// Events without a window are global.
func visibleTo(event StreamEvent, windowID schema.WindowID) bool {
	return windowID == "" || event.WindowID == "" || event.WindowID == windowID
}
