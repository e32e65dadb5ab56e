package schema

// TabEventType describes tab lifecycle or state changes.
type TabEventType string

const (
	// TabEventCreated indicates a tab was created.
	TabEventCreated TabEventType = "created"
	// TabEventClosed indicates a tab was closed.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated indicates a tab became active.
	TabEventActivated TabEventType = "activated"
	// TabEventUpdated indicates tab fields changed.
	TabEventUpdated TabEventType = "updated"
	// TabEventReordered indicates the tab strip order changed.
	TabEventReordered TabEventType = "reordered"
)

// TabEvent represents a change to a tab or the tab list.
type TabEvent struct {
	WindowID  WindowID
	Type      TabEventType
	Tab       TabSnapshot
	ActiveTab TabID
	Order     []TabID
	// Revision is the window state revision the event was captured at.
	Revision uint64
}

// ShellEvent carries the window's mirrored display state.
type ShellEvent struct {
	WindowID WindowID
	Shell    ShellState
	// Revision is the window state revision the shell was captured at. A
	// higher revision always reflects later state.
	Revision uint64
}

// DownloadEvent carries a download lifecycle update.
type DownloadEvent struct {
	Download    DownloadSnapshot
	ActiveCount int
}

// ShieldEvent carries the running count of blocked requests.
type ShieldEvent struct {
	WindowID     WindowID
	BlockedCount int64
	URL          string
}

// ContextMenuEvent forwards a context menu request to the host menu collaborator.
type ContextMenuEvent struct {
	WindowID WindowID
	TabID    TabID
	Request  ContextMenuRequest
}

// WindowEventType describes window lifecycle changes.
type WindowEventType string

const (
	// WindowEventOpened indicates a window was opened.
	WindowEventOpened WindowEventType = "opened"
	// WindowEventClosed indicates a window was closed.
	WindowEventClosed WindowEventType = "closed"
)

// WindowEvent represents a window lifecycle change.
type WindowEvent struct {
	Type   WindowEventType
	Window WindowSnapshot
}
