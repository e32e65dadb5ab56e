package schema

// SurfaceEventType identifies a lifecycle event emitted by a tab's render surface.
type SurfaceEventType string

const (
	// SurfaceNavigated reports a committed top-level navigation.
	SurfaceNavigated SurfaceEventType = "did-navigate"
	// SurfaceNavigatedInPage reports a same-document navigation (fragment, history API).
	SurfaceNavigatedInPage SurfaceEventType = "did-navigate-in-page"
	// SurfaceLoadStart reports that the surface started loading.
	SurfaceLoadStart SurfaceEventType = "did-start-loading"
	// SurfaceLoadStop reports that the surface stopped loading.
	SurfaceLoadStop SurfaceEventType = "did-stop-loading"
	// SurfaceTitleUpdated reports a new document title.
	SurfaceTitleUpdated SurfaceEventType = "page-title-updated"
	// SurfaceFaviconUpdated reports the page's icon candidates.
	SurfaceFaviconUpdated SurfaceEventType = "page-favicon-updated"
	// SurfaceContextMenu reports a context menu request.
	SurfaceContextMenu SurfaceEventType = "context-menu"
)

// SurfaceEvent is a single render-surface notification. Only the fields relevant to
// Type are populated.
type SurfaceEvent struct {
	Type     SurfaceEventType
	URL      string
	Title    string
	Favicons []string
	Menu     *ContextMenuRequest
}

// ContextMenuRequest describes where a context menu was requested.
type ContextMenuRequest struct {
	X             int    `json:"x"`
	Y             int    `json:"y"`
	SelectionText string `json:"selectionText,omitempty"`
	LinkURL       string `json:"linkURL,omitempty"`
}

// MenuCommand is an action chosen from the context menu.
type MenuCommand string

const (
	// MenuBack navigates the active tab back.
	MenuBack MenuCommand = "back"
	// MenuForward navigates the active tab forward.
	MenuForward MenuCommand = "forward"
	// MenuReload reloads the active tab.
	MenuReload MenuCommand = "reload"
	// MenuInspect opens developer tools for the active tab.
	MenuInspect MenuCommand = "inspect"
)
