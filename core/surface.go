package core

import (
	"context"

	"pkt.systems/ayen/schema"
)

// Surface is the host render surface bound to one tab. Commands are
// fire-and-forget; outcomes arrive as events.
type Surface interface {
	Navigate(url string)
	Back()
	Forward()
	Reload()
	Stop()
	CanGoBack() bool
	CanGoForward() bool
	// Subscribe registers the handler for the surface's events and returns a
	// function that detaches it.
	Subscribe(handler func(schema.SurfaceEvent)) (detach func())
	Close()
}

// Inspector is implemented by surfaces that can open developer tools.
type Inspector interface {
	Inspect()
}

// SurfaceRequest describes a surface to create for a tab.
type SurfaceRequest struct {
	WindowID schema.WindowID
	TabID    schema.TabID
}

// Host creates render surfaces and owns the engine-level session of each window.
type Host interface {
	OpenSession(ctx context.Context, windowID schema.WindowID, persistent bool) error
	CloseSession(ctx context.Context, windowID schema.WindowID) error
	NewSurface(ctx context.Context, req SurfaceRequest) (Surface, error)
	// SetBlocking enables or disables request filtering for a window's session.
	SetBlocking(windowID schema.WindowID, enabled bool)
	// ClearStorage removes cookies and site storage for a window's session.
	ClearStorage(ctx context.Context, windowID schema.WindowID) error
}
