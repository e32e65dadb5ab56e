package core

import (
	"pkt.systems/ayen/internal/profile"
	"pkt.systems/pslog"
)

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	// Host mounts render surfaces. Without one the service tracks state only.
	Host      Host
	Store     profile.Store
	EventSink EventSink
	Logger    pslog.Logger
}
