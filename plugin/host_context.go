package plugin

import "github.com/perfwatch/plugins/logging"

// HostContext is the typed dependency injection context passed to plugin
// lifecycle methods.
type HostContext struct {
	// Logger is the host logger; plugins derive named children from it.
	Logger logging.Logger

	// Dispatcher receives every measurement a plugin produces.
	Dispatcher Dispatcher

	// Names is the host's live metric store snapshot interface.
	Names NameSource

	// Hostname identifies this agent in dispatched value lists.
	Hostname string
}
