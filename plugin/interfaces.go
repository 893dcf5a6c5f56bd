package plugin

import "context"

// Plugin is the minimal interface every plugin must implement.
type Plugin interface {
	Name() string
}

// --- Optional Capability Interfaces ---
// The registry detects these via type assertion:
// if p, ok := plugin.(Reader); ok { ... }

// Configurable -- receives host configuration options one key/value pair at
// a time, before Init.
type Configurable interface {
	SetOption(key, value string) error
}

// Initializer -- one-time startup (open sockets, allocate caches).
type Initializer interface {
	Init(ctx context.Context, host *HostContext) error
}

// Reader -- periodic collection tick driven by the host.
type Reader interface {
	Read(ctx context.Context) error
}

// Shutdowner -- cleanup on host shutdown (close servers, flush buffers).
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// DataSetProvider -- declare the value types this plugin dispatches.
type DataSetProvider interface {
	DataSets() []DataSet
}
