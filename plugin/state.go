package plugin

// State represents the lifecycle state of a registered plugin.
type State int

const (
	StateRegistered  State = iota // Registered, not yet initialized
	StateConfigured               // SetOption() applied without error
	StateInitialized              // Init() succeeded, running
	StateStopped                  // Shutdown() succeeded
	StateFailed                   // Init() or Shutdown() failed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateConfigured:
		return "configured"
	case StateInitialized:
		return "initialized"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the state cannot transition further in normal flow.
func (s State) IsTerminal() bool {
	return s == StateFailed || s == StateStopped
}
