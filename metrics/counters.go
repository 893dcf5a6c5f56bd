// Package metrics tracks the JSON-RPC pipeline counters and publishes them,
// together with cache occupancy, through the host's dispatch interface.
package metrics

import "sync/atomic"

// Counters holds the process-wide pipeline counters. Counts start at zero at
// process start and are never reset. Each counter is independently atomic;
// there is no ordering guarantee between different counters.
type Counters struct {
	activeClients  atomic.Int64
	newConnections atomic.Int64
	succeeded      atomic.Int64
	failed         atomic.Int64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// TryAcquireClient atomically claims an active-client seat. It returns false
// without side effects when max seats are already taken.
func (c *Counters) TryAcquireClient(max int64) bool {
	for {
		cur := c.activeClients.Load()
		if cur >= max {
			return false
		}
		if c.activeClients.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// ReleaseClient returns an active-client seat. Releasing more seats than were
// acquired is a programming error and panics.
func (c *Counters) ReleaseClient() {
	if c.activeClients.Add(-1) < 0 {
		panic("metrics: active client count went negative")
	}
}

// IncNewConnection counts one accepted connection.
func (c *Counters) IncNewConnection() { c.newConnections.Add(1) }

// IncSucceeded counts one successfully answered request.
func (c *Counters) IncSucceeded() { c.succeeded.Add(1) }

// IncFailed counts one failed request.
func (c *Counters) IncFailed() { c.failed.Add(1) }

// ActiveClients returns the current number of in-flight clients.
func (c *Counters) ActiveClients() int64 { return c.activeClients.Load() }

// NewConnections returns the total accepted connections since start.
func (c *Counters) NewConnections() int64 { return c.newConnections.Load() }

// Succeeded returns the total succeeded requests since start.
func (c *Counters) Succeeded() int64 { return c.succeeded.Load() }

// Failed returns the total failed requests since start.
func (c *Counters) Failed() int64 { return c.failed.Load() }
