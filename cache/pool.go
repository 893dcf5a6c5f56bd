// Package cache maintains a small fixed pool of immutable snapshots of the
// host's metric name table, so that any number of request goroutines can read
// a consistent copy without blocking the periodic refresh.
//
// Usage:
//
//	snap, h, ok := pool.Acquire()
//	if !ok { ... } // cold start
//	defer pool.Release(h)
//	read snap.Names / snap.Times
//
// A snapshot stays alive as long as at least one reader holds a handle on its
// slot; Refresh reclaims superseded slots only once their reference count
// drops to zero.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSlots is the pool size used when none is configured. Two slots are
// the working set (current plus one being superseded); the rest absorb
// long-held references.
const DefaultSlots = 6

// Source supplies the full current set of metric names and their last update
// times. plugin.NameSource satisfies it.
type Source interface {
	Names() (names []string, times []time.Time, err error)
}

// Snapshot is an immutable point-in-time copy of the metric name table.
// Names and Times are parallel-indexed. Never mutated after publication.
type Snapshot struct {
	Names      []string
	Times      []time.Time
	CapturedAt time.Time
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Names)
}

// Handle identifies an acquired slot. It must be passed back to Release
// exactly once.
type Handle int

type slot struct {
	snap  *Snapshot
	ref   int
	ready bool
}

// Pool is the slot table. All slot state is guarded by one mutex; once a
// snapshot is acquired it is read without any further locking until released.
type Pool struct {
	mu         sync.Mutex
	slots      []slot
	source     Source
	expiration time.Duration
}

// New creates a pool of size slots reading from source. Snapshots older than
// expiration are replaced on the next Refresh. A pool smaller than two slots
// cannot hold a current and a superseded snapshot at once; that is a static
// misconfiguration and panics.
func New(source Source, slots int, expiration time.Duration) *Pool {
	if slots < 2 {
		panic(fmt.Sprintf("cache: pool size %d is too small, need at least 2 slots", slots))
	}
	return &Pool{
		slots:      make([]slot, slots),
		source:     source,
		expiration: expiration,
	}
}

// latestLocked returns the index of the ready slot with the newest snapshot,
// or -1. Callers must hold mu.
func (p *Pool) latestLocked() int {
	latest := -1
	var captured time.Time
	for i := range p.slots {
		if p.slots[i].ready && p.slots[i].snap.CapturedAt.After(captured) {
			captured = p.slots[i].snap.CapturedAt
			latest = i
		}
	}
	return latest
}

// Refresh sweeps superseded slots and, when the current snapshot is missing
// or older than the expiration window, captures a new one from the Source.
// A Source failure leaves the pool untouched and is reported to the caller;
// the next Refresh retries. Refresh holds the pool lock for the whole
// read-modify-write so concurrent calls can never claim the same free slot.
//
// When every slot is ready and referenced there is nowhere to put a fresh
// snapshot: the pool was sized too small for the number of concurrent
// readers. That is not a runtime condition to degrade through; it panics so
// the operator restarts with a bigger pool.
func (p *Pool) Refresh(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.latestLocked()

	// Reclaim superseded snapshots nobody is reading anymore.
	for i := range p.slots {
		if i != current && p.slots[i].ready && p.slots[i].ref == 0 {
			p.slots[i] = slot{}
		}
	}

	if current != -1 && !now.After(p.slots[current].snap.CapturedAt.Add(p.expiration)) {
		return nil
	}

	free := -1
	for i := range p.slots {
		if !p.slots[i].ready {
			free = i
			break
		}
	}
	if free == -1 {
		panic(fmt.Sprintf("cache: all %d slots ready and referenced, pool exhausted; restart with a bigger pool", len(p.slots)))
	}

	names, times, err := p.source.Names()
	if err != nil {
		return fmt.Errorf("cache: snapshot source: %w", err)
	}

	p.slots[free] = slot{
		snap: &Snapshot{
			Names:      names,
			Times:      times,
			CapturedAt: now,
		},
		ready: true,
	}
	return nil
}

// Acquire references the newest ready snapshot and returns it together with
// the handle needed to release it. ok is false when no snapshot exists yet
// (cold start, or the Source failing since startup).
func (p *Pool) Acquire() (snap *Snapshot, h Handle, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.latestLocked()
	if current == -1 {
		return nil, 0, false
	}
	p.slots[current].ref++
	return p.slots[current].snap, Handle(current), true
}

// Release drops one reference on the slot behind h. Releasing a handle twice
// is a programming error and panics.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.slots[h].ref--
	if p.slots[h].ref < 0 {
		panic(fmt.Sprintf("cache: slot %d reference count went negative, handle released twice", h))
	}
}

// Stats is a point-in-time view of the slot table for the metrics exporter.
type Stats struct {
	// Ready is the number of slots currently holding a snapshot.
	Ready int
	// Refs holds the reference count per slot; 0 for empty slots.
	Refs []int
	// LatestLen is the entry count of the newest snapshot, 0 when none.
	LatestLen int
}

// Stats reports pool occupancy without touching reference counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Stats{Refs: make([]int, len(p.slots))}
	for i := range p.slots {
		if p.slots[i].ready {
			st.Ready++
			st.Refs[i] = p.slots[i].ref
		}
	}
	if current := p.latestLocked(); current != -1 {
		st.LatestLen = p.slots[current].snap.Len()
	}
	return st
}

// Size returns the fixed number of slots.
func (p *Pool) Size() int {
	return len(p.slots)
}
