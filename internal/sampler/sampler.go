// Package sampler turns an OS-level cumulative byte counter into the
// non-negative per-interval deltas netwatch stores (spec.md components C5
// and C6). The single most important invariant in the whole system lives
// here: the boundary between Cumulative and Delta values is never crossed
// except inside DeltaEngine.Tick (spec.md §9 design note).
package sampler

import (
	"context"
	"time"
)

// Identity names a process the way AppCatalog interns it: a process name
// plus an optional bundle id (spec.md §4.4).
type Identity struct {
	ProcessName string
	BundleID    string
}

// Cumulative is a counter that only increases while a process lives and
// resets to an unspecified value on restart. It is a distinct nominal
// type from Delta so the compiler catches any code path that tries to
// store a cumulative value as though it were already a delta (spec.md §9
// design note).
type Cumulative struct {
	BytesOut   uint64
	BytesIn    uint64
	PacketsOut uint64
	PacketsIn  uint64
	// HasPackets reports whether the sampler could populate packet
	// counts for this identity (spec.md §9 open question 4 — the OS
	// capability does not reliably provide them).
	HasPackets bool
}

// Delta is the non-negative difference between two consecutive
// Cumulative reads for the same identity.
type Delta struct {
	BytesOut   uint64
	BytesIn    uint64
	PacketsOut uint64
	PacketsIn  uint64
}

// Snapshot is one instant's reading across every identity the sampler
// could observe.
type Snapshot map[Identity]Cumulative

// ProcessSampler is the capability contract spec.md §4.4 defines: it
// returns a snapshot of cumulative per-process byte counters. A failed
// snapshot must be treated as "no data for this tick", never as zero —
// DeltaEngine enforces that by logging the error and skipping the tick
// (no rows written, baseline kept) rather than substituting an empty
// Snapshot.
type ProcessSampler interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// DefaultTimeout is the bounded timeout spec.md §5 assigns to process
// enumeration; a tick that exceeds it is skipped with a warning rather
// than blocking the sampler task indefinitely.
const DefaultTimeout = 5 * time.Second
