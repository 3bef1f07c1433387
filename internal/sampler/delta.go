package sampler

import (
	"context"

	"netwatch/internal/apperr"
	"netwatch/internal/catalog"
	"netwatch/internal/obslog"
	"netwatch/internal/store"
)

// Resolver is the subset of AppCatalog the DeltaEngine needs; split out
// so tests can substitute a fake without a real store.
type Resolver interface {
	Resolve(processName, bundleID string, now int64, minIntervalSeconds int64) (int64, error)
}

var _ Resolver = (*catalog.AppCatalog)(nil)

// Writer is the subset of Store the DeltaEngine needs.
type Writer interface {
	InsertRawSamples(samples []store.RawSample) error
}

var _ Writer = (*store.Store)(nil)

// DeltaEngine owns the previous snapshot and converts each new one into
// non-negative deltas (spec.md component C6). prev is owned exclusively
// by whichever goroutine drives Tick — it must never be accessed
// concurrently (spec.md §5).
type DeltaEngine struct {
	sampler  ProcessSampler
	resolver Resolver
	writer   Writer

	samplingIntervalSeconds int64
	prev                    Snapshot
}

// NewDeltaEngine constructs an engine with an empty baseline; the first
// tick for every identity therefore emits no row, exactly as spec.md
// §4.5 step 2's "no baseline" branch requires.
func NewDeltaEngine(s ProcessSampler, r Resolver, w Writer, samplingIntervalSeconds int64) *DeltaEngine {
	return &DeltaEngine{
		sampler:                 s,
		resolver:                r,
		writer:                  w,
		samplingIntervalSeconds: samplingIntervalSeconds,
		prev:                    make(Snapshot),
	}
}

// Tick runs one sampler iteration at instant ts (spec.md §4.5):
//  1. snapshot; on error, log and return without writing.
//  2. for each identity: resolve appId, diff against prev, clamp negative
//     deltas to 0 (counter reset), skip identities with no baseline.
//  3. drop identities present in prev but absent from cur.
//  4. batch-insert every delta row in one transaction; replace prev.
func (e *DeltaEngine) Tick(ctx context.Context, ts int64) error {
	cur, err := e.sampler.Snapshot(ctx)
	if err != nil {
		obslog.Warn("sampler: snapshot failed, skipping tick: %v", err)
		return nil
	}

	rows := make([]store.RawSample, 0, len(cur))
	for id, c := range cur {
		prevC, hadBaseline := e.prev[id]
		if !hadBaseline {
			// No baseline yet: record it and wait for the next tick.
			continue
		}

		appID, err := e.resolver.Resolve(id.ProcessName, id.BundleID, ts, e.samplingIntervalSeconds)
		if err != nil {
			obslog.Warn("sampler: resolve identity %+v failed: %v", id, err)
			continue
		}

		row := store.RawSample{
			Ts:    ts,
			AppID: appID,
		}
		row.BytesOut = clampedDelta(prevC.BytesOut, c.BytesOut)
		row.BytesIn = clampedDelta(prevC.BytesIn, c.BytesIn)
		if c.HasPackets && prevC.HasPackets {
			row.PacketsOut = clampedDelta(prevC.PacketsOut, c.PacketsOut)
			row.PacketsIn = clampedDelta(prevC.PacketsIn, c.PacketsIn)
		}
		rows = append(rows, row)
	}

	// Identities in cur-but-unseen still need a resolver touch so their
	// first sighting is recorded, even though no delta row is emitted.
	for id := range cur {
		if _, hadBaseline := e.prev[id]; hadBaseline {
			continue
		}
		if _, err := e.resolver.Resolve(id.ProcessName, id.BundleID, ts, e.samplingIntervalSeconds); err != nil {
			obslog.Warn("sampler: resolve new identity %+v failed: %v", id, err)
		}
	}

	if err := e.writer.InsertRawSamples(rows); err != nil {
		return apperr.TransientIO("insert raw samples", err)
	}

	// Identities in prev-but-absent-from-cur (exited processes) are
	// simply dropped by replacing prev wholesale — no negative
	// correction is ever emitted for them (spec.md §4.5 step 3).
	e.prev = cur
	return nil
}

// clampedDelta computes max(0, cur-prev) without wrapping on the uint64
// subtraction that a naive cur-prev would otherwise perform when cur <
// prev (spec.md §4.5 step 2: a negative delta means a counter reset —
// process restart or rollover — and is clamped to 0 rather than stored
// as a huge positive number). This is the canonical bug-fix invariant:
// without it, a restarted process's post-restart low counter read against
// its pre-restart high counter would store as an inflated delta of
// billions of bytes instead of 0.
func clampedDelta(prev, cur uint64) int64 {
	if cur < prev {
		return 0
	}
	return int64(cur - prev)
}
