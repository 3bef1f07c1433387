package sampler

import (
	"context"
	"testing"

	"netwatch/internal/store"
)

// fakeSampler replays a fixed sequence of snapshots, one per Tick call.
type fakeSampler struct {
	snaps []Snapshot
	i     int
}

func (f *fakeSampler) Snapshot(ctx context.Context) (Snapshot, error) {
	s := f.snaps[f.i]
	f.i++
	return s, nil
}

// fakeResolver assigns sequential appIds per distinct process name.
type fakeResolver struct {
	ids map[string]int64
	next int64
}

func newFakeResolver() *fakeResolver { return &fakeResolver{ids: make(map[string]int64)} }

func (r *fakeResolver) Resolve(processName, bundleID string, now int64, minInterval int64) (int64, error) {
	if id, ok := r.ids[processName]; ok {
		return id, nil
	}
	r.next++
	r.ids[processName] = r.next
	return r.next, nil
}

// fakeWriter records every batch of rows it receives.
type fakeWriter struct {
	batches [][]store.RawSample
}

func (w *fakeWriter) InsertRawSamples(rows []store.RawSample) error {
	// Copy to decouple from caller's backing array, like a real insert.
	cp := append([]store.RawSample(nil), rows...)
	w.batches = append(w.batches, cp)
	return nil
}

// TestScenarioACounterResetNotDoubleCounted reproduces spec.md scenario A
// exactly: a restart must never be stored as a huge positive delta.
func TestScenarioACounterResetNotDoubleCounted(t *testing.T) {
	snaps := []Snapshot{
		{{ProcessName: "A"}: {BytesOut: 1_000_000}},
		{{ProcessName: "A"}: {BytesOut: 1_500_000}},
		{{ProcessName: "A"}: {BytesOut: 100_000}}, // restart
		{{ProcessName: "A"}: {BytesOut: 300_000}},
	}
	w := &fakeWriter{}
	e := NewDeltaEngine(&fakeSampler{snaps: snaps}, newFakeResolver(), w, 1)

	for ts := int64(0); ts < 4; ts++ {
		if err := e.Tick(context.Background(), ts); err != nil {
			t.Fatalf("tick %d: %v", ts, err)
		}
	}

	var total int64
	var rowsEmitted int
	for _, batch := range w.batches {
		for _, r := range batch {
			total += r.BytesOut
			rowsEmitted++
		}
	}
	if rowsEmitted != 3 {
		t.Fatalf("expected 3 delta rows (first tick has no baseline), got %d", rowsEmitted)
	}
	if total != 700_000 {
		t.Errorf("expected total bytesOut 700000, got %d (naive cumulative storage would give 2900000)", total)
	}

	// Row at ts=2 (the reset tick) must be exactly 0, not a huge value.
	resetRow := w.batches[2][0]
	if resetRow.BytesOut != 0 {
		t.Errorf("expected reset tick to store 0 bytes, got %d", resetRow.BytesOut)
	}
}

func TestFirstSightingEmitsNoRowButSeedsBaseline(t *testing.T) {
	snaps := []Snapshot{
		{{ProcessName: "A"}: {BytesOut: 10}},
		{{ProcessName: "A"}: {BytesOut: 25}},
	}
	w := &fakeWriter{}
	e := NewDeltaEngine(&fakeSampler{snaps: snaps}, newFakeResolver(), w, 1)

	if err := e.Tick(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if len(w.batches[0]) != 0 {
		t.Fatalf("expected no rows on first sighting, got %d", len(w.batches[0]))
	}

	if err := e.Tick(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(w.batches[1]) != 1 || w.batches[1][0].BytesOut != 15 {
		t.Fatalf("expected delta 15 on second tick, got %+v", w.batches[1])
	}
}

func TestExitedProcessDropsSilently(t *testing.T) {
	snaps := []Snapshot{
		{{ProcessName: "A"}: {BytesOut: 10}, {ProcessName: "B"}: {BytesOut: 5}},
		{{ProcessName: "A"}: {BytesOut: 20}}, // B exited
	}
	w := &fakeWriter{}
	e := NewDeltaEngine(&fakeSampler{snaps: snaps}, newFakeResolver(), w, 1)

	e.Tick(context.Background(), 0)
	if err := e.Tick(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	// Only A should produce a row; B's disappearance must not emit a
	// negative-correction row.
	if len(w.batches[1]) != 1 {
		t.Fatalf("expected 1 row after B exits, got %d", len(w.batches[1]))
	}
}

func TestSnapshotErrorSkipsTickWithoutWriting(t *testing.T) {
	w := &fakeWriter{}
	e := NewDeltaEngine(errSampler{}, newFakeResolver(), w, 1)
	if err := e.Tick(context.Background(), 0); err != nil {
		t.Fatalf("Tick should swallow sampler errors, got %v", err)
	}
	if len(w.batches) != 0 {
		t.Fatalf("expected no write attempted on sampler error, got %d batches", len(w.batches))
	}
}

type errSampler struct{}

func (errSampler) Snapshot(ctx context.Context) (Snapshot, error) {
	return nil, context.DeadlineExceeded
}

func TestClampedDelta(t *testing.T) {
	if got := clampedDelta(100, 50); got != 0 {
		t.Errorf("expected clamp to 0 on decrease, got %d", got)
	}
	if got := clampedDelta(100, 150); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	if got := clampedDelta(0, 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
