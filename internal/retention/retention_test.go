package retention

import (
	"path/filepath"
	"testing"
	"time"

	"netwatch/internal/aggregate"
	"netwatch/internal/clock"
	"netwatch/internal/store"
)

func newTestRetention(t *testing.T) (*Retention, *aggregate.Aggregator, *store.Store, clock.FakeClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "netwatch.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fake := clock.NewFake()
	return New(st, fake), aggregate.New(st, fake), st, fake
}

// TestScenarioCDefersWithoutAggregation mirrors spec.md scenario C: raw
// rows exist for an hour past rawTTL, but that hour has never been
// aggregated, so retention must defer deletion rather than destroy data
// the aggregator still needs (spec.md invariant #5).
func TestScenarioCDefersWithoutAggregation(t *testing.T) {
	ret, _, st, fake := newTestRetention(t)
	appID, err := st.UpsertApplication("A", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.InsertRawSamples([]store.RawSample{{Ts: 10, AppID: appID, BytesOut: 5}}); err != nil {
		t.Fatal(err)
	}

	// Advance well past a 1-day rawTTL without ever running the aggregator.
	fake.Advance(2 * 24 * time.Hour)

	rawDeleted, _, err := ret.Run(Policy{RawTTLDays: 1, HourTTLDays: 90})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rawDeleted != 0 {
		t.Fatalf("expected deletion to be deferred, deleted %d rows", rawDeleted)
	}

	rows, err := st.RawSamplesInRange(0, 20, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected raw sample to survive, got %d rows", len(rows))
	}
}

// TestScenarioCPrunesOnceAggregated continues scenario C: once the hour
// is aggregated, a subsequent retention run prunes the now-redundant raw
// rows and leaves the hourly aggregate intact.
func TestScenarioCPrunesOnceAggregated(t *testing.T) {
	ret, agg, st, fake := newTestRetention(t)
	appID, err := st.UpsertApplication("A", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.InsertRawSamples([]store.RawSample{{Ts: 10, AppID: appID, BytesOut: 5}}); err != nil {
		t.Fatal(err)
	}

	fake.Advance(2 * 24 * time.Hour)

	if _, _, err := agg.Run(); err != nil {
		t.Fatalf("aggregator Run: %v", err)
	}

	rawDeleted, _, err := ret.Run(Policy{RawTTLDays: 1, HourTTLDays: 90})
	if err != nil {
		t.Fatalf("retention Run: %v", err)
	}
	if rawDeleted != 1 {
		t.Fatalf("expected 1 raw row pruned, got %d", rawDeleted)
	}

	rows, err := st.RawSamplesInRange(0, 20, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected raw samples pruned, got %d rows", len(rows))
	}

	hourly, err := st.BucketsByApp(store.TierHourly, appID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hourly) != 1 || hourly[0].SumBytesOut != 5 {
		t.Fatalf("expected hourly aggregate to survive untouched, got %+v", hourly)
	}
}

// TestRerunIsIdempotent covers spec.md invariant #7: a second retention
// run with no intervening writes deletes 0 rows.
func TestRerunIsIdempotent(t *testing.T) {
	ret, agg, st, fake := newTestRetention(t)
	appID, err := st.UpsertApplication("A", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.InsertRawSamples([]store.RawSample{{Ts: 10, AppID: appID, BytesOut: 5}}); err != nil {
		t.Fatal(err)
	}
	fake.Advance(2 * 24 * time.Hour)
	if _, _, err := agg.Run(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ret.Run(Policy{RawTTLDays: 1, HourTTLDays: 90}); err != nil {
		t.Fatal(err)
	}
	rawDeleted, hourlyDeleted, err := ret.Run(Policy{RawTTLDays: 1, HourTTLDays: 90})
	if err != nil {
		t.Fatal(err)
	}
	if rawDeleted != 0 || hourlyDeleted != 0 {
		t.Fatalf("expected no-op rerun, got rawDeleted=%d hourlyDeleted=%d", rawDeleted, hourlyDeleted)
	}
}

// TestBrowserSamplesPrunedOnlyAfterAggregation applies the raw-tier
// deferral rule to browser_domain_samples: stale observations survive
// until their hours exist in browser_hourly, then prune.
func TestBrowserSamplesPrunedOnlyAfterAggregation(t *testing.T) {
	ret, agg, st, fake := newTestRetention(t)
	appID, err := st.UpsertApplication("zen", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	domainID, err := st.UpsertDomain("example.com", "example.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.InsertBrowserDomainSample(store.BrowserDomainSample{Ts: 10, DomainID: domainID, AppID: appID}); err != nil {
		t.Fatal(err)
	}

	fake.Advance(2 * 24 * time.Hour)

	// Without aggregation the sample must survive.
	if _, _, err := ret.Run(Policy{RawTTLDays: 1, HourTTLDays: 90}); err != nil {
		t.Fatal(err)
	}
	rows, err := st.TopDomainsByBytes(0, 100, false, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected browser sample to survive without aggregation, got %d rows", len(rows))
	}

	if _, _, err := agg.Run(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ret.Run(Policy{RawTTLDays: 1, HourTTLDays: 90}); err != nil {
		t.Fatal(err)
	}
	rows, err = st.TopDomainsByBytes(0, 100, false, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected browser sample pruned after aggregation, got %d rows", len(rows))
	}

	hours, err := st.BrowserBucketStartsCovered(store.TierHourly, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !hours[0] {
		t.Fatal("expected browser hourly aggregate to survive the prune")
	}
}

// TestHourlyPruneDefersWithoutDailyAggregation mirrors the same deferral
// rule one tier up: hourly aggregates past hourTTL aren't pruned until
// the day they belong to has been rolled into daily_aggregates.
func TestHourlyPruneDefersWithoutDailyAggregation(t *testing.T) {
	ret, _, st, fake := newTestRetention(t)
	appID, err := st.UpsertApplication("A", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertAggregate(store.TierHourly, store.Bucket{BucketStart: 0, AppID: appID, SumBytesOut: 5, SampleCount: 1}); err != nil {
		t.Fatal(err)
	}

	fake.Advance(200 * 24 * time.Hour)

	_, hourlyDeleted, err := ret.Run(Policy{RawTTLDays: 7, HourTTLDays: 1})
	if err != nil {
		t.Fatal(err)
	}
	if hourlyDeleted != 0 {
		t.Fatalf("expected hourly prune deferred without daily rollup, deleted %d", hourlyDeleted)
	}
}
