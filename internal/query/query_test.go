package query

import (
	"path/filepath"
	"testing"
	"time"

	"netwatch/internal/clock"
	"netwatch/internal/store"
)

func newTestEngine(t *testing.T, rawTTLDays, hourTTLDays int) (*Engine, *store.Store, clock.FakeClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "netwatch.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fake := clock.NewFake()
	return New(st, fake, 1, rawTTLDays, hourTTLDays), st, fake
}

// TestScenarioEBandwidthWindowing mirrors spec.md scenario E: three
// consecutive one-second ticks totalling 100, 200, 300 bytes-out across
// apps; the rate must come from only the latest two ticks (300/1), never
// the three-tick average.
func TestScenarioEBandwidthWindowing(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appID, err := st.UpsertApplication("A", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.InsertRawSamples([]store.RawSample{
		{Ts: 1, AppID: appID, BytesOut: 100},
		{Ts: 2, AppID: appID, BytesOut: 200},
		{Ts: 3, AppID: appID, BytesOut: 300},
	}); err != nil {
		t.Fatal(err)
	}
	fake.Advance(3 * time.Second)

	bw, err := eng.Bandwidth()
	if err != nil {
		t.Fatalf("Bandwidth: %v", err)
	}
	if bw.BytesPerSecond != 300 {
		t.Fatalf("expected 300 bytes/sec, got %v", bw.BytesPerSecond)
	}
}

// TestBandwidthBelowTwoTicksReturnsZero covers invariant #9.
func TestBandwidthBelowTwoTicksReturnsZero(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appID, _ := st.UpsertApplication("A", "", 0)
	if err := st.InsertRawSamples([]store.RawSample{{Ts: 1, AppID: appID, BytesOut: 100}}); err != nil {
		t.Fatal(err)
	}
	fake.Advance(1 * time.Second)

	bw, err := eng.Bandwidth()
	if err != nil {
		t.Fatal(err)
	}
	if bw.BytesPerSecond != 0 {
		t.Fatalf("expected 0 with fewer than 2 ticks, got %v", bw.BytesPerSecond)
	}
}

// TestScenarioFTimelineBucketShape mirrors spec.md scenario F: a 24h
// timeline with no data returns exactly 288 zero-valued points.
func TestScenarioFTimelineBucketShape(t *testing.T) {
	eng, _, fake := newTestEngine(t, 7, 90)
	fake.Advance(100000 * time.Second)

	points, err := eng.Timeline(TimelineRequest{Period: "24h"})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(points) != 288 {
		t.Fatalf("expected 288 points, got %d", len(points))
	}
	for _, p := range points {
		if p.BytesOut != 0 || p.BytesIn != 0 {
			t.Fatalf("expected all-zero points, got %+v", p)
		}
	}
}

func TestTimelineRawTierSumsIntoBuckets(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appID, _ := st.UpsertApplication("A", "", 0)
	fake.Advance(3600 * time.Second)
	if err := st.InsertRawSamples([]store.RawSample{
		{Ts: 0, AppID: appID, BytesOut: 10},
		{Ts: 1, AppID: appID, BytesOut: 20},
		{Ts: 3599, AppID: appID, BytesOut: 30},
	}); err != nil {
		t.Fatal(err)
	}

	points, err := eng.Timeline(TimelineRequest{Period: "1h"})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 60 {
		t.Fatalf("expected 60 points, got %d", len(points))
	}
	var total int64
	for _, p := range points {
		total += p.BytesOut
	}
	if total != 60 {
		t.Fatalf("expected total bytesOut=60 across all buckets, got %d", total)
	}
}

func TestSummaryIsConsistentAndIdentifiesTopEntities(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appA, _ := st.UpsertApplication("A", "", 0)
	appB, _ := st.UpsertApplication("B", "", 0)
	if err := st.InsertRawSamples([]store.RawSample{
		{Ts: 1, AppID: appA, BytesOut: 100},
		{Ts: 1, AppID: appB, BytesOut: 50},
	}); err != nil {
		t.Fatal(err)
	}
	fake.Advance(10 * time.Second)

	since := int64(0)
	until := int64(100)
	sum, err := eng.Summary(SummaryRequest{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalBytesOut != 150 {
		t.Fatalf("expected total 150, got %d", sum.TotalBytesOut)
	}
	if !sum.HasTopApp || sum.TopAppName != "A" {
		t.Fatalf("expected top app A, got %+v", sum)
	}
}

func TestSummaryWeekWindowCatchesOlderTraffic(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appID, _ := st.UpsertApplication("A", "", 0)
	if err := st.InsertRawSamples([]store.RawSample{
		{Ts: 100, AppID: appID, BytesOut: 150},
	}); err != nil {
		t.Fatal(err)
	}
	// Two days later: the sample is outside "today" but inside the
	// trailing week and month windows.
	fake.Advance(2 * 24 * time.Hour)

	sum, err := eng.Summary(SummaryRequest{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalBytesOut != 0 {
		t.Fatalf("expected today total 0, got %d", sum.TotalBytesOut)
	}
	if sum.WeekBytesOut != 150 || sum.MonthBytesOut != 150 {
		t.Fatalf("expected week/month totals 150, got week=%d month=%d", sum.WeekBytesOut, sum.MonthBytesOut)
	}
}

func TestAppsListSortByBytesOutDescending(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appA, _ := st.UpsertApplication("A", "", 0)
	appB, _ := st.UpsertApplication("B", "", 0)
	if err := st.InsertRawSamples([]store.RawSample{
		{Ts: 1, AppID: appA, BytesOut: 10},
		{Ts: 1, AppID: appB, BytesOut: 99},
	}); err != nil {
		t.Fatal(err)
	}
	fake.Advance(10 * time.Second)

	rows, err := eng.AppsList(AppsListRequest{SortBy: "bytesOut", Order: "desc"})
	if err != nil {
		t.Fatalf("AppsList: %v", err)
	}
	if len(rows) != 2 || rows[0].ProcessName != "B" {
		t.Fatalf("expected B first, got %+v", rows)
	}
}

func TestAppsListRejectsUnknownSortKey(t *testing.T) {
	eng, _, _ := newTestEngine(t, 7, 90)
	if _, err := eng.AppsList(AppsListRequest{SortBy: "'; DROP TABLE applications; --"}); err == nil {
		t.Fatal("expected validation error for unenumerated sort key")
	}
}

// TestScenarioDDomainsListParentOnly mirrors spec.md scenario D's final
// assertion: domains.list(parentOnly=true) returns only rows where
// fqdn == parentDomain.
func TestScenarioDDomainsListParentOnly(t *testing.T) {
	eng, st, fake := newTestEngine(t, 7, 90)
	appID, err := st.UpsertApplication("zen", "", 0)
	if err != nil {
		t.Fatal(err)
	}

	childID, err := st.UpsertDomain("www.example.com", "example.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	parentID, err := st.UpsertDomain("example.com", "example.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.InsertBrowserDomainSample(store.BrowserDomainSample{Ts: 1, DomainID: childID, AppID: appID}); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertBrowserDomainSample(store.BrowserDomainSample{Ts: 1, DomainID: parentID, AppID: appID}); err != nil {
		t.Fatal(err)
	}
	fake.Advance(10 * time.Second)

	rows, err := eng.DomainsList(DomainsListRequest{ParentOnly: true})
	if err != nil {
		t.Fatalf("DomainsList: %v", err)
	}
	if len(rows) != 1 || rows[0].FQDN != "example.com" {
		t.Fatalf("expected only the parent domain row, got %+v", rows)
	}
}
