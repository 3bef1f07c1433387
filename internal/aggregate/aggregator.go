// Package aggregate rolls finalized hour and day windows from raw into
// hourly and daily tiers (spec.md component C8), for both the per-app
// samples and the browser-domain samples.
package aggregate

import (
	"fmt"

	"netwatch/internal/clock"
	"netwatch/internal/obslog"
	"netwatch/internal/store"
)

const (
	hourSeconds = int64(3600)
	daySeconds  = int64(86400)
)

// Aggregator runs on a ticker and finalizes hour/day buckets (spec.md
// §4.7). It never deletes source rows — that is Retention's job, ordered
// strictly after aggregation within the same scheduler tick (spec.md §5).
type Aggregator struct {
	st  *store.Store
	clk clock.Clock
}

// New constructs an Aggregator backed by st, using clk to determine which
// buckets are finalized.
func New(st *store.Store, clk clock.Clock) *Aggregator {
	return &Aggregator{st: st, clk: clk}
}

// Run performs one aggregation pass: hourly first (rolling raw rows up),
// then daily (rolling hourly rows up), matching spec.md §4.7's ordering
// ("for each of {hour, day}"). Each bucket is rolled in a single
// transaction. It returns the number of app-tier buckets written at each
// resolution.
func (a *Aggregator) Run() (hourlyBuckets, dailyBuckets int, err error) {
	now := a.clk.Now().Unix()

	hourlyBuckets, hourlyRows, browserHours, err := a.rollHourly(now)
	if err != nil {
		return 0, 0, err
	}
	if err := a.st.AppendRetentionLog("aggregate-hour", now, hourlyRows,
		fmt.Sprintf("buckets=%d browserBuckets=%d", hourlyBuckets, browserHours)); err != nil {
		obslog.Warn("aggregator: failed to write retention log: %v", err)
	}

	dailyBuckets, dailyRows, browserDays, err := a.rollDaily(now)
	if err != nil {
		return hourlyBuckets, 0, err
	}
	if err := a.st.AppendRetentionLog("aggregate-day", now, dailyRows,
		fmt.Sprintf("buckets=%d browserBuckets=%d", dailyBuckets, browserDays)); err != nil {
		obslog.Warn("aggregator: failed to write retention log: %v", err)
	}

	return hourlyBuckets, dailyBuckets, nil
}

// rollHourly finalizes every hour whose end is <= now and which still has
// source rows present. Re-rolling an already-aggregated hour is a
// replacing upsert, so the pass stays idempotent; the set of candidate
// hours is bounded by raw retention.
func (a *Aggregator) rollHourly(now int64) (buckets int, rows int64, browserBuckets int, err error) {
	currentHour := floorTo(now, hourSeconds)
	// Only hours strictly before the current (in-progress) hour are
	// finalized (spec.md: "bucketEnd <= now").
	covered, err := a.st.RawHoursCovered(0, currentHour-1)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, hourStart := range covered {
		n, err := a.st.RollupRawHour(hourStart)
		if err != nil {
			return buckets, rows, browserBuckets, err
		}
		rows += n
		buckets++
	}

	browserCovered, err := a.st.BrowserHoursCovered(0, currentHour-1)
	if err != nil {
		return buckets, rows, 0, err
	}
	for _, hourStart := range browserCovered {
		n, err := a.st.RollupBrowserRawHour(hourStart)
		if err != nil {
			return buckets, rows, browserBuckets, err
		}
		rows += n
		browserBuckets++
	}
	return buckets, rows, browserBuckets, nil
}

// rollDaily finalizes every day whose end is <= now, rolling up from the
// hourly tiers (spec.md invariant #4: daily = sum of hourly).
func (a *Aggregator) rollDaily(now int64) (buckets int, rows int64, browserBuckets int, err error) {
	currentDay := floorTo(now, daySeconds)

	hourStarts, err := a.st.BucketStartsCovered(store.TierHourly, 0, currentDay-1)
	if err != nil {
		return 0, 0, 0, err
	}
	for dayStart := range daysOf(hourStarts, currentDay) {
		n, err := a.st.RollupHourlyDay(dayStart)
		if err != nil {
			return buckets, rows, browserBuckets, err
		}
		rows += n
		buckets++
	}

	browserHourStarts, err := a.st.BrowserBucketStartsCovered(store.TierHourly, 0, currentDay-1)
	if err != nil {
		return buckets, rows, 0, err
	}
	for dayStart := range daysOf(browserHourStarts, currentDay) {
		n, err := a.st.RollupBrowserHourlyDay(dayStart)
		if err != nil {
			return buckets, rows, browserBuckets, err
		}
		rows += n
		browserBuckets++
	}
	return buckets, rows, browserBuckets, nil
}

// daysOf maps a set of hour starts to the finalized day starts they fall
// in, excluding the current (in-progress) day.
func daysOf(hourStarts map[int64]bool, currentDay int64) map[int64]bool {
	days := make(map[int64]bool)
	for hourStart := range hourStarts {
		if dayStart := floorTo(hourStart, daySeconds); dayStart < currentDay {
			days[dayStart] = true
		}
	}
	return days
}

func floorTo(ts, width int64) int64 {
	return (ts / width) * width
}
