// Package retention prunes raw samples and hourly aggregates past their
// configured TTLs (spec.md component C9), strictly after the Aggregator
// has run within the same scheduler tick (spec.md §5 ordering invariant).
package retention

import (
	"fmt"

	"netwatch/internal/clock"
	"netwatch/internal/obslog"
	"netwatch/internal/store"
)

const daySeconds = int64(86400)

// Policy holds the TTL knobs spec.md §4.8 and §6 define.
type Policy struct {
	RawTTLDays  int
	HourTTLDays int
}

// Retention runs on the same ticker as Aggregator, always after it.
type Retention struct {
	st  *store.Store
	clk clock.Clock
}

// New constructs a Retention enforcer backed by st.
func New(st *store.Store, clk clock.Clock) *Retention {
	return &Retention{st: st, clk: clk}
}

// Run enforces p, deleting raw samples past rawTTL only where every hour
// they cover is already aggregated, then hourly aggregates past hourTTL
// only where every day they cover is already aggregated (spec.md §4.8).
// The browser sample/hourly tiers are pruned under the same two rules.
// It is idempotent: a second call with no intervening writes deletes 0
// rows (spec.md invariant #7).
func (r *Retention) Run(p Policy) (rawDeleted, hourlyDeleted int64, err error) {
	now := r.clk.Now().Unix()

	rawDeleted, err = r.pruneRaw(now, p.RawTTLDays)
	if err != nil {
		return 0, 0, err
	}
	if _, err = r.pruneBrowserRaw(now, p.RawTTLDays); err != nil {
		return rawDeleted, 0, err
	}
	hourlyDeleted, err = r.pruneHourly(now, p.HourTTLDays)
	if err != nil {
		return rawDeleted, 0, err
	}
	if _, err = r.pruneBrowserHourly(now, p.HourTTLDays); err != nil {
		return rawDeleted, hourlyDeleted, err
	}
	return rawDeleted, hourlyDeleted, nil
}

func (r *Retention) pruneRaw(now int64, rawTTLDays int) (int64, error) {
	cutoff := now - int64(rawTTLDays)*daySeconds

	covered, err := r.st.RawHoursCovered(0, cutoff-1)
	if err != nil {
		return 0, err
	}
	if len(covered) == 0 {
		return 0, nil
	}
	aggregated, err := r.st.BucketStartsCovered(store.TierHourly, 0, cutoff-1)
	if err != nil {
		return 0, err
	}
	for _, hourStart := range covered {
		if !aggregated[hourStart] {
			obslog.Warn("retention: hour %d not yet aggregated, deferring raw prune", hourStart)
			return 0, nil
		}
	}

	deleted, err := r.st.DeleteRawSamplesBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if err := r.st.AppendRetentionLog("prune-raw", now, deleted, fmt.Sprintf("cutoff=%d", cutoff)); err != nil {
		obslog.Warn("retention: failed to write retention log: %v", err)
	}
	return deleted, nil
}

func (r *Retention) pruneHourly(now int64, hourTTLDays int) (int64, error) {
	cutoff := now - int64(hourTTLDays)*daySeconds

	covered, err := r.st.BucketStartsCovered(store.TierHourly, 0, cutoff-1)
	if err != nil {
		return 0, err
	}
	if len(covered) == 0 {
		return 0, nil
	}
	days := make(map[int64]bool)
	for hourStart := range covered {
		days[(hourStart/daySeconds)*daySeconds] = true
	}
	aggregatedDays, err := r.st.BucketStartsCovered(store.TierDaily, 0, cutoff-1)
	if err != nil {
		return 0, err
	}
	for day := range days {
		if !aggregatedDays[day] {
			obslog.Warn("retention: day %d not yet aggregated, deferring hourly prune", day)
			return 0, nil
		}
	}

	deleted, err := r.st.DeleteAggregatesBefore(store.TierHourly, cutoff)
	if err != nil {
		return 0, err
	}
	if err := r.st.AppendRetentionLog("prune-hourly", now, deleted, fmt.Sprintf("cutoff=%d", cutoff)); err != nil {
		obslog.Warn("retention: failed to write retention log: %v", err)
	}
	return deleted, nil
}

func (r *Retention) pruneBrowserRaw(now int64, rawTTLDays int) (int64, error) {
	cutoff := now - int64(rawTTLDays)*daySeconds

	covered, err := r.st.BrowserHoursCovered(0, cutoff-1)
	if err != nil {
		return 0, err
	}
	if len(covered) == 0 {
		return 0, nil
	}
	aggregated, err := r.st.BrowserBucketStartsCovered(store.TierHourly, 0, cutoff-1)
	if err != nil {
		return 0, err
	}
	for _, hourStart := range covered {
		if !aggregated[hourStart] {
			obslog.Warn("retention: browser hour %d not yet aggregated, deferring browser sample prune", hourStart)
			return 0, nil
		}
	}

	deleted, err := r.st.DeleteBrowserSamplesBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if err := r.st.AppendRetentionLog("prune-browser-raw", now, deleted, fmt.Sprintf("cutoff=%d", cutoff)); err != nil {
		obslog.Warn("retention: failed to write retention log: %v", err)
	}
	return deleted, nil
}

func (r *Retention) pruneBrowserHourly(now int64, hourTTLDays int) (int64, error) {
	cutoff := now - int64(hourTTLDays)*daySeconds

	covered, err := r.st.BrowserBucketStartsCovered(store.TierHourly, 0, cutoff-1)
	if err != nil {
		return 0, err
	}
	if len(covered) == 0 {
		return 0, nil
	}
	aggregatedDays, err := r.st.BrowserBucketStartsCovered(store.TierDaily, 0, cutoff-1)
	if err != nil {
		return 0, err
	}
	for hourStart := range covered {
		if !aggregatedDays[(hourStart/daySeconds)*daySeconds] {
			obslog.Warn("retention: browser day %d not yet aggregated, deferring browser hourly prune", (hourStart/daySeconds)*daySeconds)
			return 0, nil
		}
	}

	deleted, err := r.st.DeleteBrowserAggregatesBefore(store.TierHourly, cutoff)
	if err != nil {
		return 0, err
	}
	if err := r.st.AppendRetentionLog("prune-browser-hourly", now, deleted, fmt.Sprintf("cutoff=%d", cutoff)); err != nil {
		obslog.Warn("retention: failed to write retention log: %v", err)
	}
	return deleted, nil
}
