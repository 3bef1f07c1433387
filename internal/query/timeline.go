package query

import (
	"netwatch/internal/apperr"
	"netwatch/internal/store"
)

// TimelineRequest mirrors stats.timeline's parameters (spec.md §6). Either
// Period or both Since/Until must be set; Buckets overrides the period's
// default bucket count when positive.
type TimelineRequest struct {
	Period  string
	Since   *int64
	Until   *int64
	Buckets int
}

// Timeline resolves the requested window to [fromTs, toTs], picks the
// source tier by comparing the window width against the configured
// retention TTLs, and returns exactly N zero-padded TimelinePoints
// (spec.md §4.9, invariant #10).
func (e *Engine) Timeline(req TimelineRequest) ([]TimelinePoint, error) {
	fromTs, toTs, n, err := e.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	return e.timelineForApp(fromTs, toTs, n, nil)
}

// AppsTimeline is apps.timeline: identical windowing, restricted to one
// app's rows.
func (e *Engine) AppsTimeline(appID int64, period string) ([]TimelinePoint, error) {
	fromTs, toTs, n, err := e.resolveWindow(TimelineRequest{Period: period})
	if err != nil {
		return nil, err
	}
	return e.timelineForApp(fromTs, toTs, n, &appID)
}

// maxBuckets caps a caller-supplied bucket count (spec.md §4.9: "N is
// capped"); 720 is the largest default in the period table.
const maxBuckets = 720

func (e *Engine) resolveWindow(req TimelineRequest) (fromTs, toTs int64, buckets int, err error) {
	now := e.clk.Now().Unix()

	if req.Since != nil && req.Until != nil {
		fromTs, toTs = *req.Since, *req.Until
		if toTs <= fromTs {
			return 0, 0, 0, apperr.Validationf("until (%d) must be after since (%d)", toTs, fromTs)
		}
		buckets = req.Buckets
		if buckets <= 0 {
			buckets = 288
		}
		return fromTs, toTs, capBuckets(buckets), nil
	}

	width, defaultBuckets, perr := resolvePeriod(req.Period)
	if perr != nil {
		return 0, 0, 0, perr
	}
	buckets = req.Buckets
	if buckets <= 0 {
		buckets = defaultBuckets
	}
	toTs = now
	fromTs = now - width
	return fromTs, toTs, capBuckets(buckets), nil
}

func capBuckets(n int) int {
	if n > maxBuckets {
		return maxBuckets
	}
	return n
}

func (e *Engine) timelineForApp(fromTs, toTs int64, n int, appID *int64) ([]TimelinePoint, error) {
	width := ceilDiv(toTs-fromTs, int64(n))
	if width < 1 {
		width = 1
	}

	ticks, err := e.sourceTicks(fromTs, toTs, appID)
	if err != nil {
		return nil, err
	}

	points := make([]TimelinePoint, n)
	for i := range points {
		points[i].Ts = fromTs + int64(i)*width
	}
	for _, t := range ticks {
		idx := (t.Ts - fromTs) / width
		if idx < 0 || idx >= int64(n) {
			continue
		}
		points[idx].BytesOut += t.BytesOut
		points[idx].BytesIn += t.BytesIn
	}
	return points, nil
}

// sourceTicks picks raw/hourly/daily as the source tier by comparing the
// window width to the configured TTLs (spec.md §4.9), and returns its
// native-granularity points (one per raw ts, hour_start, or day_start)
// summed across apps, or restricted to appID when set.
func (e *Engine) sourceTicks(fromTs, toTs int64, appID *int64) ([]store.TickTotal, error) {
	width := toTs - fromTs
	rawTTL, hourTTL := e.ttlSeconds()

	switch {
	case width <= rawTTL:
		if appID != nil {
			samples, err := e.st.RawSamplesInRange(fromTs, toTs, appID)
			if err != nil {
				return nil, err
			}
			return rawSamplesToTicks(samples), nil
		}
		return e.st.RawBytesByTick(fromTs, toTs)

	case width <= hourTTL:
		if appID != nil {
			buckets, err := e.st.BucketsByApp(store.TierHourly, *appID, fromTs, toTs)
			return bucketsToTicks(buckets), err
		}
		buckets, err := e.st.BucketsInRange(store.TierHourly, fromTs, toTs)
		return bucketsToTicks(buckets), err

	default:
		if appID != nil {
			buckets, err := e.st.BucketsByApp(store.TierDaily, *appID, fromTs, toTs)
			return bucketsToTicks(buckets), err
		}
		buckets, err := e.st.BucketsInRange(store.TierDaily, fromTs, toTs)
		return bucketsToTicks(buckets), err
	}
}

func bucketsToTicks(buckets []store.Bucket) []store.TickTotal {
	out := make([]store.TickTotal, len(buckets))
	for i, b := range buckets {
		out[i] = store.TickTotal{Ts: b.BucketStart, BytesOut: b.SumBytesOut, BytesIn: b.SumBytesIn}
	}
	return out
}

func rawSamplesToTicks(samples []store.RawSample) []store.TickTotal {
	byTs := make(map[int64]*store.TickTotal)
	var order []int64
	for _, s := range samples {
		t, ok := byTs[s.Ts]
		if !ok {
			t = &store.TickTotal{Ts: s.Ts}
			byTs[s.Ts] = t
			order = append(order, s.Ts)
		}
		t.BytesOut += s.BytesOut
		t.BytesIn += s.BytesIn
	}
	out := make([]store.TickTotal, len(order))
	for i, ts := range order {
		out[i] = *byTs[ts]
	}
	return out
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
