package query

import "netwatch/internal/apperr"

// periodSeconds and periodBuckets implement spec.md §4.9's enumerated
// timeline periods and their default bucket counts: 60 for ≤1h, 288 for
// ≤24h, 168 for ≤7d, 720 for ≤30d, 720 for ≤90d.
var periodSeconds = map[string]int64{
	"1h":  3600,
	"24h": 86400,
	"7d":  7 * 86400,
	"30d": 30 * 86400,
	"90d": 90 * 86400,
}

var periodBuckets = map[string]int{
	"1h":  60,
	"24h": 288,
	"7d":  168,
	"30d": 720,
	"90d": 720,
}

// resolvePeriod validates period against the enumerated set and returns
// its window width in seconds and default bucket count.
func resolvePeriod(period string) (width int64, buckets int, err error) {
	w, ok := periodSeconds[period]
	if !ok {
		return 0, 0, apperr.Validationf("unknown period %q", period)
	}
	return w, periodBuckets[period], nil
}
