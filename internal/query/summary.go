package query

// SummaryRequest mirrors stats.summary's optional window override. When
// both fields are nil the primary window defaults to "today" (UTC
// midnight to now), matching spec.md §4.9's day-boundary anchoring.
type SummaryRequest struct {
	Since *int64
	Until *int64
}

// Summary runs stats.summary as a single read transaction (spec.md §4.9:
// "partial results are forbidden"): totals for the requested/today window
// plus the trailing week and month windows, and the top app and domain
// within the primary window.
func (e *Engine) Summary(req SummaryRequest) (Summary, error) {
	now := e.clk.Now().Unix()

	var from, to int64
	if req.Since != nil && req.Until != nil {
		from, to = *req.Since, *req.Until
	} else {
		from, to = startOfUTCDay(now), now
	}
	weekFrom := startOfUTCDay(now) - 6*86400
	monthFrom := startOfUTCDay(now) - 29*86400

	raw, err := e.st.Summarize(from, weekFrom, monthFrom, to)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		TotalBytesOut: raw.Window.BytesOut,
		TotalBytesIn:  raw.Window.BytesIn,
		WeekBytesOut:  raw.Week.BytesOut,
		WeekBytesIn:   raw.Week.BytesIn,
		MonthBytesOut: raw.Month.BytesOut,
		MonthBytesIn:  raw.Month.BytesIn,
	}
	if raw.HasTopApp {
		out.HasTopApp = true
		out.TopAppID = raw.TopAppID
		out.TopAppName = raw.TopAppName
	}
	if raw.HasTopDomain {
		out.HasTopDomain = true
		out.TopDomainID = raw.TopDomainID
		out.TopDomainFQDN = raw.TopDomainFQDN
	}
	return out, nil
}

// startOfUTCDay floors a unix timestamp to the start of its UTC day.
func startOfUTCDay(ts int64) int64 {
	const day = 86400
	return (ts / day) * day
}
