package query

// Bandwidth implements stats.bandwidth (spec.md §4.9, scenario E): a rate
// computed from only the latest two raw ticks in the last 2*T second
// window, never an average over more than two. With fewer than two
// ticks present it returns 0, not an error (invariant #9).
func (e *Engine) Bandwidth() (Bandwidth, error) {
	now := e.clk.Now().Unix()
	interval := e.samplingInterval()
	window := 2 * interval

	ticks, err := e.st.RawBytesByTick(now-window, now)
	if err != nil {
		return Bandwidth{}, err
	}
	if len(ticks) < 2 {
		return Bandwidth{BytesPerSecond: 0, WindowSeconds: interval}, nil
	}

	last := ticks[len(ticks)-1]
	prev := ticks[len(ticks)-2]
	span := last.Ts - prev.Ts
	if span <= 0 {
		return Bandwidth{BytesPerSecond: 0, WindowSeconds: interval}, nil
	}

	rate := float64(last.BytesOut+last.BytesIn) / float64(span)
	return Bandwidth{BytesPerSecond: rate, WindowSeconds: span}, nil
}
