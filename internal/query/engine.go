// Package query implements the read-only QueryEngine (spec.md component
// C10): summary totals, bucketed timelines, bandwidth, and per-entity
// drilldowns over Store data, with tier selection driven by the
// requested window versus the configured retention TTLs.
package query

import (
	"sync"

	"netwatch/internal/clock"
	"netwatch/internal/store"
)

// Engine is the QueryEngine. Every call is a read against st, tiered by
// rawTTL/hourTTL; the policy knobs are the only mutable state, updated on
// config.reload via SetPolicy.
type Engine struct {
	st  *store.Store
	clk clock.Clock

	mu                      sync.RWMutex
	samplingIntervalSeconds int64
	rawTTLDays              int
	hourTTLDays             int
}

// New constructs an Engine. samplingIntervalSeconds, rawTTLDays, and
// hourTTLDays mirror the live config values (spec.md §6).
func New(st *store.Store, clk clock.Clock, samplingIntervalSeconds int64, rawTTLDays, hourTTLDays int) *Engine {
	return &Engine{
		st:                      st,
		clk:                     clk,
		samplingIntervalSeconds: samplingIntervalSeconds,
		rawTTLDays:              rawTTLDays,
		hourTTLDays:             hourTTLDays,
	}
}

// SetPolicy applies a config.reload to the engine's tier-selection knobs.
func (e *Engine) SetPolicy(samplingIntervalSeconds int64, rawTTLDays, hourTTLDays int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samplingIntervalSeconds = samplingIntervalSeconds
	e.rawTTLDays = rawTTLDays
	e.hourTTLDays = hourTTLDays
}

func (e *Engine) samplingInterval() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.samplingIntervalSeconds
}

func (e *Engine) ttlSeconds() (rawTTL, hourTTL int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return int64(e.rawTTLDays) * 86400, int64(e.hourTTLDays) * 86400
}
