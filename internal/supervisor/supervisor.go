// Package supervisor coordinates netwatch's long-lived background
// tasks (spec.md §5 component C-none/"Supervisor": "startup/shutdown,
// owns no writes") through a single context, and tracks the degraded-mode
// flag repeated invariant failures trip (spec.md §7).
package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"netwatch/internal/aggregate"
	"netwatch/internal/apperr"
	"netwatch/internal/clock"
	"netwatch/internal/obslog"
	"netwatch/internal/retention"
	"netwatch/internal/sampler"
	"netwatch/internal/store"
)

// shutdownDeadline bounds how long Run waits for tasks to finish once ctx
// is cancelled before giving up and returning anyway (spec.md §5:
// "on timeout it closes the store regardless").
const shutdownDeadline = 5 * time.Second

// aggregateRetentionPeriod is the AggregateRetention task's tick period
// (spec.md §5 table).
const aggregateRetentionPeriod = 5 * time.Minute

// degradedThreshold is the number of consecutive invariant failures in a
// single task before Degraded() reports true.
const degradedThreshold = 3

// Policy bundles the live, reloadable knobs the background tasks read
// each tick.
type Policy struct {
	SamplingIntervalSeconds int64
	RawTTLDays              int
	HourTTLDays             int
}

// Supervisor owns no store writes itself; it starts and stops the
// Sampler+DeltaEngine and AggregateRetention tasks (spec.md §5) and
// exposes the degraded-mode flag over Degraded().
type Supervisor struct {
	st    *store.Store
	clk   clock.Clock
	delta *sampler.DeltaEngine
	agg   *aggregate.Aggregator
	ret   *retention.Retention

	policyMu sync.RWMutex
	policy   Policy

	consecutiveSamplerFailures   atomic.Int32
	consecutiveRetentionFailures atomic.Int32
	degradedReason               atomic.Value // string
}

// New constructs a Supervisor around the already-built component
// instances.
func New(st *store.Store, clk clock.Clock, delta *sampler.DeltaEngine, agg *aggregate.Aggregator, ret *retention.Retention, policy Policy) *Supervisor {
	s := &Supervisor{st: st, clk: clk, delta: delta, agg: agg, ret: ret, policy: policy}
	s.degradedReason.Store("")
	return s
}

// UpdatePolicy applies a config.reload: TTL changes take effect on the
// next retention tick, sampling interval on the next sampler tick
// (spec.md §6).
func (s *Supervisor) UpdatePolicy(p Policy) {
	s.policyMu.Lock()
	defer s.policyMu.Unlock()
	s.policy = p
}

func (s *Supervisor) currentPolicy() Policy {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	return s.policy
}

// Degraded implements httpapi.Health.
func (s *Supervisor) Degraded() (bool, string) {
	if s.consecutiveSamplerFailures.Load() >= degradedThreshold || s.consecutiveRetentionFailures.Load() >= degradedThreshold {
		return true, s.degradedReason.Load().(string)
	}
	return false, ""
}

// Run starts both periodic tasks and blocks until ctx is cancelled, then
// waits up to shutdownDeadline for them to finish their current unit of
// work before returning regardless (spec.md §5's bounded shutdown).
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.runSamplerLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runAggregateRetentionLoop(ctx)
	}()

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownDeadline):
		obslog.Warn("supervisor: shutdown deadline exceeded, returning without waiting for tasks")
	}
}

func (s *Supervisor) runSamplerLoop(ctx context.Context) {
	for {
		interval := time.Duration(s.currentPolicy().SamplingIntervalSeconds) * time.Second
		timer := s.clk.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		if ctx.Err() != nil {
			return
		}

		now := s.clk.Now().Unix()
		// Process enumeration is bounded (spec.md §5); a tick that hits
		// the deadline is skipped with a warning inside Tick, not retried.
		tickCtx, cancel := context.WithTimeout(ctx, sampler.DefaultTimeout)
		err := s.delta.Tick(tickCtx, now)
		cancel()
		if err != nil {
			s.handleSamplerError(err)
		} else {
			s.consecutiveSamplerFailures.Store(0)
		}
	}
}

func (s *Supervisor) handleSamplerError(err error) {
	switch apperr.KindOf(err) {
	case apperr.KindInvariant:
		n := s.consecutiveSamplerFailures.Add(1)
		obslog.Error("sampler: invariant violation (%d consecutive): %v", n, err)
		s.degradedReason.Store("sampler invariant failures")
	default:
		obslog.Warn("sampler: tick failed, will retry next interval: %v", err)
	}
}

func (s *Supervisor) runAggregateRetentionLoop(ctx context.Context) {
	ticker := s.clk.NewTicker(aggregateRetentionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		if ctx.Err() != nil {
			return
		}

		// Aggregate-first-then-prune is a hard invariant (spec.md §5):
		// Retention must never delete raw rows whose hour has not yet
		// been aggregated.
		if _, _, err := s.agg.Run(); err != nil {
			obslog.Warn("aggregator: run failed, will retry next tick: %v", err)
			continue
		}

		p := s.currentPolicy()
		if _, _, err := s.ret.Run(retention.Policy{RawTTLDays: p.RawTTLDays, HourTTLDays: p.HourTTLDays}); err != nil {
			if apperr.KindOf(err) == apperr.KindInvariant {
				n := s.consecutiveRetentionFailures.Add(1)
				obslog.Error("retention: invariant violation (%d consecutive): %v", n, err)
				s.degradedReason.Store("retention invariant failures")
			} else {
				obslog.Warn("retention: run failed, will retry next tick: %v", err)
			}
			continue
		}
		s.consecutiveRetentionFailures.Store(0)
	}
}
