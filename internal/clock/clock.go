// Package clock wraps clockwork.Clock so every ticking task in netwatch can
// be driven by a fake clock in tests instead of real wall time.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the injectable monotonic wall-clock source (spec C1). It is a
// thin re-export of clockwork.Clock so callers never import clockwork
// directly outside this package.
type Clock = clockwork.Clock

// FakeClock is the test double, advanced explicitly by callers.
type FakeClock = clockwork.FakeClock

// New returns the real, wall-clock-backed implementation.
func New() Clock {
	return clockwork.NewRealClock()
}

// NewFake returns a deterministic clock pinned to the Unix epoch (rather
// than clockwork's own default fake start time) so tests can use small,
// readable absolute timestamps and advance them with Advance.
func NewFake() FakeClock {
	return clockwork.NewFakeClockAt(time.Unix(0, 0).UTC())
}
