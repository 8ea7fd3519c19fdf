package rt

import "github.com/tinyrt/tinyrt/clock"

// Sleep is the only timeout primitive in this package: a dedicated future
// type (not a method grafted onto every future) that parks its task on the
// timer queue until a deadline, matching the distilled project's own
// factoring of sleep as a standalone Pollable rather than a generic
// wait-with-timeout combinator.
type Sleep struct {
	deadline clock.Instant
}

// NewSleep constructs a Sleep that becomes ready d after the instant it is
// first polled would otherwise be measured from — in practice, since the
// deadline is fixed at construction, d after NewSleep is called.
func NewSleep(d clock.Duration) *Sleep {
	return &Sleep{deadline: clock.Now().Add(d)}
}

// NewSleepUntil constructs a Sleep with an explicit deadline, for tests that
// need to control elapsed time precisely.
func NewSleepUntil(deadline clock.Instant) *Sleep {
	return &Sleep{deadline: deadline}
}

// Poll implements Future[struct{}]. On every poll it checks whether the
// deadline has arrived; if not, it introspects the waker to recover the
// task pointer and calls schedule_timer directly rather than storing a
// wake-by-ref callback, per the waker vtable's special-casing of sleep.
// A zero-tick (already-elapsed) deadline is ready on the very first poll,
// which happens as part of the same round the task was spawned or woken
// in — satisfying "a sleep for 0 ticks schedules the task on the same
// round" even more directly than a single trip through the timer queue
// would.
func (s *Sleep) Poll(cx *PollContext) (struct{}, bool) {
	now := clock.Now()
	if !now.Before(s.deadline) {
		return struct{}{}, true
	}
	cx.Waker().scheduleTimer(s.deadline)
	return struct{}{}, false
}
