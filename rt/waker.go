package rt

import "github.com/tinyrt/tinyrt/clock"

// Waker is the standard poll-protocol handle a suspended Future stores so a
// producer can re-schedule the owning task later. Its data word is a
// non-owning reference to a statically allocated task record (taskCore);
// Clone and Drop are no-ops because tasks are never heap-allocated or
// refcounted — there is nothing for clone/drop to manage.
//
// A nil-core Waker (the "no-op waker" block_on polls the root future with)
// is valid and silently discards Wake/WakeByRef — the root future's own
// completion is observed by block_on re-polling it every iteration, not by
// this waker firing.
type Waker struct {
	core *taskCore
}

// Clone returns a waker with identical data. Because the data word is a
// bare pointer to a statically allocated record, this is a value copy, not
// an allocation.
func (w Waker) Clone() Waker { return w }

// Wake consumes the waker, re-scheduling its task. In Go there is no
// ownership to consume, so Wake and WakeByRef are identical; Wake exists to
// mirror the two-method waker protocol consumers are written against.
func (w Waker) Wake() { w.WakeByRef() }

// WakeByRef transitions the owning task to SCHEDULED and pushes it onto the
// owning runtime's ready queue, without consuming the waker. It is a no-op
// on an already-scheduled task beyond re-asserting the bit, and a no-op on
// the sentinel no-op waker.
func (w Waker) WakeByRef() {
	if w.core == nil {
		return
	}
	w.core.rt.ready.schedule(w.core)
}

// Drop is a no-op; provided so callers translating the original waker
// vtable contract literally have somewhere to put the call.
func (w Waker) Drop() {}

// scheduleTimer is invoked only by Sleep, which introspects the waker to
// recover the task pointer and drives the timer queue directly rather than
// going through the wake path.
func (w Waker) scheduleTimer(deadline clock.Instant) {
	if w.core == nil {
		panic("rt: Sleep polled with the block_on no-op waker; sleeping requires a spawned task")
	}
	w.core.rt.timers.pushBack(w.core, deadline)
}

func noopWaker() Waker { return Waker{} }
