package rt

import "github.com/tinyrt/tinyrt/clock"

// taskState is the SCHEDULED/RUNNING/COMPLETE/JOIN_HANDLE_LIVE/
// JOIN_WAKER_REGISTERED bitset from the task record's state bits.
type taskState uint8

const (
	stateScheduled taskState = 1 << iota
	stateRunning
	stateComplete
	stateJoinHandleLive
	stateJoinWakerRegistered
)

// taskStatus is the tagged-variant {Stopped, Running, Finished, Consumed}
// status. The payload each non-Stopped variant carries (the future, the
// output) lives on the generic Task[T] wrapper, not here — taskCore only
// ever needs the tag, since every operation that needs the payload already
// holds a concretely-typed *Task[T].
type taskStatus uint8

const (
	statusStopped taskStatus = iota
	statusRunning
	statusFinished
	statusConsumed
)

// taskVTable is the static, five-operation function table spec.md assigns
// to every task record, translating the untyped poll/wake protocol into
// ready-queue/timer-queue operations on the concrete task behind it. Each
// closure is bound at spawn time (Spawn), to the specific
// *Task[T] it belongs to — the Go substitute for indirecting through a
// `*const ()` data pointer plus a global function table.
type taskVTable struct {
	poll           func()
	schedule       func()
	scheduleTimer  func(deadline clock.Instant)
	getOutput      func() (output any, ok bool)
	dropJoinHandle func()
}

// taskCore is the non-generic portion of a task record: identity, state,
// status tag, queue memberships, and the vtable. It is embedded by value in
// every Task[T], giving the "intrusive, never moved, no heap allocation"
// property the static pool relies on.
type taskCore struct {
	id     uint64
	state  taskState
	status taskStatus

	expiry *clock.Instant // non-nil iff a member of the timer queue

	joinWaker *Waker

	// ready queue intrusive link (singly-linked, FIFO)
	readyNext *taskCore
	readyGen  uint8

	// timer queue intrusive links (doubly-linked, supports O(1) mid-list removal)
	timerPrev *taskCore
	timerNext *taskCore

	rt     *Runtime
	vtable taskVTable
}

// Task is the generic task record: a taskCore plus the concretely-typed
// future and completion output the core's vtable closures close over.
// Task[T] values live inside a Pool[T]'s backing array and are never moved
// or individually heap-allocated once the pool is constructed.
type Task[T any] struct {
	core   taskCore
	future Future[T]
	output T
}

// ID returns the task's monotonic identifier, assigned at spawn.
func (t *Task[T]) ID() uint64 { return t.core.id }

// bindVTable wires the five vtable closures to this task. Called from Spawn,
// each time the slot is spawned into, after the future has been installed.
func (t *Task[T]) bindVTable() {
	core := &t.core
	core.vtable = taskVTable{
		poll: func() { t.poll() },
		schedule: func() {
			core.rt.ready.schedule(core)
		},
		scheduleTimer: func(deadline clock.Instant) {
			core.rt.timers.pushBack(core, deadline)
		},
		getOutput: func() (any, bool) {
			if core.status != statusFinished {
				return nil, false
			}
			core.status = statusConsumed
			return t.output, true
		},
		dropJoinHandle: func() {
			core.state &^= stateJoinHandleLive
			if core.status == statusFinished {
				// No consumer will ever read this output now: discard it
				// so the slot can still be recycled to Stopped.
				core.status = statusConsumed
			}
		},
	}
}

// recycle returns a Consumed slot to Stopped: drop the future and output so
// their referents can be collected, and clear every state bit. Queue links
// are re-initialized at the next Spawn; a consumed task is a member of
// neither queue.
func (t *Task[T]) recycle() {
	var zero T
	t.future = nil
	t.output = zero
	core := &t.core
	core.status = statusStopped
	core.state = 0
	core.joinWaker = nil
}

// poll is vtable operation 1: construct a waker over this task, transition
// to RUNNING, poll the stored future, and on readiness store the output,
// mark COMPLETE, and wake or recycle depending on whether a live, waiting
// join handle exists.
func (t *Task[T]) poll() {
	core := &t.core
	if core.status != statusRunning {
		// A stale wake re-queued this task after it completed (the future
		// invoked its own waker on the same poll it returned ready from);
		// a completed task is never re-polled.
		return
	}
	core.rt.logRunning(core.id)

	core.state |= stateRunning
	cx := &PollContext{waker: Waker{core: core}}
	out, ready := t.future.Poll(cx)
	core.state &^= stateRunning

	if !ready {
		core.rt.logIdle(core.id)
		return
	}

	t.output = out
	if core.expiry != nil {
		// Completed while still parked on the timer queue (the future
		// raced a sleep against another wake source): unlink now so the
		// timer queue never schedules, or dangles a link into, a slot
		// that may be recycled before the expiry arrives.
		core.rt.timers.unlink(core)
	}
	core.state |= stateComplete
	core.status = statusFinished
	core.rt.logComplete(core.id)

	if core.state&stateJoinHandleLive != 0 {
		if core.joinWaker != nil {
			jw := core.joinWaker
			core.joinWaker = nil
			core.state &^= stateJoinWakerRegistered
			jw.WakeByRef()
		}
		// else: the handle is live but hasn't polled yet — leave status
		// Finished so its first Poll can still retrieve the output.
	} else {
		// No live consumer is waiting (or ever will): per the boundary
		// behavior in the testable-properties section, the task is
		// Consumed immediately rather than waiting to be read.
		core.status = statusConsumed
	}
}
