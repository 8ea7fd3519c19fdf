package rt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyrt/tinyrt/clock"
)

func TestWakerCloneThenDropLeavesStateUnchanged(t *testing.T) {
	rt := &Runtime{}
	core := newTestCore(rt)
	w := Waker{core: core}

	before := core.state
	clone := w.Clone()
	clone.Drop()
	require.Equal(t, before, core.state)
}

func TestWakerWakeByRefSchedulesTask(t *testing.T) {
	rt := &Runtime{}
	core := newTestCore(rt)
	w := Waker{core: core}

	require.False(t, core.state&stateScheduled != 0)
	w.WakeByRef()
	require.True(t, core.state&stateScheduled != 0)
	require.Same(t, core, rt.ready.head)
}

func TestWakerWakeOnAlreadyScheduledTaskIsNoOp(t *testing.T) {
	rt := &Runtime{}
	core := newTestCore(rt)
	w := Waker{core: core}

	w.WakeByRef()
	firstNext := core.readyNext
	w.WakeByRef()
	require.Equal(t, firstNext, core.readyNext)
}

func TestWakerWakeOnCompletedTaskIsDropped(t *testing.T) {
	rt := &Runtime{}
	pool := NewPool[int]("p", 1)
	permit, err := pool.Acquire()
	require.NoError(t, err)
	h := Spawn(rt, permit, constFuture(9))
	require.NoError(t, h.Close())

	gen := rt.ready.prepare()
	task := rt.ready.popFront(gen)
	require.NotNil(t, task)
	task.vtable.poll()

	// A stale waker clone firing after completion must not re-queue the
	// task: the slot may be recycled before another round drains.
	Waker{core: task}.WakeByRef()
	require.True(t, rt.ready.isEmpty())
}

func TestNoopWakerWakeByRefIsSilentlyDiscarded(t *testing.T) {
	w := noopWaker()
	require.NotPanics(t, func() { w.WakeByRef() })
}

func TestWakerScheduleTimerOnNoopWakerPanics(t *testing.T) {
	w := noopWaker()
	require.Panics(t, func() { w.scheduleTimer(clock.Now()) })
}
