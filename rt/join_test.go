package rt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinHandlePollRegistersWakerThenFiresOnCompletion(t *testing.T) {
	rt := &Runtime{}
	pool := NewPool[int]("answer", 1)
	permit, err := pool.Acquire()
	require.NoError(t, err)

	// A future that stays Pending until released is told to complete.
	release := false
	fut := FuncFuture[int](func(cx *PollContext) (int, bool) {
		if !release {
			return 0, false
		}
		return 42, true
	})
	h := Spawn(rt, permit, fut)

	awaiterCore := newTestCore(rt)

	cx := &PollContext{waker: Waker{core: awaiterCore}}
	_, ready := h.Poll(cx)
	require.False(t, ready, "task has not completed yet")
	require.True(t, h.task.core.state&stateJoinWakerRegistered != 0)

	// Drain the spawned task to completion.
	release = true
	gen := rt.ready.prepare()
	for {
		task := rt.ready.popFront(gen)
		if task == nil {
			break
		}
		task.vtable.poll()
	}

	require.True(t, awaiterCore.state&stateScheduled != 0, "join waker must fire on completion")

	out, ready := h.Poll(cx)
	require.True(t, ready)
	require.Equal(t, 42, out)
}

func TestJoinHandlePollAfterOutputConsumedHaltsWithBadStatus(t *testing.T) {
	rt := &Runtime{}
	pool := NewPool[int]("answer", 1)
	permit, err := pool.Acquire()
	require.NoError(t, err)
	h := Spawn(rt, permit, constFuture(7))

	gen := rt.ready.prepare()
	task := rt.ready.popFront(gen)
	require.NotNil(t, task)
	task.vtable.poll()

	cx := &PollContext{waker: noopWaker()}
	out, ready := h.Poll(cx)
	require.True(t, ready)
	require.Equal(t, 7, out)

	// The output was moved out on the poll above; observing Ready again is
	// the get_output-on-non-Finished programmer error.
	require.PanicsWithValue(t, ErrBadStatus, func() { h.Poll(cx) })
}

func TestJoinHandleCloseDetachesWithoutStoppingTheTask(t *testing.T) {
	rt := &Runtime{}
	pool := NewPool[int]("answer", 1)
	permit, _ := pool.Acquire()
	h := Spawn(rt, permit, constFuture(7))

	require.NoError(t, h.Close())
	require.False(t, h.task.core.state&stateJoinHandleLive != 0)

	gen := rt.ready.prepare()
	task := rt.ready.popFront(gen)
	require.NotNil(t, task)
	task.vtable.poll()

	// No live join handle: status goes straight to Consumed, not Finished.
	require.Equal(t, statusConsumed, h.task.core.status)
}
