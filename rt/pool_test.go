package rt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func constFuture[T any](v T) Future[T] {
	return FuncFuture[T](func(cx *PollContext) (T, bool) { return v, true })
}

func TestPoolAcquireExhaustionAndRecycle(t *testing.T) {
	rt := &Runtime{}
	pool := NewPool[int]("work", 2)

	p1, err := pool.Acquire()
	require.NoError(t, err)
	p2, err := pool.Acquire()
	require.NoError(t, err)

	_, err = pool.Acquire()
	require.True(t, errors.Is(err, ErrQueueFull))

	h1 := Spawn(rt, p1, constFuture(1))
	h2 := Spawn(rt, p2, constFuture(2))
	require.Equal(t, 2, pool.InUse())

	// Drain both tasks to Finished, then consume their output: only then
	// does a slot return to Stopped and become acquirable again.
	gen := rt.ready.prepare()
	for {
		task := rt.ready.popFront(gen)
		if task == nil {
			break
		}
		task.vtable.poll()
	}

	cx := &PollContext{waker: noopWaker()}
	v1, ready := h1.Poll(cx)
	require.True(t, ready)
	require.Equal(t, 1, v1)
	v2, ready := h2.Poll(cx)
	require.True(t, ready)
	require.Equal(t, 2, v2)

	require.Equal(t, 0, pool.InUse(), "slots free once output has been consumed")

	p3, err := pool.Acquire()
	require.NoError(t, err)
	h3 := Spawn(rt, p3, constFuture(3))
	require.NotNil(t, h3)
}

func TestPoolAcquireDoesNotItselfMarkASlotUsed(t *testing.T) {
	pool := NewPool[int]("p", 1)
	permit, err := pool.Acquire()
	require.NoError(t, err)
	require.NotNil(t, permit)
	require.Equal(t, 0, pool.InUse(), "Acquire alone must not occupy the slot")
}

func TestPoolZeroOrNegativeSizeDefaultsToOne(t *testing.T) {
	require.Equal(t, 1, NewPool[int]("p", 0).Cap())
	require.Equal(t, 1, NewPool[int]("p", -5).Cap())
}
