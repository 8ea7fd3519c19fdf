package rt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnterExitLifecycle(t *testing.T) {
	rt := &Runtime{}
	guard, err := Enter(&Handle{rt: rt})
	require.NoError(t, err)
	require.Same(t, rt, Current().Runtime())

	guard.Exit()
	require.Nil(t, Current())

	// Exit is idempotent: a second call must not clear a slot it no longer
	// owns.
	guard.Exit()
	require.Nil(t, Current())
}

func TestEnterWhileActiveFailsWithReentrantEnter(t *testing.T) {
	guard, err := Enter(&Handle{rt: &Runtime{}})
	require.NoError(t, err)
	defer guard.Exit()

	_, err = Enter(&Handle{rt: &Runtime{}})
	require.True(t, errors.Is(err, ErrReentrantEnter))
}

func TestSpawnCurrentOutsideContextPanics(t *testing.T) {
	pool := NewPool[int]("p", 1)
	permit, err := pool.Acquire()
	require.NoError(t, err)
	require.Panics(t, func() {
		SpawnCurrent(permit, constFuture(1))
	})
}

func TestSpawnCurrentInsideContextSchedulesOntoTheActiveRuntime(t *testing.T) {
	rt := &Runtime{}
	guard, err := Enter(&Handle{rt: rt})
	require.NoError(t, err)
	defer guard.Exit()

	pool := NewPool[int]("p", 1)
	permit, err := pool.Acquire()
	require.NoError(t, err)
	h := SpawnCurrent(permit, constFuture(5))
	require.False(t, rt.ready.isEmpty())
	require.Equal(t, h.ID(), rt.ready.head.id)
}
