package rt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyrt/tinyrt/clock"
)

func TestTimerQueuePushBackTracksEarliestDeadline(t *testing.T) {
	var q timerQueue
	a, b, c := newTestCore(nil), newTestCore(nil), newTestCore(nil)

	q.pushBack(a, clock.Instant{}.Add(clock.FromMillis(30)))
	q.pushBack(b, clock.Instant{}.Add(clock.FromMillis(10)))
	q.pushBack(c, clock.Instant{}.Add(clock.FromMillis(20)))

	d, ok := q.deadline()
	require.True(t, ok)
	require.Equal(t, clock.Instant{}.Add(clock.FromMillis(10)), d)
}

func TestTimerQueuePushBackOnAlreadyParkedTaskUpdatesExpiryInPlace(t *testing.T) {
	var q timerQueue
	a := newTestCore(nil)

	q.pushBack(a, clock.Instant{}.Add(clock.FromMillis(50)))
	head := q.head
	q.pushBack(a, clock.Instant{}.Add(clock.FromMillis(5)))

	// still one member, not re-linked as a second entry
	require.Same(t, head, q.head)
	require.Same(t, q.head, q.tail)
	require.Equal(t, clock.Instant{}.Add(clock.FromMillis(5)), *a.expiry)
}

func TestTimerQueueUnlinkHeadMiddleTail(t *testing.T) {
	var q timerQueue
	a, b, c := newTestCore(nil), newTestCore(nil), newTestCore(nil)
	now := clock.Instant{}
	q.pushBack(a, now.Add(clock.FromMillis(1)))
	q.pushBack(b, now.Add(clock.FromMillis(2)))
	q.pushBack(c, now.Add(clock.FromMillis(3)))

	// middle
	q.unlink(b)
	require.Same(t, a, q.head)
	require.Same(t, c, q.tail)
	require.Same(t, c, a.timerNext)
	require.Same(t, a, c.timerPrev)
	require.Nil(t, b.expiry)

	// head
	q.unlink(a)
	require.Same(t, c, q.head)
	require.Same(t, c, q.tail)
	require.Nil(t, c.timerPrev)

	// tail (now the only remaining member)
	q.unlink(c)
	require.Nil(t, q.head)
	require.Nil(t, q.tail)
}

func TestTimerQueueProcessSchedulesExpiredAndRecomputesDeadline(t *testing.T) {
	var q timerQueue
	rt := &Runtime{}
	now := clock.Instant{}
	expired := newTestCore(rt)
	later := newTestCore(rt)

	q.pushBack(expired, now.Add(clock.FromMillis(1)))
	q.pushBack(later, now.Add(clock.FromMillis(100)))

	q.process(now.Add(clock.FromMillis(5)), rt)

	require.True(t, expired.state&stateScheduled != 0)
	require.Nil(t, expired.expiry, "expired task must be unlinked from the timer queue")
	require.False(t, later.state&stateScheduled != 0)

	d, ok := q.deadline()
	require.True(t, ok)
	require.Equal(t, now.Add(clock.FromMillis(100)), d)
}

func TestTimerQueueProcessDrainsTiesInListOrder(t *testing.T) {
	var q timerQueue
	rt := &Runtime{}
	now := clock.Instant{}
	a, b := newTestCore(rt), newTestCore(rt)
	q.pushBack(a, now)
	q.pushBack(b, now)

	q.process(now, rt)

	require.Same(t, a, rt.ready.head)
	require.Same(t, b, rt.ready.head.readyNext)
}
