package rtsync

import "github.com/tinyrt/tinyrt/rt"

// Semaphore is a counting semaphore whose Acquire future registers a waker
// when starved, grounded on channel/semaphore.rs's Semaphore/Acquire/Waiter
// trio — reimplemented with a plain FIFO waiter slice in place of the
// original's intrusive Waiter linked list, since Go's GC removes the need
// to manage waiter node lifetime by hand.
//
// rtnet uses one of these to bound the number of concurrent in-flight
// socket operations a connection will allow.
type Semaphore struct {
	permits int
	waiters []rt.Waker
}

// NewSemaphore constructs a semaphore with the given initial permit count.
func NewSemaphore(permits int) *Semaphore {
	return &Semaphore{permits: permits}
}

// TryAcquire takes one permit without blocking, reporting whether one was
// available.
func (s *Semaphore) TryAcquire() bool {
	if s.permits == 0 {
		return false
	}
	s.permits--
	return true
}

// Release returns one permit, waking the longest-waiting Acquire future if
// any are parked.
func (s *Semaphore) Release() {
	s.permits++
	if len(s.waiters) > 0 {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		w.WakeByRef()
	}
}

// Acquire returns a Future that resolves once a permit has been taken.
func (s *Semaphore) Acquire() rt.Future[struct{}] {
	return &acquireFuture{sem: s}
}

type acquireFuture struct{ sem *Semaphore }

func (f *acquireFuture) Poll(cx *rt.PollContext) (struct{}, bool) {
	if f.sem.TryAcquire() {
		return struct{}{}, true
	}
	f.sem.waiters = append(f.sem.waiters, cx.Waker().Clone())
	return struct{}{}, false
}
