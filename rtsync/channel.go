// Package rtsync provides the channel and semaphore primitives spec.md
// names as out-of-core consumers of the waker contract: built atop rt.Waker
// registration, not atop any new scheduling primitive of their own.
//
// Grounded on the distilled project's own bounded mpsc channel
// (channel/mpsc/bounded.rs, channel/channel.rs): a fixed-capacity ring
// buffer guarded by a semaphore-style waiter list rather than a heap-backed
// deque, reimplemented here as a direct consumer of rt.Waker instead of the
// original's RefCell<Inner>+heapless::Deque pairing — there is no RefCell
// in Go because only the single executor goroutine ever touches a channel.
package rtsync

import "github.com/tinyrt/tinyrt/rt"

// Channel is a fixed-capacity, multi-producer single-consumer queue. All of
// its operations assume the single-threaded cooperative model rt.Runtime
// provides: every Send/Recv future is polled from the one executor
// goroutine, so the channel needs no internal locking — only waker
// bookkeeping for the producers and consumer that are currently parked.
type Channel[T any] struct {
	buf         []T
	head, count int
	closed      bool
	rxWaker     *rt.Waker
	sendWaiters []rt.Waker
}

// NewChannel constructs a channel with the given fixed capacity (the Go
// substitute for the original's const-generic N).
func NewChannel[T any](capacity int) *Channel[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Channel[T]{buf: make([]T, capacity)}
}

// Sender is a handle to a channel's send half. Multiple senders may share
// one channel (mpsc); Sender carries no state of its own beyond the
// pointer, matching the original's reference-only Sender<'ch, T, N>.
type Sender[T any] struct{ ch *Channel[T] }

// Receiver is a handle to a channel's single receive half.
type Receiver[T any] struct{ ch *Channel[T] }

// Split returns a Sender and Receiver over ch, mirroring the original
// mpsc::bounded::split free function.
func Split[T any](ch *Channel[T]) (Sender[T], Receiver[T]) {
	return Sender[T]{ch}, Receiver[T]{ch}
}

// Close marks the channel closed: pending and future sends fail with
// ErrClosed, and the receiver observes remaining buffered values before
// seeing closure.
func (c *Channel[T]) Close() {
	c.closed = true
	if c.rxWaker != nil {
		w := *c.rxWaker
		c.rxWaker = nil
		w.WakeByRef()
	}
	for _, w := range c.sendWaiters {
		w.WakeByRef()
	}
	c.sendWaiters = c.sendWaiters[:0]
}

func (c *Channel[T]) tryPush(v T) bool {
	if c.count == len(c.buf) {
		return false
	}
	c.buf[(c.head+c.count)%len(c.buf)] = v
	c.count++
	return true
}

func (c *Channel[T]) tryPop() (T, bool) {
	var zero T
	if c.count == 0 {
		return zero, false
	}
	v := c.buf[c.head]
	c.buf[c.head] = zero
	c.head = (c.head + 1) % len(c.buf)
	c.count--
	return v, true
}

// Send returns a Future that completes once v has been pushed onto the
// channel (or fails if the channel is closed). It registers as a send
// waiter when the buffer is full, exactly the "consumer of the waker
// contract" role spec.md assigns to channels.
func (s Sender[T]) Send(v T) rt.Future[error] {
	return &sendFuture[T]{ch: s.ch, val: v}
}

type sendFuture[T any] struct {
	ch  *Channel[T]
	val T
}

func (f *sendFuture[T]) Poll(cx *rt.PollContext) (error, bool) {
	if f.ch.closed {
		return ErrClosed, true
	}
	if !f.ch.tryPush(f.val) {
		f.ch.sendWaiters = append(f.ch.sendWaiters, cx.Waker().Clone())
		return nil, false
	}
	if f.ch.rxWaker != nil {
		w := *f.ch.rxWaker
		f.ch.rxWaker = nil
		w.WakeByRef()
	}
	return nil, true
}

// Recv returns a Future that completes with the next value, or ok=false if
// the channel is closed and drained.
func (r Receiver[T]) Recv() rt.Future[RecvResult[T]] {
	return &recvFuture[T]{ch: r.ch}
}

// RecvResult carries a received value plus whether one was received: Ok is
// false only when the channel is closed and drained (Go has no sum-type
// return for "value or closed", so this is the idiomatic substitute).
type RecvResult[T any] struct {
	Value T
	Ok    bool
}

type recvFuture[T any] struct{ ch *Channel[T] }

func (f *recvFuture[T]) Poll(cx *rt.PollContext) (RecvResult[T], bool) {
	if v, ok := f.ch.tryPop(); ok {
		f.wakeOneSender()
		return RecvResult[T]{Value: v, Ok: true}, true
	}
	if f.ch.closed {
		return RecvResult[T]{}, true
	}
	w := cx.Waker().Clone()
	f.ch.rxWaker = &w
	return RecvResult[T]{}, false
}

func (f *recvFuture[T]) wakeOneSender() {
	if len(f.ch.sendWaiters) == 0 {
		return
	}
	w := f.ch.sendWaiters[0]
	f.ch.sendWaiters = f.ch.sendWaiters[1:]
	w.WakeByRef()
}
