package rt

// Future is the poll-based suspension contract every task body is built
// from: a state machine that advances up to its next suspension point each
// time Poll is called, and reports whether it has a value ready.
//
// Any Future built above the primitives in this package must, before
// returning false (Pending), have either registered a clone of the waker
// from PollContext where a producer will call WakeByRef, or invoked
// scheduleTimer with a deadline. Violating this invariant hangs the task —
// there is no timeout or liveness enforcement beneath this contract.
type Future[T any] interface {
	Poll(cx *PollContext) (T, bool)
}

// FuncFuture adapts a single poll function to the Future interface, for the
// common case of a task body with no internal suspension state of its own
// (e.g. one that only ever awaits a single child future).
type FuncFuture[T any] func(cx *PollContext) (T, bool)

// Poll implements Future.
func (f FuncFuture[T]) Poll(cx *PollContext) (T, bool) { return f(cx) }

// PollContext is passed to every Future.Poll call. It carries the waker the
// future must register if it suspends.
type PollContext struct {
	waker Waker
}

// Waker returns the waker bound to the task currently being polled. Clone it
// before storing it anywhere that outlives this Poll call.
func (c *PollContext) Waker() Waker {
	return c.waker
}
