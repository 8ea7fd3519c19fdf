package rt

// JoinHandle is the awaitable returned by Spawn: a Future that yields the
// spawned task's output once it completes. It satisfies Future[T] directly,
// so it can be awaited like any other future (including by another task's
// poll method), or driven to completion at the top level via BlockOn.
type JoinHandle[T any] struct {
	task *Task[T]
}

// Poll implements Future[T]. If the task is COMPLETE it retrieves the
// output via the vtable's get_output and returns Ready; otherwise it
// registers the current poll's waker as the task's join waker and returns
// Pending.
func (h *JoinHandle[T]) Poll(cx *PollContext) (T, bool) {
	core := &h.task.core
	if core.state&stateComplete != 0 {
		out, ok := core.vtable.getOutput()
		if !ok {
			core.rt.fatal(ErrBadStatus)
		}
		return out.(T), true
	}

	w := cx.Waker().Clone()
	core.joinWaker = &w
	core.state |= stateJoinWakerRegistered
	var zero T
	return zero, false
}

// Close detaches this handle from the task: it clears JOIN_HANDLE_LIVE via
// the vtable. The task is not cancelled and continues running to
// completion; it simply has no live consumer to wake, so on completion it
// transitions straight to Consumed. Go has no destructors, so callers that
// intend to discard a handle without ever awaiting it should call Close
// explicitly. An un-awaited, un-closed handle leaves JOIN_HANDLE_LIVE set,
// so the completed task stays Finished and its pool slot is never recycled
// by Acquire.
func (h *JoinHandle[T]) Close() error {
	h.task.core.vtable.dropJoinHandle()
	return nil
}

// ID returns the underlying task's identifier.
func (h *JoinHandle[T]) ID() uint64 { return h.task.core.id }
