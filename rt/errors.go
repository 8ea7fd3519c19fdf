package rt

import "errors"

// ErrQueueFull is returned by a Permit acquisition when an entry point's pool
// has no Stopped slot available. It is the one recoverable error this
// package produces — a spawn attempt, not a runtime fault — and is never
// retried internally.
var ErrQueueFull = errors.New("rt: pool exhausted (QueueFull)")

// ErrTimerUninitialized is raised when a time driver operation is attempted
// before the driver has been initialized. Per the failure model this is a
// programmer error: callers encounter it as a panic value, never a returned
// error.
var ErrTimerUninitialized = errors.New("rt: time driver used before init")

// ErrBadStatus is raised when get_output is invoked on a task whose status
// is not Finished. Programmer error; halts.
var ErrBadStatus = errors.New("rt: get_output called on a task that is not Finished")

// ErrReentrantEnter is raised by Enter when a runtime handle is already
// installed in the current process-wide context slot. Only one execution
// context may be bound at a time.
var ErrReentrantEnter = errors.New("rt: Enter called while a context is already active")

// ErrNoRuntimeContext is raised by SpawnCurrent (and anything else that
// consults the ambient context) when called outside of Enter/BlockOn.
var ErrNoRuntimeContext = errors.New("rt: no runtime context is active")

// fatal panics with err, after giving the logger a chance to record the
// fault at the emergency level — the hosted equivalent of leaving a
// breakpoint instruction and the debugger attached with interrupts disabled.
func (rt *Runtime) fatal(err error) {
	if rt != nil && rt.log != nil {
		rt.log.Emerg().Err(err).Log("rt: fatal error, halting")
	}
	panic(err)
}
