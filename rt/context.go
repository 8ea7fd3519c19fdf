package rt

// Handle is the thread-of-execution-scoped object Enter installs: access to
// the spawner (the runtime itself owns pool-agnostic scheduling, so the
// runtime pointer alone suffices) and, transitively through it, the time
// driver.
type Handle struct {
	rt *Runtime
}

// Runtime returns the handle's runtime.
func (h *Handle) Runtime() *Runtime { return h.rt }

// current is the process-wide (single-core) context slot. There is exactly
// one execution context in this design, so a plain package variable plays
// the role the original assigns to a thread-local.
var current *Handle

// EnterGuard is the scope guard Enter returns; Exit clears the context
// slot. Call Exit exactly once, normally via defer immediately after a
// successful Enter.
type EnterGuard struct {
	active bool
}

// Exit clears the process-wide context slot. Calling Exit more than once,
// or after a different Enter has since installed a new handle, is a no-op
// guarded against by the active flag — it only ever clears the slot it
// itself installed.
func (g *EnterGuard) Exit() {
	if !g.active {
		return
	}
	g.active = false
	current = nil
}

// Enter installs h as the active context and returns a guard that clears it
// on Exit. Nested Enter calls — a second Enter before the first guard's
// Exit — are a programmer error: this executor is single-core and
// single-threaded, so only one execution context may ever be active, a
// restriction the distilled spec leaves implicit but the original source's
// singleton CONTEXT enforces by construction.
func Enter(h *Handle) (*EnterGuard, error) {
	if current != nil {
		return nil, ErrReentrantEnter
	}
	current = h
	return &EnterGuard{active: true}, nil
}

// Current returns the active context handle, or nil if none is installed.
func Current() *Handle {
	return current
}

// SpawnCurrent is the ambient-context counterpart to Spawn, for code running
// inside a task body that doesn't carry an explicit *Runtime reference —
// e.g. a library helper in rtsync or rtnet spawning a companion task. It
// panics with ErrNoRuntimeContext if called outside BlockOn.
func SpawnCurrent[T any](permit *Permit[T], future Future[T]) *JoinHandle[T] {
	h := Current()
	if h == nil {
		panic(ErrNoRuntimeContext)
	}
	return Spawn(h.Runtime(), permit, future)
}
