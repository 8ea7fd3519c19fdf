package rt

// Pool is the statically reserved array of task slots associated with one
// async entry point: NewPool[T](name, n) is the Go-generics substitute for the
// original macro-generated `slots: [Slot; N]` array — a compile-time
// parameter (n, chosen by the caller once at program wiring time) replaces
// a const-generic array size, and the pool itself, once constructed, never
// grows, shrinks, or relocates its backing array.
type Pool[T any] struct {
	name  string
	slots []Task[T]
}

// NewPool constructs a pool of n task slots for one entry point. name is
// used only for observability (the pool-nearing-capacity warning); it has
// no effect on spawn behavior.
func NewPool[T any](name string, n int) *Pool[T] {
	if n <= 0 {
		n = 1
	}
	return &Pool[T]{name: name, slots: make([]Task[T], n)}
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Name returns the pool's entry-point label, for observability.
func (p *Pool[T]) Name() string { return p.name }

// InUse reports how many slots hold a live task: spawned and not yet
// consumed. Stopped and Consumed slots are both free — a Consumed slot is
// recycled back to Stopped the next time it is acquired.
func (p *Pool[T]) InUse() int {
	n := 0
	for i := range p.slots {
		switch p.slots[i].core.status {
		case statusRunning, statusFinished:
			n++
		}
	}
	return n
}

// Permit is the transient handle returned by Acquire: the right to attempt
// one spawn into the slot it holds. A Permit that is never spawned from
// leaves its slot Stopped (free) — acquiring does not itself mark the slot
// used.
type Permit[T any] struct {
	pool *Pool[T]
	task *Task[T]
}

// Acquire scans the pool for a free slot and returns a Permit over it, or
// ErrQueueFull if every slot is in use. A slot is free when it is Stopped or
// when its previous occupant has been Consumed; the latter is recycled to
// Stopped here, closing the Stopped → Running → Finished → Consumed →
// Stopped cycle.
func (p *Pool[T]) Acquire() (*Permit[T], error) {
	for i := range p.slots {
		t := &p.slots[i]
		switch t.core.status {
		case statusConsumed:
			if t.core.state&stateScheduled != 0 {
				// The task woke itself on the same poll it completed in,
				// so the slot is still linked in the ready queue. It is
				// free only once that stale entry has been drained.
				continue
			}
			t.recycle()
			fallthrough
		case statusStopped:
			return &Permit[T]{pool: p, task: t}, nil
		}
	}
	return nil, ErrQueueFull
}

// Spawn writes future into the permit's slot, initializes the header
// (status -> Running, state -> SCHEDULED|JOIN_HANDLE_LIVE, expiry -> none),
// binds the vtable, and schedules the task onto rt's ready queue. It
// returns a JoinHandle for the spawned task.
func Spawn[T any](rt *Runtime, permit *Permit[T], future Future[T]) *JoinHandle[T] {
	t := permit.task
	t.future = future
	t.output = *new(T)

	core := &t.core
	core.id = rt.nextTaskID()
	core.state = stateScheduled | stateJoinHandleLive
	core.status = statusRunning
	core.expiry = nil
	core.joinWaker = nil
	core.readyNext = nil
	core.readyGen = 0
	core.timerPrev = nil
	core.timerNext = nil
	core.rt = rt

	t.bindVTable()

	rt.ready.pushBack(core)
	rt.logSpawned(core.id, core.readyGen)
	rt.maybeWarnPool(permit.pool)

	return &JoinHandle[T]{task: t}
}
