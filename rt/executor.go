package rt

import (
	"github.com/joeycumines/logiface"

	"github.com/tinyrt/tinyrt/clock"
)

// TimeDriver is the interface the executor loop needs from the time driver:
// program a one-shot timer, and halt until it (or any other registered
// event source) signals. hwtimer.Driver satisfies this.
type TimeDriver interface {
	Start(delay clock.Duration)
	WaitForEvent() (fired bool, err error)
}

// Runtime is the process-wide scheduler singleton: it owns the ready queue
// and timer queue by inclusion, and holds the time driver and logger every
// spawned task's vtable closures reach back into.
type Runtime struct {
	ready  readyQueue
	timers timerQueue
	driver TimeDriver
	log    *logiface.Logger[logiface.Event]

	poolWarnThreshold int
	lastTaskID        uint64
}

// NewRuntime constructs a Runtime bound to driver. driver may be nil only
// if the caller never spawns a Sleep-using task and never lets the ready
// queue empty with live timers — BlockOn will panic with
// ErrTimerUninitialized the first time it tries to arm or wait on a nil
// driver, since that is exactly the "time driver operation before init"
// programmer error the original spec assigns to this situation.
func NewRuntime(driver TimeDriver, opts ...Option) *Runtime {
	cfg := resolveOptions(opts)
	return &Runtime{
		driver:            driver,
		log:               cfg.logger,
		poolWarnThreshold: cfg.poolWarnThreshold,
	}
}

func (rt *Runtime) nextTaskID() uint64 {
	rt.lastTaskID++
	return rt.lastTaskID
}

// poolOccupancy is satisfied by every Pool[T]; kept non-generic so
// maybeWarnPool doesn't need a type parameter of its own.
type poolOccupancy interface {
	Cap() int
	InUse() int
	Name() string
}

func (rt *Runtime) maybeWarnPool(p poolOccupancy) {
	if rt.poolWarnThreshold <= 0 || p.Cap() == 0 {
		return
	}
	if p.InUse()*100/p.Cap() >= rt.poolWarnThreshold {
		rt.logPoolWarn(p.Name(), p.InUse(), p.Cap())
	}
}

// BlockOn drives root to completion, implementing the executor loop from
// spec.md §4.H: poll root; process expired timers; arm the hardware timer
// to the next deadline; if the ready queue is empty, halt until an event
// wakes it; otherwise drain exactly one round.
//
// BlockOn installs rt as the ambient runtime context for its duration (see
// Enter), so code running underneath it — task bodies, Spawn callers — can
// reach the runtime without an explicit parameter. Nested calls to BlockOn
// (or Enter) are a programmer error (ErrReentrantEnter): this executor is
// single-core and single-threaded, and only one execution context may ever
// be active.
func BlockOn[T any](rt *Runtime, root Future[T]) T {
	guard, err := Enter(&Handle{rt: rt})
	if err != nil {
		rt.fatal(err)
	}
	defer guard.Exit()

	cx := &PollContext{waker: noopWaker()}

	for {
		if out, ready := root.Poll(cx); ready {
			return out
		}

		now := clock.Now()
		rt.timers.process(now, rt)

		if d, ok := rt.timers.deadline(); ok {
			if rt.driver == nil {
				rt.fatal(ErrTimerUninitialized)
			}
			rt.driver.Start(d.Sub(now))
		}

		if rt.ready.isEmpty() {
			if rt.driver == nil {
				rt.fatal(ErrTimerUninitialized)
			}
			if _, err := rt.driver.WaitForEvent(); err != nil {
				rt.fatal(err)
			}
			continue
		}

		gen := rt.ready.prepare()
		rt.logRoundDraining(gen)
		for {
			task := rt.ready.popFront(gen)
			if task == nil {
				break
			}
			task.vtable.poll()
		}
	}
}
