package rt

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// DefaultLogger returns a ready-made logger to pass to WithLogger in a demo
// or test (a Runtime built without WithLogger does not fall back to it and
// logs nothing): a stumpy-backed,
// zero-allocation JSON logger writing to the given writer (os.Stderr is the
// conventional choice, matching stumpy's own default).
//
// Production firmware builds are expected to supply their own sink via
// WithLogger; DefaultLogger exists so `cmd/demo` and tests don't need to
// hand-roll one.
func DefaultLogger(opts ...stumpy.Option) *logiface.Logger[logiface.Event] {
	return logiface.New[*stumpy.Event](
		logiface.WithLevel[*stumpy.Event](logiface.LevelTrace),
		stumpy.WithStumpy(opts...),
	).Logger()
}

// NoopLogger returns a logger with no writer attached, for tests that want
// the scheduler's logging calls to compile and execute but produce no
// output and no allocation beyond event pooling.
func NoopLogger() *logiface.Logger[logiface.Event] {
	return logiface.New[logiface.Event]().Logger()
}

// logSpawned emits the "task spawned" event required by the observability
// contract: id and the ready-queue generation it was tagged with.
func (rt *Runtime) logSpawned(id uint64, gen uint8) {
	if rt.log == nil {
		return
	}
	rt.log.Info().Uint64("task_id", id).Uint64("generation", uint64(gen)).Log("rt: task spawned")
}

func (rt *Runtime) logRunning(id uint64) {
	if rt.log == nil {
		return
	}
	rt.log.Trace().Uint64("task_id", id).Log("rt: task running")
}

func (rt *Runtime) logIdle(id uint64) {
	if rt.log == nil {
		return
	}
	rt.log.Trace().Uint64("task_id", id).Log("rt: task idle")
}

func (rt *Runtime) logScheduled(id uint64) {
	if rt.log == nil {
		return
	}
	rt.log.Trace().Uint64("task_id", id).Log("rt: task scheduled")
}

func (rt *Runtime) logComplete(id uint64) {
	if rt.log == nil {
		return
	}
	rt.log.Debug().Uint64("task_id", id).Log("rt: task complete")
}

func (rt *Runtime) logRoundDraining(gen uint8) {
	if rt.log == nil {
		return
	}
	rt.log.Trace().Uint64("generation", uint64(gen)).Log("rt: ready queue draining")
}

func (rt *Runtime) logPoolWarn(entryPoint string, used, capacity int) {
	if rt.log == nil {
		return
	}
	rt.log.Warning().Str("entry_point", entryPoint).Int("used", used).Int("capacity", capacity).Log("rt: pool nearing capacity")
}
