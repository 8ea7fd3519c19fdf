package rt

import "github.com/joeycumines/logiface"

// runtimeOptions holds configuration gathered from Option values at
// construction time.
type runtimeOptions struct {
	logger            *logiface.Logger[logiface.Event]
	poolWarnThreshold int
}

// Option configures a Runtime at construction.
type Option interface {
	applyRuntime(*runtimeOptions)
}

type optionFunc func(*runtimeOptions)

func (f optionFunc) applyRuntime(o *runtimeOptions) { f(o) }

// WithLogger attaches a structured logger. Without one, the runtime logs
// nothing: the logging boundary is type-erased (*logiface.Logger[logiface.Event])
// so callers may supply any Event implementation, not just stumpy's.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(o *runtimeOptions) {
		o.logger = logger
	})
}

// WithPoolWarnThreshold configures the occupancy fraction (0–100) of a pool
// at which a spawn emits a warn-level "pool nearing capacity" event instead
// of silence. 0 disables the warning. This has no equivalent in the
// original spec's error model (QueueFull is binary); it is an ambient
// observability affordance, not a behavioral change to spawn's result.
func WithPoolWarnThreshold(percent int) Option {
	return optionFunc(func(o *runtimeOptions) {
		o.poolWarnThreshold = percent
	})
}

func resolveOptions(opts []Option) *runtimeOptions {
	cfg := &runtimeOptions{poolWarnThreshold: 90}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRuntime(cfg)
	}
	return cfg
}
