package worker

import "github.com/rs/zerolog"

// HookFunc is the "(index, log_writer, hook_data)" contract every
// worker-side hook follows. hookData is implementation-defined and
// opaque to this module; it is forwarded verbatim from Config.
type HookFunc func(index int, log zerolog.Logger, hookData any)

// Hooks are the worker-side extension points a process can set. Unset
// fields are simply skipped.
type Hooks struct {
	BeforeWorkerBoot     HookFunc
	OnMoldPromotion      HookFunc
	OnMoldShutdown       HookFunc
	BeforeWorkerShutdown HookFunc
}

func (h Hooks) run(fn HookFunc, index int, log zerolog.Logger, data any) {
	if fn != nil {
		fn(index, log, data)
	}
}
