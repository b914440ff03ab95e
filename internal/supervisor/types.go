// Package supervisor implements the master: phase/restart state machine,
// pool sizing, reaping, timeouts, mold promotion, and signal policy.
package supervisor

import (
	"os"
	"sync"
	"time"

	"github.com/clustersup/cluster/internal/config"
	"github.com/clustersup/cluster/internal/handle"
	"github.com/clustersup/cluster/internal/osproc"
	"github.com/clustersup/cluster/internal/pipeproto"
	"github.com/clustersup/cluster/internal/selfpipe"
	"github.com/clustersup/cluster/internal/spawn"
	"github.com/rs/zerolog"
)

// Status is the master's overall run state.
type Status int

const (
	StatusRun Status = iota
	StatusStop
	StatusHalt
)

// PhasedRestart identifies which kind of phased restart is pending or in
// progress.
type PhasedRestart int

const (
	PhasedNone PhasedRestart = iota
	PhasedNormal
	PhasedRefork
)

// HookFunc is the "(index, log_writer, hook_data)" extension-point shape
// shared by master and worker hooks.
type HookFunc func(index int, log zerolog.Logger, hookData any)

// Hooks are the master-side extension points: before_fork,
// before_worker_fork, after_worker_fork, before_refork, after_refork.
// (on_mold_promotion/on_mold_shutdown/before_worker_shutdown run in the
// child and live in internal/worker.Hooks instead.)
type Hooks struct {
	BeforeFork       HookFunc
	BeforeWorkerFork HookFunc
	AfterWorkerFork  HookFunc
	BeforeRefork     HookFunc
	AfterRefork      HookFunc
	OnBooted         func()
	OnStopped        func()
}

func (h Hooks) run(fn HookFunc, index int, log zerolog.Logger, data any) {
	if fn != nil {
		fn(index, log, data)
	}
}

// pipes are the master-held ends of the three shared pipes; the opposite
// ends are bundled as spawn.ChildPipes and inherited by every child.
type pipes struct {
	workerWriteR *os.File
	checkPipeW   *os.File
	forkPipeW    *os.File
	childTemplate spawn.ChildPipes
}

// Supervisor is the master-side state machine.
type Supervisor struct {
	mu sync.Mutex

	cfg       config.Options
	hooks     Hooks
	log       zerolog.Logger
	os        osproc.OS
	reaper    osproc.Reaper
	spawnFn   func(spawn.Params) (*os.Process, error)
	appReady  bool

	pipes  pipes
	wake   *selfpipe.Pipe
	signals chan os.Signal // translated OS signals, drained on Wakeup

	msgCh chan pipeproto.Message

	phase            int
	status           Status
	phasedRestart    PhasedRestart
	activeRestart    PhasedRestart
	restartDir       string
	workerCount      int
	workersNotBooted int
	nextCheck        time.Time
	idleWorkers      map[int]bool // pid -> idle
	mold             *handle.Handle
	workers          map[int]*handle.Handle // index -> handle

	startedAt time.Time
	tag       string
}

// Options bundles the dependencies New needs beyond cfg, mostly
// so tests can substitute fakes for the OS/reaper/spawn seams.
type Options struct {
	Config   config.Options
	Hooks    Hooks
	Log      zerolog.Logger
	OS       osproc.OS
	Reaper   osproc.Reaper
	SpawnFn  func(spawn.Params) (*os.Process, error)
	AppReady bool // false ⇒ ConfigFatal unless PreloadApp is set
}
