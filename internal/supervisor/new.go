package supervisor

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clustersup/cluster/internal/handle"
	"github.com/clustersup/cluster/internal/osproc"
	"github.com/clustersup/cluster/internal/pipeproto"
	"github.com/clustersup/cluster/internal/selfpipe"
	"github.com/clustersup/cluster/internal/spawn"
)

// ErrConfigFatal is returned by New when application configuration is
// missing in non-preload mode: the master must exit 1 before spawning
// any worker.
var ErrConfigFatal = fmt.Errorf("supervisor: application not configured and preload_app is disabled")

func New(o Options) (*Supervisor, error) {
	if !o.Config.PreloadApp && !o.AppReady {
		return nil, ErrConfigFatal
	}

	workerWriteR, workerWriteW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: open worker_write pipe: %w", err)
	}
	checkPipeR, checkPipeW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: open check_pipe: %w", err)
	}
	forkPipeR, forkPipeW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: open fork_pipe: %w", err)
	}

	wake, err := selfpipe.New()
	if err != nil {
		return nil, fmt.Errorf("supervisor: open wakeup self-pipe: %w", err)
	}

	reaper := o.Reaper
	if reaper == nil {
		reaper = osproc.RealReaper{}
	}
	osImpl := o.OS
	if osImpl == nil {
		osImpl = osproc.NewPlatformOS()
	}
	spawnFn := o.SpawnFn
	if spawnFn == nil {
		spawnFn = spawn.Spawn
	}

	s := &Supervisor{
		cfg:      o.Config,
		hooks:    o.Hooks,
		log:      o.Log,
		os:       osImpl,
		reaper:   reaper,
		spawnFn:  spawnFn,
		appReady: o.AppReady,

		pipes: pipes{
			workerWriteR: workerWriteR,
			checkPipeW:   checkPipeW,
			forkPipeW:    forkPipeW,
			childTemplate: spawn.ChildPipes{
				WorkerWriteW: workerWriteW,
				CheckPipeR:   checkPipeR,
				ForkPipeR:    forkPipeR,
			},
		},
		wake:    wake,
		signals: make(chan os.Signal, 32),

		msgCh: make(chan pipeproto.Message, 64),

		status:      StatusRun,
		workerCount: o.Config.Workers,
		idleWorkers: make(map[int]bool),
		workers:     make(map[int]*handle.Handle),
		startedAt:   time.Now(),
		tag:         o.Config.Tag,
	}

	s.startPipeReader()
	s.startWakeupReader()
	s.installSignals()

	return s, nil
}

// startPipeReader runs the goroutine that decodes worker_write lines and
// feeds them into msgCh, a blocking-read-to-channel bridge so the main
// loop never blocks directly on the pipe.
func (s *Supervisor) startPipeReader() {
	reader := pipeproto.NewReader(s.pipes.workerWriteR)
	go func() {
		for {
			msg, err := reader.ReadMessage()
			if err != nil {
				return
			}
			s.msgCh <- msg
		}
	}()
}

// startWakeupReader blocks for the self-pipe to become readable, then
// drains it fully before posting a single WAKEUP message, coalescing
// however many signals arrived in a burst into one wakeup for the main
// loop to react to.
func (s *Supervisor) startWakeupReader() {
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := s.wake.Read().Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				s.wake.Drain()
				s.msgCh <- pipeproto.Message{Tag: pipeproto.Wakeup}
			}
		}
	}()
}

// installSignals wires the signal table: real OS signals are only ever
// enqueued (into s.signals) plus a self-pipe wake; all state mutation
// happens later in the main loop.
func (s *Supervisor) installSignals() {
	sigCh := make(chan os.Signal, 32)
	signal.Notify(sigCh,
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD,
		syscall.SIGTTIN, syscall.SIGTTOU, syscall.SIGURG, syscall.SIGHUP,
	)
	go func() {
		for sig := range sigCh {
			s.signals <- sig
			s.wake.Wake()
		}
	}()
}
