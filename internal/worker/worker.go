// Package worker implements the child-side run loop: boot, periodic PING
// reporting, SIGTERM/SIGURG handling, and (once promoted) the mold's
// fork-on-demand loop. It drives an engine.Engine and speaks the
// line-tag protocol over the pipes it inherits from its parent.
package worker

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/clustersup/cluster/internal/engine"
	"github.com/clustersup/cluster/internal/pipeproto"
	"github.com/clustersup/cluster/internal/spawn"
	"github.com/rs/zerolog"
)

// Config carries the parameters a freshly-forked child process is given
// on the command line (see internal/spawn and cmd/cluster).
type Config struct {
	Index             int
	Phase             int
	Tag               string
	CheckInterval     time.Duration
	MoldWorkerEnabled bool
	HookData          any

	// MetricsSnapshotPath, if set, gets a msgpack-encoded MetricsEnvelope
	// written on every PING tick, a compact binary sidecar an external
	// monitoring agent can poll without the JSON-parsing overhead of the
	// worker_write wire format.
	MetricsSnapshotPath string
}

// Worker drives one engine.Engine through its lifecycle and speaks the
// pipeproto line protocol to the master.
type Worker struct {
	cfg    Config
	pipes  spawn.ChildPipes
	engine engine.Engine
	hooks  Hooks
	log    zerolog.Logger
	out    *pipeproto.Writer

	gate      *restartGate
	sigtermCh chan os.Signal
	sigurgCh  chan os.Signal
}

func New(cfg Config, pipes spawn.ChildPipes, eng engine.Engine, hooks Hooks, log zerolog.Logger) *Worker {
	return &Worker{
		cfg:    cfg,
		pipes:  pipes,
		engine: eng,
		hooks:  hooks,
		log:    log,
		out:    pipeproto.NewWriter(pipes.WorkerWriteW),
	}
}

// Run executes the full child lifecycle and returns a process exit code.
// It always attempts to send TERM before returning, on any exit path.
func (w *Worker) Run() int {
	w.installSignals()
	go w.watchdog()

	w.hooks.run(w.hooks.BeforeWorkerBoot, w.cfg.Index, w.log, w.cfg.HookData)

	pid := syscall.Getpid()
	if err := w.out.Write(pipeproto.Boot, pid, strconv.Itoa(w.cfg.Index)); err != nil {
		w.log.Error().Err(err).Msg("master exited before boot could be sent")
		_ = w.out.Write(pipeproto.Term, pid, "")
		return 0
	}

	w.gate = newRestartGate()
	statDone := make(chan struct{})
	go w.runStatLoop(statDone)

	exitCode := w.serveLoop()

	close(statDone)
	w.hooks.run(w.hooks.BeforeWorkerShutdown, w.cfg.Index, w.log, w.cfg.HookData)
	_ = w.out.Write(pipeproto.Term, pid, "")
	return exitCode
}

func (w *Worker) installSignals() {
	signal.Ignore(syscall.SIGINT)

	w.sigtermCh = make(chan os.Signal, 1)
	signal.Notify(w.sigtermCh, syscall.SIGTERM)

	if w.cfg.MoldWorkerEnabled {
		w.sigurgCh = make(chan os.Signal, 1)
		signal.Notify(w.sigurgCh, syscall.SIGURG)
	}
}

// watchdog blocks on check_pipe. Any read returning (the only expected
// case is EOF, once the master closes its end) means the parent is gone;
// the worker terminates immediately with exit code 1.
func (w *Worker) watchdog() {
	buf := make([]byte, 1)
	_, _ = w.pipes.CheckPipeR.Read(buf)
	w.log.Error().Msg("parent died, exiting")
	os.Exit(1)
}

// serveLoop pops the restart gate, running the engine once per Continue
// value and exiting once it pops Stop (or the gate closes). A SIGURG
// (mold-worker mode) diverts into moldLoop once the in-flight engine run
// has drained.
func (w *Worker) serveLoop() int {
	for {
		cont, ok := w.gate.next()
		if !ok || !cont {
			return 0
		}

		jh, err := w.engine.Start()
		if err != nil {
			w.log.Error().Err(err).Msg("engine failed to start")
			return 1
		}

		done := make(chan struct{})
		go func() {
			jh.Join()
			close(done)
		}()

		diverted, exit := w.waitServeCycle(done)
		if diverted {
			return exit
		}
	}
}

// waitServeCycle waits for the current engine run to finish, reacting to
// SIGTERM/SIGURG in the meantime. diverted is true when the cycle ended
// by promoting to mold, in which case exit is moldLoop's return value.
func (w *Worker) waitServeCycle(done chan struct{}) (diverted bool, exit int) {
	for {
		select {
		case <-done:
			return false, 0

		case <-w.sigtermCh:
			w.out.Write(pipeproto.ExternalTerm, syscall.Getpid(), "")
			w.engine.Stop()
			w.gate.stop()
			// keep waiting on done; the gate change only takes effect on
			// the loop's next pop

		case <-w.sigurgCh:
			w.gate.stop()
			w.engine.BeginRestart(true)
			<-done
			return true, w.moldLoop()
		}
	}
}

// moldLoop runs once this worker has been promoted: it no longer serves
// requests and instead reads worker indices off fork_pipe, forking a
// fresh Worker process for each positive index and reporting it upstream
// via FORK.
func (w *Worker) moldLoop() int {
	w.hooks.run(w.hooks.OnMoldPromotion, w.cfg.Index, w.log, w.cfg.HookData)

	// In mold mode SIGTERM has nothing left to stop but the fork_pipe
	// read loop, so it simply closes that end to unblock Read.
	go func() {
		<-w.sigtermCh
		w.out.Write(pipeproto.ExternalTerm, syscall.Getpid(), "")
		w.pipes.ForkPipeR.Close()
	}()

	reader := pipeproto.NewForkReader(w.pipes.ForkPipeR)
	for {
		idx, err := reader.Read()
		if err != nil {
			w.hooks.run(w.hooks.OnMoldShutdown, w.cfg.Index, w.log, w.cfg.HookData)
			return 0
		}

		switch {
		case idx > 0:
			w.spawnChild(idx)
		default:
			// ForkBeginRefork/ForkReforkComplete/ForkRestartLegacy are
			// master-side bookkeeping sentinels (before_refork/
			// after_refork hooks fire there); the mold has nothing to do
			// with them beyond not mistaking them for an index.
		}
	}
}

func (w *Worker) spawnChild(idx int) {
	proc, err := spawn.Spawn(spawn.Params{
		Role:  "worker",
		Index: idx,
		Phase: w.cfg.Phase,
		Tag:   w.cfg.Tag,
		Pipes: w.pipes,
	})
	if err != nil {
		w.log.Error().Err(err).Int("new_index", idx).Msg("mold failed to fork worker")
		return
	}

	if err := w.out.Write(pipeproto.Fork, proc.Pid, strconv.Itoa(idx)); err != nil {
		w.log.Debug().Err(err).Msg("failed to report fork, master likely gone")
	}
}

func (w *Worker) runStatLoop(done chan struct{}) {
	for {
		w.statLoopOnce(done)
		select {
		case <-done:
			return
		default:
			w.log.Warn().Msg("stat thread died, recreating")
		}
	}
}

func (w *Worker) statLoopOnce(done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("stat thread panicked")
		}
	}()

	ticker := time.NewTicker(w.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.sendPing()
		}
	}
}

func (w *Worker) sendPing() {
	m := fromEngineMetrics(w.engine.Snapshot())
	payload, err := m.EncodeJSON()
	if err != nil {
		w.log.Error().Err(err).Msg("failed to encode ping metrics")
		return
	}
	if err := w.out.Write(pipeproto.Ping, syscall.Getpid(), payload); err != nil {
		w.log.Debug().Err(err).Msg("failed to send ping, master likely gone")
	}

	w.writeMetricsSnapshot(m)
}

func (w *Worker) writeMetricsSnapshot(m pipeproto.Metrics) {
	if w.cfg.MetricsSnapshotPath == "" {
		return
	}
	b, err := pipeproto.MetricsEnvelope{Metrics: m}.Marshal()
	if err != nil {
		w.log.Error().Err(err).Msg("failed to marshal metrics snapshot")
		return
	}
	if err := os.WriteFile(w.cfg.MetricsSnapshotPath, b, 0o644); err != nil {
		w.log.Debug().Err(err).Msg("failed to write metrics snapshot")
	}
}

func fromEngineMetrics(m engine.Metrics) pipeproto.Metrics {
	return pipeproto.Metrics{
		Backlog:       m.Backlog,
		Running:       m.Running,
		PoolCapacity:  m.PoolCapacity,
		MaxThreads:    m.MaxThreads,
		RequestsCount: m.RequestsCount,
		BusyThreads:   m.BusyThreads,
	}
}
