package worker

import (
	"os"
	"testing"
	"time"

	"github.com/clustersup/cluster/internal/engine"
	"github.com/clustersup/cluster/internal/spawn"
	"github.com/rs/zerolog"
)

func newTestWorker(t *testing.T, eng engine.Engine, moldEnabled bool) (*Worker, *os.File) {
	t.Helper()
	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { writeEnd.Close() })

	pipes := spawn.ChildPipes{WorkerWriteW: writeEnd}
	cfg := Config{Index: 1, Phase: 0, CheckInterval: time.Hour, MoldWorkerEnabled: moldEnabled}

	w := New(cfg, pipes, eng, Hooks{}, zerolog.Nop())
	w.gate = newRestartGate()
	w.sigtermCh = make(chan os.Signal, 1)
	if moldEnabled {
		w.sigurgCh = make(chan os.Signal, 1)
	}
	return w, readEnd
}

func TestServeLoopRunsOnceThenStops(t *testing.T) {
	fake := engine.NewFake(engine.Metrics{})
	w, readEnd := newTestWorker(t, fake, false)
	defer readEnd.Close()

	fake.Stop() // engine.Start()'s JoinHandle fires immediately

	code := w.serveLoop()
	if code != 0 {
		t.Fatalf("want exit 0, got %d", code)
	}
}

func TestSigtermDuringServeStopsEngineAndExits(t *testing.T) {
	fake := engine.NewFake(engine.Metrics{})
	w, readEnd := newTestWorker(t, fake, false)
	defer readEnd.Close()

	done := make(chan int, 1)
	go func() { done <- w.serveLoop() }()

	w.sigtermCh <- os.Interrupt

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("want exit 0, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serveLoop did not exit after SIGTERM")
	}

	if fake.Restarts() != 0 {
		t.Fatalf("plain SIGTERM should not count as a restart")
	}
}

func TestSigurgPromotesToMold(t *testing.T) {
	fake := engine.NewFake(engine.Metrics{})
	w, readEnd := newTestWorker(t, fake, true)
	defer readEnd.Close()

	forkR, forkW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	w.pipes.ForkPipeR = forkR
	defer forkW.Close()

	done := make(chan int, 1)
	go func() { done <- w.serveLoop() }()

	w.sigurgCh <- os.Interrupt
	forkR.Close() // immediately end the mold loop via read error

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serveLoop did not return after mold promotion + fork_pipe EOF")
	}

	if fake.Restarts() != 1 {
		t.Fatalf("want exactly one BeginRestart call, got %d", fake.Restarts())
	}
}
