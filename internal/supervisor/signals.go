package supervisor

import (
	"os"
	"syscall"
)

// drainSignals applies every signal queued since the last WAKEUP. Signal
// handlers only enqueue; all mutation happens here, in the
// single-threaded main loop.
func (s *Supervisor) drainSignals() {
	for {
		select {
		case sig := <-s.signals:
			s.applySignal(sig)
		default:
			return
		}
	}
}

func (s *Supervisor) applySignal(sig os.Signal) {
	switch sig {
	case syscall.SIGINT:
		s.Stop()

	case syscall.SIGTERM:
		s.Stop()

	case syscall.SIGCHLD:
		// Nothing to do directly; the next checkWorkers sweep reaps.

	case syscall.SIGTTIN:
		s.mu.Lock()
		s.workerCount++
		s.mu.Unlock()

	case syscall.SIGTTOU:
		s.mu.Lock()
		if s.workerCount > 1 {
			s.workerCount--
		}
		s.mu.Unlock()

	case syscall.SIGURG:
		if s.cfg.ForkWorkerEnabled() {
			s.forkWorker()
		}

	case syscall.SIGHUP:
		s.fanoutHup()
	}
}

// fanoutHup sends SIGHUP to every worker, used for log-rotation fanout.
func (s *Supervisor) fanoutHup() {
	s.mu.Lock()
	all := s.allHandlesLocked()
	s.mu.Unlock()
	for _, h := range all {
		if err := h.Hup(); err != nil {
			s.log.Debug().Err(err).Int("index", h.Index()).Msg("hup failed")
		}
	}
}

// WorkerCount reports the currently configured pool size (mutated live by
// TTIN/TTOU).
func (s *Supervisor) WorkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workerCount
}
