package supervisor

import (
	"syscall"
	"time"
)

// Stop initiates graceful shutdown: close out every worker, mark the
// supervisor Stopped, and fire on_stopped. SIGTERM and SIGINT both route
// here; there is no separate abrupt-shutdown path for SIGINT.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.status != StatusRun {
		s.mu.Unlock()
		return
	}
	s.status = StatusStop
	s.mu.Unlock()

	s.StopWorkers()

	if s.hooks.OnStopped != nil {
		s.hooks.OnStopped()
	}
}

// StopWorkers sends term() to every live worker (and the mold) and
// bounded-waits, reaping as it goes, until all are gone. A SIGINT
// received mid-wait aborts the wait and force-kills whatever remains.
func (s *Supervisor) StopWorkers() {
	s.mu.Lock()
	all := s.allHandlesLocked()
	s.mu.Unlock()
	for _, h := range all {
		_ = h.Term()
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.waitWorkers()

		s.mu.Lock()
		remaining := len(s.workers)
		if s.mold != nil {
			remaining++
		}
		s.mu.Unlock()
		if remaining == 0 {
			s.pipes.checkPipeW.Close()
			return
		}

		select {
		case <-ticker.C:
		case sig := <-s.signals:
			if sig == syscall.SIGINT {
				s.log.Warn().Msg("interrupted while waiting for workers to stop, force killing")
				s.mu.Lock()
				s.status = StatusHalt
				s.mu.Unlock()
				s.forceKillAll()
				s.pipes.checkPipeW.Close()
				return
			}
		}
	}
}

func (s *Supervisor) forceKillAll() {
	s.mu.Lock()
	all := s.allHandlesLocked()
	s.mu.Unlock()
	for _, h := range all {
		_ = h.Kill()
	}
	s.waitWorkers()
}
