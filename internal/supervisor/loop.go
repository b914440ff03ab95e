package supervisor

import (
	"time"

	"github.com/clustersup/cluster/internal/handle"
	"github.com/clustersup/cluster/internal/stats"
)

// Run is the master's single-threaded cooperative loop: on every wakeup
// (a worker_write line or a drained signal) or on the computed timeout,
// run checkWorkers/retireOldPhase and recompute the deadline. Returns
// once status leaves Run, either because Stop() was called or because
// idle_timeout shut the pool down.
func (s *Supervisor) Run() int {
	s.mu.Lock()
	s.nextCheck = time.Now()
	s.mu.Unlock()

	for {
		s.mu.Lock()
		status := s.status
		pending := s.phasedRestart
		s.mu.Unlock()
		if status != StatusRun {
			break
		}

		if pending != PhasedNone {
			s.beginPhase()
		}

		if s.cfg.IdleTimeout && s.allWorkersIdleTimedOut() {
			s.log.Info().Msg("all workers idle, shutting down")
			s.Stop()
			break
		}

		s.checkWorkers()
		s.retireOldPhase()
		s.maybeFinishPhase()

		timeout := s.nextCheckDuration()
		select {
		case msg := <-s.msgCh:
			s.handleMessage(msg)
		case <-time.After(timeout):
			s.mu.Lock()
			s.nextCheck = time.Now().Add(s.cfg.WorkerCheckIntervalDuration())
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	halted := s.status == StatusHalt
	s.mu.Unlock()
	if halted {
		return 1
	}
	return 0
}

// nextCheckDuration is the smaller of the configured check interval and
// the earliest ping deadline across every live handle, so a worker that
// is about to time out gets noticed before the next routine sweep.
func (s *Supervisor) nextCheckDuration() time.Duration {
	interval := s.cfg.WorkerCheckIntervalDuration()
	workerTimeout := s.cfg.WorkerTimeoutDuration()
	bootTimeout := s.cfg.WorkerBootTimeoutDuration()

	s.mu.Lock()
	all := s.allHandlesLocked()
	s.mu.Unlock()

	now := time.Now()
	shortest := interval
	for _, h := range all {
		if h.Stage() >= handle.Termed {
			continue
		}
		remaining := h.PingTimeout(workerTimeout, bootTimeout).Sub(now)
		if remaining < shortest {
			shortest = remaining
		}
	}
	if shortest < 0 {
		shortest = 0
	}
	return shortest
}

// allWorkersIdleTimedOut reports whether every currently live worker has
// reported idle.
func (s *Supervisor) allWorkersIdleTimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.workers) == 0 {
		return false
	}
	for _, h := range s.workers {
		if !s.idleWorkers[h.Pid()] {
			return false
		}
	}
	return true
}

// Stats builds the aggregated master-side view.
func (s *Supervisor) Stats() stats.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := stats.Snapshot{
		StartedAt:   s.startedAt,
		WorkerCount: s.workerCount,
		Phase:       s.phase,
	}
	for _, h := range s.workers {
		booted := h.Stage() == handle.Booted
		if booted {
			snap.BootedCount++
		}
		if h.Phase() != s.phase {
			snap.OldPhaseCount++
		}
		snap.Workers = append(snap.Workers, stats.WorkerStat{
			StartedAt:   h.StartedAt(),
			Pid:         h.Pid(),
			Index:       h.Index(),
			Phase:       h.Phase(),
			Booted:      booted,
			LastCheckin: h.LastCheckin(),
			LastStatus:  h.LastStatus(),
		})
	}
	return snap
}
