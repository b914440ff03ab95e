package supervisor

import (
	"time"

	"github.com/clustersup/cluster/internal/handle"
	"github.com/clustersup/cluster/internal/pipeproto"
	"github.com/clustersup/cluster/internal/spawn"
)

// checkWorkers runs the per-tick sweep in order: timeout_workers,
// wait_workers, cull_workers, promote_mold (fork-worker only),
// spawn_workers.
func (s *Supervisor) checkWorkers() {
	s.timeoutWorkers()
	s.waitWorkers()
	s.cullWorkers()
	if s.cfg.ForkWorkerEnabled() {
		s.promoteMold()
	}
	s.spawnWorkers()
}

// termGracePeriod is how long a Termed worker gets to exit on its own
// before timeoutWorkers escalates to SIGKILL.
const termGracePeriod = 8 * time.Second

// timeoutWorkers kills any non-Termed handle whose ping deadline has
// passed (boot timeout while Spawning, check-in timeout once Booted),
// and escalates any Termed handle that hasn't exited within
// termGracePeriod.
func (s *Supervisor) timeoutWorkers() {
	now := time.Now()
	workerTimeout := s.cfg.WorkerTimeoutDuration()
	bootTimeout := s.cfg.WorkerBootTimeoutDuration()

	s.mu.Lock()
	all := s.allHandlesLocked()
	s.mu.Unlock()

	for _, h := range all {
		if h.Stage() == handle.Termed {
			if armed := h.KillArmedAt(); !armed.IsZero() && now.Sub(armed) > termGracePeriod {
				s.log.Warn().Int("index", h.Index()).Msg("worker did not exit within grace period, escalating to kill")
				if err := h.Kill(); err != nil {
					s.log.Debug().Err(err).Int("index", h.Index()).Msg("escalation kill failed, worker likely already gone")
				}
			}
			continue
		}
		if h.Stage() >= handle.Termed {
			continue
		}
		deadline := h.PingTimeout(workerTimeout, bootTimeout)
		if deadline.After(now) {
			continue
		}

		if h.Stage() == handle.Spawning {
			s.log.Error().Int("index", h.Index()).Dur("boot_timeout", bootTimeout).
				Msg("worker failed to boot in time, killing")
		} else {
			s.log.Error().Int("index", h.Index()).
				Msgf("Terminating timed out worker (Worker %d failed to check in)", h.Index())
		}
		if err := h.Kill(); err != nil {
			s.log.Debug().Err(err).Int("index", h.Index()).Msg("kill on timeout failed, worker likely already gone")
		}
	}
}

// waitWorkers performs the non-blocking reap sweep: unknown reaped pids
// (PID-1 adoption) are logged, known ones remove their handle.
func (s *Supervisor) waitWorkers() {
	reaped := s.reaper.ReapAll()
	if len(reaped) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reaped {
		if idx, ok := s.indexForPidLocked(r.Pid); ok {
			delete(s.workers, idx)
			s.log.Info().Int("index", idx).Int("pid", r.Pid).Int("exit_code", r.ExitCode).Msg("worker reaped")
			continue
		}
		if s.mold != nil && s.mold.Pid() == r.Pid {
			s.mold = nil
			s.log.Info().Int("pid", r.Pid).Int("exit_code", r.ExitCode).Msg("mold reaped")
			continue
		}
		s.log.Warn().Int("pid", r.Pid).Int("exit_code", r.ExitCode).
			Msgf("! reaped unknown child process pid=%d status=%d", r.Pid, r.ExitCode)
	}
}

func (s *Supervisor) indexForPidLocked(pid int) (int, bool) {
	for idx, h := range s.workers {
		if h.Pid() == pid {
			return idx, true
		}
	}
	return 0, false
}

// cullWorkers terminates excess live workers when the pool is larger than
// configured (e.g. after a TTOU).
func (s *Supervisor) cullWorkers() {
	s.mu.Lock()
	diff := len(s.workers) - s.workerCount
	victims := cullVictimsLocked(s.workers, diff, s.cfg.Culling(), s.cfg.ForkWorkerEnabled())
	s.mu.Unlock()

	for _, h := range victims {
		_ = h.Term()
		s.log.Info().Int("index", h.Index()).Msg("culling worker, pool shrank")
	}
}

// promoteMold picks the Booted worker with the most requests served on
// the current phase and promotes it to mold via SIGURG.
func (s *Supervisor) promoteMold() {
	s.mu.Lock()
	defer s.mu.Unlock()

	missing := s.workerCount - len(s.workers)
	if missing <= 0 {
		return
	}
	if s.mold != nil {
		if s.mold.Stage() == handle.Termed || s.mold.Stage() == handle.Killed {
			// Stale mold: escalate if it hasn't gone away yet.
			if s.mold.Pid() != 0 && s.os.Alive(s.mold.Pid()) {
				_ = s.mold.Kill()
			}
			return
		}
		return // healthy mold already in place
	}

	var best *handle.Handle
	var bestRequests = -1
	for _, h := range s.workers {
		if h.Stage() != handle.Booted || h.Phase() != s.phase {
			continue
		}
		rc := h.LastStatus()["requests_count"]
		if rc > bestRequests {
			best = h
			bestRequests = rc
		}
	}
	if best == nil {
		return
	}

	if err := best.Mold(); err != nil {
		s.log.Error().Err(err).Int("index", best.Index()).Msg("failed to promote mold")
		return
	}
	delete(s.workers, best.Index())
	s.mold = best
	s.log.Info().Int("index", best.Index()).Msg("promoted worker to mold")
}

// spawnWorkers fills every missing pool slot, via the mold's fork_pipe
// when a healthy mold exists or by forking directly otherwise.
func (s *Supervisor) spawnWorkers() {
	s.mu.Lock()
	missing := s.workerCount - len(s.workers)
	moldHealthy := s.mold != nil && s.mold.Stage() != handle.Termed && s.mold.Stage() != handle.Killed
	phase := s.phase
	tag := s.tag
	template := s.pipes.childTemplate
	forkWriter := pipeproto.NewForkWriter(s.pipes.forkPipeW)
	s.mu.Unlock()

	for i := 0; i < missing; i++ {
		s.mu.Lock()
		idx := s.lowestFreeIndexLocked()
		s.mu.Unlock()

		s.hooks.run(s.hooks.BeforeWorkerFork, idx, s.log, nil)

		if moldHealthy {
			if err := forkWriter.Write(idx); err != nil {
				s.log.Error().Err(err).Int("index", idx).Msg("failed to request fork from mold")
				continue
			}
			h := handle.New(idx, phase, 0, s.os, s.log)
			s.mu.Lock()
			s.workers[idx] = h
			s.mu.Unlock()
			continue
		}

		s.hooks.run(s.hooks.BeforeFork, idx, s.log, nil)
		proc, err := s.spawnFn(spawn.Params{Role: "worker", Index: idx, Phase: phase, Tag: tag, Pipes: template})
		if err != nil {
			s.log.Error().Err(err).Int("index", idx).Msg("failed to fork worker")
			continue
		}
		h := handle.New(idx, phase, proc.Pid, s.os, s.log)
		s.mu.Lock()
		s.workers[idx] = h
		s.mu.Unlock()
		s.hooks.run(s.hooks.AfterWorkerFork, idx, s.log, nil)
	}
}

// allHandlesLocked returns every live worker handle plus the mold, if
// any. Assumes s.mu held.
func (s *Supervisor) allHandlesLocked() []*handle.Handle {
	out := make([]*handle.Handle, 0, len(s.workers)+1)
	for _, h := range s.workers {
		out = append(out, h)
	}
	if s.mold != nil {
		out = append(out, s.mold)
	}
	return out
}

// retireOldPhase terminates exactly one booted worker whose phase lags
// the current phase, once every live worker has booted. During refork,
// index 0 is never picked (it is the mold-to-be).
func (s *Supervisor) retireOldPhase() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.allHandlesLocked() {
		if h.Stage() != handle.Booted {
			return // not all booted yet
		}
	}

	refork := s.activeRestart == PhasedRefork
	for idx, h := range s.workers {
		if refork && idx == 0 {
			continue
		}
		if h.Phase() != s.phase {
			_ = h.Term()
			return
		}
	}
}
