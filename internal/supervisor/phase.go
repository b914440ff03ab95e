package supervisor

import (
	"os"

	"github.com/clustersup/cluster/internal/handle"
)

// RequestPhasedRestart queues a phased restart of the given kind, taking
// effect at the top of the next main-loop iteration. dir, if non-empty,
// is chdir'd into before the new generation starts spawning.
func (s *Supervisor) RequestPhasedRestart(kind PhasedRestart, dir string) {
	s.mu.Lock()
	s.phasedRestart = kind
	s.restartDir = dir
	s.mu.Unlock()
	s.wake.Wake()
}

// beginPhase converts a pending phased-restart request into an active
// one: bumps phase, chdirs, and seeds workersNotBooted.
func (s *Supervisor) beginPhase() {
	s.mu.Lock()
	kind := s.phasedRestart
	dir := s.restartDir
	s.phase++
	s.workersNotBooted = s.workerCount
	if kind == PhasedRefork {
		s.workersNotBooted-- // worker 0 persists as mold, already booted
	}
	s.phasedRestart = PhasedNone
	phase := s.phase
	s.mu.Unlock()

	if dir != "" {
		if err := os.Chdir(dir); err != nil {
			s.log.Error().Err(err).Str("dir", dir).Msg("failed to chdir for phased restart")
		}
	}

	if kind == PhasedRefork {
		s.hooks.run(s.hooks.BeforeRefork, 0, s.log, nil)
	}
	s.log.Info().Int("phase", phase).Msg("phased restart beginning")

	s.mu.Lock()
	s.activeRestart = kind
	s.mu.Unlock()
}

// maybeFinishPhase fires on_booted (and after_refork, for a refork) once
// every worker of the new generation has reported BOOT.
func (s *Supervisor) maybeFinishPhase() {
	s.mu.Lock()
	active := s.activeRestart
	notBooted := s.workersNotBooted
	phase := s.phase
	s.mu.Unlock()

	if active == PhasedNone || notBooted > 0 {
		return
	}

	if active == PhasedRefork {
		s.hooks.run(s.hooks.AfterRefork, 0, s.log, nil)
	}
	if s.hooks.OnBooted != nil {
		s.hooks.OnBooted()
	}

	s.mu.Lock()
	s.activeRestart = PhasedNone
	s.mu.Unlock()
	s.log.Info().Int("phase", phase).Msg("phased restart complete")
}

// forkWorker implements "fork_worker!": pick the worker with the most
// requests served, bump its phase, term the current mold, and schedule a
// refork.
func (s *Supervisor) forkWorker() {
	s.mu.Lock()
	var best *handle.Handle
	bestRequests := -1
	for _, h := range s.workers {
		rc := h.LastStatus()["requests_count"]
		if rc > bestRequests {
			best = h
			bestRequests = rc
		}
	}
	if best == nil {
		s.mu.Unlock()
		return
	}
	best.SetPhase(s.phase + 1)
	if s.mold != nil {
		_ = s.mold.Term()
	}
	s.phasedRestart = PhasedRefork
	s.mu.Unlock()

	s.log.Info().Int("index", best.Index()).Msg("fork_worker! scheduling refork")
	s.wake.Wake()
}

// maybeAutoRefork implements the ":ping!" auto-refork hook: worker 0's
// phase-0 PING crossing the configured requests_count threshold triggers
// fork_worker! automatically.
func (s *Supervisor) maybeAutoRefork(h *handle.Handle) {
	if !s.cfg.ForkWorkerEnabled() || s.cfg.ForkWorkerThreshold < 0 {
		return // disabled, or -1: manual refork only
	}
	if h.Index() != 0 || h.Phase() != 0 {
		return
	}
	if h.LastStatus()["requests_count"] >= s.cfg.ForkWorkerThreshold {
		s.forkWorker()
	}
}
