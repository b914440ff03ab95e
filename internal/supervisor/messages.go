package supervisor

import (
	"time"

	"github.com/clustersup/cluster/internal/handle"
	"github.com/clustersup/cluster/internal/pipeproto"
)

// handleMessage applies one decoded worker_write line by dispatching on
// its tag. Called only from the single-threaded Run loop.
func (s *Supervisor) handleMessage(msg pipeproto.Message) {
	switch msg.Tag {
	case pipeproto.Wakeup:
		s.drainSignals()
		s.mu.Lock()
		s.nextCheck = time.Now()
		s.mu.Unlock()

	case pipeproto.Boot:
		s.handleBoot(msg)

	case pipeproto.Ping:
		s.handlePing(msg)

	case pipeproto.ExternalTerm:
		s.handleExternalTerm(msg)

	case pipeproto.Term:
		s.handleTerm(msg)

	case pipeproto.Idle:
		s.handleIdle(msg)

	case pipeproto.Fork:
		s.handleFork(msg)
	}
}

// findByIndexLocked looks a handle up by its worker index, including the
// mold slot. Assumes s.mu is already held.
func (s *Supervisor) findByIndexLocked(index int) *handle.Handle {
	if h, ok := s.workers[index]; ok {
		return h
	}
	if s.mold != nil && s.mold.Index() == index {
		return s.mold
	}
	return nil
}

// findByPidLocked looks a handle up by pid, including the mold slot.
// Assumes s.mu is already held.
func (s *Supervisor) findByPidLocked(pid int) *handle.Handle {
	for _, h := range s.workers {
		if h.Pid() == pid {
			return h
		}
	}
	if s.mold != nil && s.mold.Pid() == pid {
		return s.mold
	}
	return nil
}

func (s *Supervisor) handleBoot(msg pipeproto.Message) {
	index, err := parseIndexPayload(msg.Payload)
	if err != nil {
		s.log.Error().Str("payload", msg.Payload).Msg("malformed BOOT payload")
		return
	}

	s.mu.Lock()
	h := s.findByIndexLocked(index)
	if h == nil {
		s.mu.Unlock()
		s.log.Warn().Int("index", index).Int("pid", msg.Pid).Msg("BOOT from unknown index")
		return
	}
	h.SetPid(msg.Pid)
	wasNotBooted := h.Stage() != handle.Booted
	h.Boot()
	if wasNotBooted && s.activeRestart != PhasedNone {
		s.workersNotBooted--
	}
	s.mu.Unlock()

	s.log.Info().Int("index", index).Int("pid", msg.Pid).Msg("worker booted")
}

func (s *Supervisor) handlePing(msg pipeproto.Message) {
	_, status, err := pipeproto.DecodeMetricsJSON(msg.Payload)
	if err != nil {
		s.log.Error().Err(err).Int("pid", msg.Pid).Msg("malformed PING payload")
		return
	}

	s.mu.Lock()
	h := s.findByPidLocked(msg.Pid)
	s.mu.Unlock()
	if h == nil {
		s.log.Warn().Int("pid", msg.Pid).Msg("PING from unknown pid")
		return
	}
	h.Ping(status)

	s.maybeAutoRefork(h)
}

func (s *Supervisor) handleExternalTerm(msg pipeproto.Message) {
	s.mu.Lock()
	h := s.findByPidLocked(msg.Pid)
	s.mu.Unlock()
	if h == nil {
		return
	}
	h.TermExternal()
	s.log.Info().Int("pid", msg.Pid).Msg("worker received external SIGTERM")
}

func (s *Supervisor) handleTerm(msg pipeproto.Message) {
	s.mu.Lock()
	h := s.findByPidLocked(msg.Pid)
	s.mu.Unlock()
	if h == nil {
		return
	}
	if h.Stage() < handle.Termed {
		_ = h.Term()
	}
}

func (s *Supervisor) handleIdle(msg pipeproto.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleWorkers[msg.Pid] = !s.idleWorkers[msg.Pid]
}

func (s *Supervisor) handleFork(msg pipeproto.Message) {
	idx, err := parseIndexPayload(msg.Payload)
	if err != nil {
		s.log.Error().Str("payload", msg.Payload).Msg("malformed FORK payload")
		return
	}

	s.mu.Lock()
	h := s.findByIndexLocked(idx)
	s.mu.Unlock()
	if h == nil {
		s.log.Warn().Int("index", idx).Int("pid", msg.Pid).Msg("FORK for unknown index")
		return
	}
	h.SetPid(msg.Pid)
}
