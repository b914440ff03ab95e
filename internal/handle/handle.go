// Package handle implements WorkerHandle, the master-side bookkeeping
// record for one live worker (or the optional mold slot).
package handle

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/clustersup/cluster/internal/osproc"
	"github.com/rs/zerolog"
)

// Stage is the worker lifecycle stage a handle tracks master-side.
// Transitions are monotone: Spawning->Booted on first BOOT, any->Termed on
// term(), Termed->Killed on kill().
type Stage int

const (
	Spawning Stage = iota
	Booted
	Termed
	Killed
)

func (s Stage) String() string {
	switch s {
	case Spawning:
		return "spawning"
	case Booted:
		return "booted"
	case Termed:
		return "termed"
	case Killed:
		return "killed"
	default:
		return "unknown"
	}
}

// Handle is the master-side record for one worker (or the mold). pid is 0
// until resolved by the first BOOT or FORK message that carries it; once
// non-zero it is never overwritten.
type Handle struct {
	mu sync.Mutex

	index       int
	pid         int
	phase       int
	startedAt   time.Time
	lastCheckin time.Time
	lastStatus  map[string]int
	stage       Stage
	killArmedAt time.Time

	os  osproc.OS
	log zerolog.Logger
}

// New creates a handle in the Spawning stage. pid may be 0 (unknown,
// mold-forked path) or a known pid (direct fork path).
func New(index, phase, pid int, os osproc.OS, log zerolog.Logger) *Handle {
	return &Handle{
		index:     index,
		pid:       pid,
		phase:     phase,
		startedAt: time.Now(),
		stage:     Spawning,
		os:        os,
		log:       log.With().Int("index", index).Logger(),
	}
}

func (h *Handle) Index() int { h.mu.Lock(); defer h.mu.Unlock(); return h.index }
func (h *Handle) Pid() int   { h.mu.Lock(); defer h.mu.Unlock(); return h.pid }
func (h *Handle) Phase() int { h.mu.Lock(); defer h.mu.Unlock(); return h.phase }
func (h *Handle) Stage() Stage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stage
}
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}
func (h *Handle) LastCheckin() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastCheckin
}
func (h *Handle) LastStatus() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.lastStatus))
	for k, v := range h.lastStatus {
		out[k] = v
	}
	return out
}

// SetPid resolves an unknown pid, used when a FORK or BOOT message arrives
// carrying the real pid for a mold-spawned worker.
func (h *Handle) SetPid(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pid == 0 {
		h.pid = pid
	}
}

// SetPhase bumps the generation stamp, used during phased restarts.
func (h *Handle) SetPhase(phase int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = phase
}

// PingTimeout returns the deadline this handle is held to:
// last_checkin+workerTimeout once Booted, else startedAt+bootTimeout.
func (h *Handle) PingTimeout(workerTimeout, bootTimeout time.Duration) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stage == Booted {
		return h.lastCheckin.Add(workerTimeout)
	}
	return h.startedAt.Add(bootTimeout)
}

// Boot transitions Spawning->Booted on first BOOT message.
func (h *Handle) Boot() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stage == Spawning {
		h.stage = Booted
	}
	h.lastCheckin = time.Now()
}

// Ping stores the parsed PING payload and stamps last_checkin, which must
// stay monotonically non-decreasing across PINGs from one worker;
// time.Now() already guarantees this on a single clock source.
func (h *Handle) Ping(status map[string]int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastStatus = status
	h.lastCheckin = time.Now()
}

// Term sends SIGTERM if not already Termed/Killed, and arms the kill
// timer the supervisor consults to escalate to SIGKILL.
func (h *Handle) Term() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stage >= Termed {
		return nil
	}
	if h.pid != 0 {
		if err := h.os.Signal(h.pid, syscall.SIGTERM); err != nil {
			h.log.Debug().Err(err).Msg("term: signal failed, worker likely already gone")
		}
	}
	h.stage = Termed
	h.killArmedAt = time.Now()
	return nil
}

// TermExternal marks Termed without sending a signal, used when the
// worker itself reported EXTERNAL_TERM (it received SIGTERM directly).
func (h *Handle) TermExternal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stage >= Termed {
		return
	}
	h.stage = Termed
	h.killArmedAt = time.Now()
}

// Kill sends SIGKILL and marks Killed.
func (h *Handle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pid != 0 {
		if err := h.os.Signal(h.pid, syscall.SIGKILL); err != nil {
			return fmt.Errorf("handle: kill index=%d pid=%d: %w", h.index, h.pid, err)
		}
	}
	h.stage = Killed
	return nil
}

// Hup sends SIGHUP, used for log-rotation fanout.
func (h *Handle) Hup() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pid == 0 {
		return nil
	}
	return h.os.Signal(h.pid, syscall.SIGHUP)
}

// Mold sends SIGURG, requesting mold promotion.
func (h *Handle) Mold() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pid == 0 {
		return fmt.Errorf("handle: cannot promote index=%d with unknown pid", h.index)
	}
	return h.os.Signal(h.pid, syscall.SIGURG)
}

// KillArmedAt reports when Term()/TermExternal() fired, the zero time if
// never termed. The supervisor uses this to escalate to Kill after a
// grace period.
func (h *Handle) KillArmedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.killArmedAt
}
