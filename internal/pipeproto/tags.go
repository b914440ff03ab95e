// Package pipeproto implements the line-oriented single-byte-tag framing
// used between master and workers (and master/mold), plus the simpler
// ASCII-decimal fork_pipe channel used to hand out worker indices to a mold.
package pipeproto

// Tag identifies a message kind in the worker<->master protocol.
type Tag byte

const (
	Boot         Tag = 'b' // worker->master: pid:index
	Ping         Tag = 'p' // worker->master: pid{json-metrics}
	Fork         Tag = 'f' // mold->master: pid:index
	ExternalTerm Tag = 'e' // worker->master: pid
	Term         Tag = 't' // worker->master: pid
	Idle         Tag = 'i' // worker->master: pid
	Wakeup       Tag = '!' // self->self: one byte, no newline
)

func (t Tag) String() string {
	switch t {
	case Boot:
		return "BOOT"
	case Ping:
		return "PING"
	case Fork:
		return "FORK"
	case ExternalTerm:
		return "EXTERNAL_TERM"
	case Term:
		return "TERM"
	case Idle:
		return "IDLE"
	case Wakeup:
		return "WAKEUP"
	default:
		return "UNKNOWN"
	}
}

// Sentinel index values carried over fork_pipe.
const (
	ForkBeginRefork    = -1
	ForkReforkComplete = -2
	ForkRestartLegacy  = 0
)
