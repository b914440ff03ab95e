// Package selfpipe implements the classic self-pipe trick: signal handlers
// perform only a non-blocking single-byte write, and the main loop selects
// on the read end alongside its other readables. Multiple pending signals
// coalesce into however many wakeups the pipe buffer happened to hold, so
// a consumer must always drain fully rather than assuming one byte per
// signal.
package selfpipe

import (
	"os"
	"syscall"
)

// Pipe is a self-pipe pair. The zero value is not usable; use New.
type Pipe struct {
	r *os.File
	w *os.File
}

func New() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	if err := syscall.SetNonblock(int(w.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	return &Pipe{r: r, w: w}, nil
}

// Read returns the read end, for use in a select/poll wait alongside other
// pipe fds.
func (p *Pipe) Read() *os.File { return p.r }

// Wake writes a single byte, best-effort. Safe to call from a signal
// handler: it never blocks and swallows EAGAIN when the pipe is full,
// since a full pipe already guarantees the main loop will wake up.
func (p *Pipe) Wake() {
	rc, err := p.w.SyscallConn()
	if err != nil {
		return
	}
	// A raw write on the O_NONBLOCK fd returns EAGAIN on a full pipe
	// instead of parking in the runtime poller the way os.File.Write does.
	_ = rc.Write(func(fd uintptr) bool {
		_, _ = syscall.Write(int(fd), []byte{'!'})
		return true
	})
}

// Drain empties any pending wakeup bytes. Call after observing the read
// end is readable, before re-entering the wait, so that a wakeup queued
// during the previous iteration's processing isn't lost nor does it cause
// an immediate spurious re-wake once drained.
func (p *Pipe) Drain() {
	buf := make([]byte, 64)
	for {
		n, err := p.r.Read(buf)
		if n == 0 || err != nil {
			return
		}
		if n < len(buf) {
			return
		}
	}
}

func (p *Pipe) Close() {
	p.r.Close()
	p.w.Close()
}
