package osproc

import "syscall"

// Reaped is one child observed exiting by a non-blocking reap sweep.
type Reaped struct {
	Pid      int
	ExitCode int
}

// Reaper performs a non-blocking "reap all children" sweep: waitpid(-1,
// WNOHANG) in a loop until nothing more is ready.
type Reaper interface {
	ReapAll() []Reaped
}

type RealReaper struct{}

func (RealReaper) ReapAll() []Reaped {
	var out []Reaped
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if pid <= 0 || err != nil {
			return out
		}
		code := ws.ExitStatus()
		if ws.Signaled() {
			code = 128 + int(ws.Signal())
		}
		out = append(out, Reaped{Pid: pid, ExitCode: code})
	}
}
