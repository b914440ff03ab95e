//go:build linux

package osproc

import (
	"syscall"

	"github.com/oraoto/go-pidfd"
)

// PidFdReal is the Linux OS implementation. Alive opens a pidfd on the
// target pid: pidfd_open fails with ESRCH once the pid has exited, which
// closes the race Real.Alive leaves open against kill(pid, 0) on a
// recycled pid (the classic wait-vs-reap-vs-respawn window the
// check/reap/spawn cycle runs through on every tick).
type PidFdReal struct{}

func (PidFdReal) Signal(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

func (PidFdReal) Alive(pid int) bool {
	fd, err := pidfd.Open(pid, 0)
	if err != nil {
		return false
	}
	fd.Close()
	return true
}

func (PidFdReal) Getpid() int {
	return syscall.Getpid()
}

// NewPlatformOS returns the best OS implementation this platform supports.
func NewPlatformOS() OS {
	return PidFdReal{}
}
