// Package spawn starts a new cluster child process (worker or mold) by
// re-executing the current binary with a `--cluster-child` flag set,
// inheriting the shared pipe ends as extra file descriptors. Every spawn
// launches the exact same running binary at a specific role/index, so
// exec.Command plus ExtraFiles is enough; there's no need to bootstrap a
// fresh top-level process image from scratch.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
)

// ChildPipes are the three pipe ends every cluster child inherits,
// regardless of role: the write end of worker_write (shared, fan-in to
// master), the read end of check_pipe (parent-liveness watchdog), and the
// read end of fork_pipe (only consumed once/if this child is promoted to
// mold, but inherited unconditionally so re-promotion after a refork does
// not need to renegotiate descriptors).
type ChildPipes struct {
	WorkerWriteW *os.File
	CheckPipeR   *os.File
	ForkPipeR    *os.File
}

// fd 0,1,2 are stdio; extra fds land at 3,4,5 in this fixed order.
const (
	FdWorkerWrite = 3
	FdCheckPipe   = 4
	FdForkPipe    = 5
)

type Params struct {
	Role  string // "worker" or "mold"
	Index int
	Phase int
	Tag   string
	Pipes ChildPipes
}

// Spawn re-execs the current binary as a cluster child and returns its
// *os.Process. The caller is responsible for closing its own copies of
// any pipe ends the child doesn't need once Spawn returns.
func Spawn(p Params) (*os.Process, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("spawn: resolve executable: %w", err)
	}

	cmd := exec.Command(exe,
		"--cluster-child",
		"--role="+p.Role,
		fmt.Sprintf("--index=%d", p.Index),
		fmt.Sprintf("--phase=%d", p.Phase),
		"--tag="+p.Tag,
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{p.Pipes.WorkerWriteW, p.Pipes.CheckPipeR, p.Pipes.ForkPipeR}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn: start %s index=%d: %w", p.Role, p.Index, err)
	}
	return cmd.Process, nil
}

// Inherit reconstructs the ChildPipes a spawned child was given, reading
// the fixed fd slots Spawn wrote to ExtraFiles.
func Inherit() ChildPipes {
	return ChildPipes{
		WorkerWriteW: os.NewFile(uintptr(FdWorkerWrite), "worker_write"),
		CheckPipeR:   os.NewFile(uintptr(FdCheckPipe), "check_pipe"),
		ForkPipeR:    os.NewFile(uintptr(FdForkPipe), "fork_pipe"),
	}
}
