package spawn

import (
	"os"
	"testing"
)

func TestSpawnStartsAProcess(t *testing.T) {
	wwR, wwW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer wwR.Close()
	defer wwW.Close()

	cpR, cpW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer cpR.Close()
	defer cpW.Close()

	fpR, fpW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer fpR.Close()
	defer fpW.Close()

	proc, err := Spawn(Params{
		Role:  "worker",
		Index: 1,
		Phase: 0,
		Tag:   "",
		Pipes: ChildPipes{WorkerWriteW: wwW, CheckPipeR: cpR, ForkPipeR: fpR},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if proc.Pid <= 0 {
		t.Fatalf("got pid %d, want > 0", proc.Pid)
	}

	_ = proc.Kill()
	_, _ = proc.Wait()
}

func TestFdConstantsAreSequentialAfterStdio(t *testing.T) {
	if FdWorkerWrite != 3 || FdCheckPipe != 4 || FdForkPipe != 5 {
		t.Fatalf("fd constants changed: %d %d %d", FdWorkerWrite, FdCheckPipe, FdForkPipe)
	}
}

func TestInheritNamesMatchFixedSlots(t *testing.T) {
	p := Inherit()
	if p.WorkerWriteW.Fd() != uintptr(FdWorkerWrite) {
		t.Fatalf("got fd %d, want %d", p.WorkerWriteW.Fd(), FdWorkerWrite)
	}
	if p.CheckPipeR.Fd() != uintptr(FdCheckPipe) {
		t.Fatalf("got fd %d, want %d", p.CheckPipeR.Fd(), FdCheckPipe)
	}
	if p.ForkPipeR.Fd() != uintptr(FdForkPipe) {
		t.Fatalf("got fd %d, want %d", p.ForkPipeR.Fd(), FdForkPipe)
	}
}
