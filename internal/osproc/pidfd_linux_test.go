//go:build linux

package osproc

import (
	"os/exec"
	"testing"
)

func TestPidFdRealAliveForCurrentProcess(t *testing.T) {
	impl := PidFdReal{}
	if !impl.Alive(impl.Getpid()) {
		t.Fatal("expected current process to be alive")
	}
}

func TestPidFdRealDeadAfterExit(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}

	impl := PidFdReal{}
	if impl.Alive(cmd.Process.Pid) {
		t.Fatal("expected exited process to be reported dead")
	}
}

func TestNewPlatformOSReturnsPidFdOnLinux(t *testing.T) {
	impl := NewPlatformOS()
	if _, ok := impl.(PidFdReal); !ok {
		t.Fatalf("got %T, want PidFdReal", impl)
	}
}
