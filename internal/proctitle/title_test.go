package proctitle

import "testing"

func TestBuildWithoutTag(t *testing.T) {
	got := Build("cluster", "worker", 2, 12345, "")
	want := "cluster: cluster worker 2: 12345"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildWithTag(t *testing.T) {
	got := Build("cluster", "master", 0, 1, "canary")
	want := "cluster: cluster master 0: 1 [canary]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSetDoesNotPanic(t *testing.T) {
	// Set is best-effort on every platform; it must never panic even if
	// /proc/self/comm (or its absence) misbehaves.
	Set(Build("cluster", "worker", 0, 1, ""))
}
