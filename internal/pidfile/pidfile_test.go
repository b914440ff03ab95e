package pidfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.pid")

	f, err := Write(path, 4242)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pidfile: %v", err)
	}
	if string(b) != "4242\n" {
		t.Fatalf("got %q, want %q", string(b), "4242\n")
	}

	f.Remove()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected pidfile to be removed, stat err = %v", err)
	}
}

func TestWriteEmptyPathIsNoop(t *testing.T) {
	f, err := Write("", 1)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Must not panic and must not touch the filesystem.
	f.Remove()
}

func TestRemoveNilReceiverIsSafe(t *testing.T) {
	var f *File
	f.Remove()
}

func TestWriteTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.pid")
	if err := os.WriteFile(path, []byte("stale-content-longer-than-new"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f, err := Write(path, 7)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	defer f.Remove()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pidfile: %v", err)
	}
	if string(b) != "7\n" {
		t.Fatalf("got %q, want %q", string(b), "7\n")
	}
}
