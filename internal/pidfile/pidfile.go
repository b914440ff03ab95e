// Package pidfile persists the master's own pid to a state file on boot
// and removes it on clean shutdown, grounded on the fpm-style master's
// writePIDFile/cleanup idiom.
package pidfile

import (
	"fmt"
	"os"
)

type File struct {
	path string
}

// Write creates path (truncating if present) with the current pid plus a
// trailing newline. An empty path disables the pidfile entirely.
func Write(path string, pid int) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0o644); err != nil {
		return nil, fmt.Errorf("pidfile: write %s: %w", path, err)
	}
	return &File{path: path}, nil
}

// Remove deletes the pidfile if one was written. Safe to call on a zero
// value (no-op).
func (f *File) Remove() {
	if f == nil || f.path == "" {
		return
	}
	_ = os.Remove(f.path)
}
