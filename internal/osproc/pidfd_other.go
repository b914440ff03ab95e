//go:build !linux

package osproc

// NewPlatformOS returns the best OS implementation this platform supports.
// pidfd is Linux-only; elsewhere Real's kill(pid, 0) liveness check is as
// good as it gets.
func NewPlatformOS() OS {
	return Real{}
}
