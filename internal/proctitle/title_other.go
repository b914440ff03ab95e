//go:build !linux

package proctitle

// Set is a no-op outside Linux; /proc/self/comm has no portable
// equivalent and this module does not chase one.
func Set(title string) {}
