// Package stats builds the aggregated master view: phase, worker status,
// and boot progress, consumed by the (out-of-scope) control socket.
package stats

import "time"

// WorkerStat is the per-worker snapshot in Snapshot.Workers.
type WorkerStat struct {
	StartedAt   time.Time
	Pid         int
	Index       int
	Phase       int
	Booted      bool
	LastCheckin time.Time
	LastStatus  map[string]int
}

// Snapshot is the master's aggregated view: start timestamp, configured
// worker count, current phase, booted count, old-phase worker count, and
// a per-worker slice. In a child process the Workers slice is always
// empty.
type Snapshot struct {
	StartedAt     time.Time
	WorkerCount   int
	Phase         int
	BootedCount   int
	OldPhaseCount int
	Workers       []WorkerStat
}

// StartedAtISO8601 renders the master start time the way an external
// control-socket consumer expects it: UTC ISO-8601.
func (s Snapshot) StartedAtISO8601() string {
	return s.StartedAt.UTC().Format(time.RFC3339)
}
