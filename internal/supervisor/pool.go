package supervisor

import (
	"sort"

	"github.com/clustersup/cluster/internal/config"
	"github.com/clustersup/cluster/internal/handle"
)

// lowestFreeIndexLocked returns the smallest non-negative index not
// currently held by a live worker or the mold. Assumes s.mu held.
func (s *Supervisor) lowestFreeIndexLocked() int {
	for i := 0; ; i++ {
		if _, ok := s.workers[i]; ok {
			continue
		}
		if s.mold != nil && s.mold.Index() == i {
			continue
		}
		return i
	}
}

// cullVictimsLocked selects which live workers to terminate when the pool
// has more workers than configured. Index 0 is never a victim in
// fork-worker mode. Assumes s.mu held.
func cullVictimsLocked(workers map[int]*handle.Handle, diff int, strategy config.CullingStrategy, forkWorkerMode bool) []*handle.Handle {
	if diff <= 0 {
		return nil
	}

	candidates := make([]*handle.Handle, 0, len(workers))
	for idx, h := range workers {
		if forkWorkerMode && idx == 0 {
			continue
		}
		candidates = append(candidates, h)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartedAt().Before(candidates[j].StartedAt())
	})

	if diff > len(candidates) {
		diff = len(candidates)
	}

	switch strategy {
	case config.CullYoungest:
		// youngest = end of the oldest-first slice
		return candidates[len(candidates)-diff:]
	default: // CullOldest
		return candidates[:diff]
	}
}
