package supervisor

import (
	"testing"
	"time"

	"github.com/clustersup/cluster/internal/config"
	"github.com/clustersup/cluster/internal/handle"
	"github.com/clustersup/cluster/internal/osproc"
	"github.com/rs/zerolog"
)

func newPoolHandle(t *testing.T, index int) *handle.Handle {
	t.Helper()
	h := handle.New(index, 0, 1000+index, osproc.NewFake(1), zerolog.Nop())
	time.Sleep(time.Millisecond)
	return h
}

func TestLowestFreeIndexLocked(t *testing.T) {
	s := &Supervisor{workers: map[int]*handle.Handle{
		0: newPoolHandle(t, 0),
		1: newPoolHandle(t, 1),
		3: newPoolHandle(t, 3),
	}}
	if got := s.lowestFreeIndexLocked(); got != 2 {
		t.Fatalf("lowestFreeIndexLocked() = %d, want 2", got)
	}
}

func TestLowestFreeIndexLockedSkipsMold(t *testing.T) {
	s := &Supervisor{
		workers: map[int]*handle.Handle{0: newPoolHandle(t, 0)},
		mold:    newPoolHandle(t, 1),
	}
	if got := s.lowestFreeIndexLocked(); got != 2 {
		t.Fatalf("lowestFreeIndexLocked() = %d, want 2", got)
	}
}

func TestCullVictimsLockedOldest(t *testing.T) {
	workers := map[int]*handle.Handle{
		0: newPoolHandle(t, 0),
		1: newPoolHandle(t, 1),
		2: newPoolHandle(t, 2),
	}
	victims := cullVictimsLocked(workers, 2, config.CullOldest, false)
	if len(victims) != 2 {
		t.Fatalf("got %d victims, want 2", len(victims))
	}
	if victims[0].Index() != 0 || victims[1].Index() != 1 {
		t.Fatalf("expected oldest two (0,1) culled, got indices %d,%d", victims[0].Index(), victims[1].Index())
	}
}

func TestCullVictimsLockedYoungest(t *testing.T) {
	workers := map[int]*handle.Handle{
		0: newPoolHandle(t, 0),
		1: newPoolHandle(t, 1),
		2: newPoolHandle(t, 2),
	}
	victims := cullVictimsLocked(workers, 1, config.CullYoungest, false)
	if len(victims) != 1 || victims[0].Index() != 2 {
		t.Fatalf("expected youngest (2) culled, got %+v", victims)
	}
}

func TestCullVictimsLockedExcludesIndexZeroInForkWorkerMode(t *testing.T) {
	workers := map[int]*handle.Handle{
		0: newPoolHandle(t, 0),
		1: newPoolHandle(t, 1),
	}
	victims := cullVictimsLocked(workers, 5, config.CullOldest, true)
	if len(victims) != 1 || victims[0].Index() != 1 {
		t.Fatalf("expected only index 1 culled, got %+v", victims)
	}
}

func TestCullVictimsLockedNoneWhenNotOversized(t *testing.T) {
	workers := map[int]*handle.Handle{0: newPoolHandle(t, 0)}
	if victims := cullVictimsLocked(workers, 0, config.CullOldest, false); victims != nil {
		t.Fatalf("expected no victims, got %+v", victims)
	}
}
