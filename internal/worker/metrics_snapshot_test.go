package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clustersup/cluster/internal/engine"
	"github.com/clustersup/cluster/internal/pipeproto"
)

func TestWriteMetricsSnapshotRoundTrips(t *testing.T) {
	w, readEnd := newTestWorker(t, engine.NewFake(engine.Metrics{}), false)
	defer readEnd.Close()

	path := filepath.Join(t.TempDir(), "metrics.msgpack")
	w.cfg.MetricsSnapshotPath = path

	want := pipeproto.Metrics{RequestsCount: 42, BusyThreads: 3}
	w.writeMetricsSnapshot(want)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	got, err := pipeproto.UnmarshalMetricsEnvelope(b)
	if err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got.Metrics != want {
		t.Fatalf("got %+v, want %+v", got.Metrics, want)
	}
}

func TestWriteMetricsSnapshotNoopWithoutPath(t *testing.T) {
	w, readEnd := newTestWorker(t, engine.NewFake(engine.Metrics{}), false)
	defer readEnd.Close()

	// Should not panic or attempt any filesystem access.
	w.writeMetricsSnapshot(pipeproto.Metrics{})
}
