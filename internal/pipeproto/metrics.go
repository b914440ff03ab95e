package pipeproto

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Metrics is the engine metrics snapshot carried as the PING payload. The
// wire format on worker_write is JSON: a PING line reads "pid{json-metrics}",
// the JSON object immediately following the pid with no separator.
type Metrics struct {
	Backlog       int `json:"backlog"`
	Running       int `json:"running"`
	PoolCapacity  int `json:"pool_capacity"`
	MaxThreads    int `json:"max_threads"`
	RequestsCount int `json:"requests_count"`
	BusyThreads   int `json:"busy_threads"`
}

// EncodeJSON renders m as the compact JSON object a PING line carries.
func (m Metrics) EncodeJSON() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("pipeproto: encode metrics: %w", err)
	}
	return string(b), nil
}

// DecodeMetricsJSON parses the payload of a PING line into a Metrics value
// and, separately, into the generic last_status map a WorkerHandle keeps
// around (metric name -> integer).
func DecodeMetricsJSON(payload string) (Metrics, map[string]int, error) {
	var m Metrics
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Metrics{}, nil, fmt.Errorf("pipeproto: decode metrics: %w", err)
	}

	var raw map[string]int
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Metrics{}, nil, fmt.Errorf("pipeproto: decode metrics map: %w", err)
	}
	return m, raw, nil
}

// MetricsEnvelope is a msgpack-framed variant of Metrics, used by
// worker.Worker's optional metrics-snapshot sidecar file (see
// Config.MetricsSnapshotPath) rather than the worker_write wire format
// itself, which stays JSON text.
type MetricsEnvelope struct {
	Metrics Metrics
}

func (e MetricsEnvelope) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("pipeproto: marshal metrics envelope: %w", err)
	}
	return b, nil
}

func UnmarshalMetricsEnvelope(b []byte) (MetricsEnvelope, error) {
	var e MetricsEnvelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return MetricsEnvelope{}, fmt.Errorf("pipeproto: unmarshal metrics envelope: %w", err)
	}
	return e, nil
}
