package pipeproto

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		tag     Tag
		pid     int
		payload string
	}{
		{"boot", Boot, 123, "4"},
		{"term", Term, 99, ""},
		{"ping", Ping, 7, `{"backlog":0,"running":1}`},
		{"external_term", ExternalTerm, 42, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if err := w.Write(tc.tag, tc.pid, tc.payload); err != nil {
				t.Fatalf("write: %v", err)
			}

			r := NewReader(&buf)
			msg, err := r.ReadMessage()
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			if msg.Tag != tc.tag || msg.Pid != tc.pid || msg.Payload != tc.payload {
				t.Fatalf("got %+v, want tag=%v pid=%d payload=%q", msg, tc.tag, tc.pid, tc.payload)
			}
		})
	}
}

func TestReadWakeupHasNoBody(t *testing.T) {
	buf := bytes.NewBufferString("!")
	r := NewReader(buf)

	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Tag != Wakeup {
		t.Fatalf("got tag %v, want WAKEUP", msg.Tag)
	}
}

func TestForkPipeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewForkWriter(&buf)
	for _, idx := range []int{ForkBeginRefork, ForkReforkComplete, ForkRestartLegacy, 3} {
		if err := w.Write(idx); err != nil {
			t.Fatalf("write %d: %v", idx, err)
		}
	}

	r := NewForkReader(&buf)
	for _, want := range []int{ForkBeginRefork, ForkReforkComplete, ForkRestartLegacy, 3} {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestMetricsJSONRoundTrip(t *testing.T) {
	m := Metrics{Backlog: 1, Running: 2, PoolCapacity: 4, MaxThreads: 16, RequestsCount: 1000, BusyThreads: 2}
	payload, err := m.EncodeJSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, raw, err := DecodeMetricsJSON(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
	if raw["requests_count"] != 1000 {
		t.Fatalf("raw map missing requests_count: %+v", raw)
	}
}

func TestMetricsEnvelopeRoundTrip(t *testing.T) {
	m := Metrics{RequestsCount: 500}
	b, err := MetricsEnvelope{Metrics: m}.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := UnmarshalMetricsEnvelope(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Metrics != m {
		t.Fatalf("got %+v, want %+v", got.Metrics, m)
	}
}
