package logsetup

import (
	"strings"
	"testing"
)

func TestNewTagsRoleAndIndex(t *testing.T) {
	log := New("worker", 3)

	var buf strings.Builder
	log = log.Output(&buf)
	log.Info().Msg("booted")

	out := buf.String()
	if !strings.Contains(out, `"role":"worker"`) {
		t.Fatalf("expected role field in output, got %s", out)
	}
	if !strings.Contains(out, `"index":3`) {
		t.Fatalf("expected index field in output, got %s", out)
	}
}
