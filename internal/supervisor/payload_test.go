package supervisor

import "testing"

func TestParseIndexPayload(t *testing.T) {
	idx, err := parseIndexPayload("3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 3 {
		t.Fatalf("got %d, want 3", idx)
	}
}

func TestParseIndexPayloadMalformed(t *testing.T) {
	if _, err := parseIndexPayload("not-a-number"); err == nil {
		t.Fatal("expected an error for malformed payload")
	}
}
