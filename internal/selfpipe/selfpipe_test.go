package selfpipe

import (
	"testing"
	"time"
)

func TestWakeAndDrain(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	p.Wake()
	p.Wake()
	p.Wake()

	buf := make([]byte, 1)
	deadline := time.Now().Add(time.Second)
	if err := p.Read().SetReadDeadline(deadline); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	n, err := p.Read().Read(buf)
	if err != nil || n == 0 {
		t.Fatalf("expected readable wakeup byte, got n=%d err=%v", n, err)
	}

	p.Drain()

	if err := p.Read().SetReadDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, err = p.Read().Read(buf)
	if err == nil {
		t.Fatal("expected read to time out after full drain, got data instead")
	}
}

func TestWakeNeverBlocksWhenPipeIsFull(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1<<20; i++ {
			p.Wake()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wake blocked; self-pipe write end is not truly non-blocking")
	}
}
