package worker

import "testing"

func TestGateInitialSequenceRunsOnceThenStops(t *testing.T) {
	g := newRestartGate()

	v, ok := g.next()
	if !ok || v != true {
		t.Fatalf("first pop: got (%v,%v), want (true,true)", v, ok)
	}
	v, ok = g.next()
	if !ok || v != false {
		t.Fatalf("second pop: got (%v,%v), want (false,true)", v, ok)
	}
}

func TestGateBeginRestartClearsAndRequeues(t *testing.T) {
	g := newRestartGate()
	g.next() // consume the initial true

	g.beginRestart()

	v, ok := g.next()
	if !ok || v != true {
		t.Fatalf("after beginRestart: got (%v,%v), want (true,true)", v, ok)
	}
	v, ok = g.next()
	if !ok || v != false {
		t.Fatalf("after beginRestart: got (%v,%v), want (false,true)", v, ok)
	}
}

func TestGateStopDropsPendingContinue(t *testing.T) {
	g := newRestartGate()
	g.stop()

	v, ok := g.next()
	if !ok || v != false {
		t.Fatalf("got (%v,%v), want (false,true)", v, ok)
	}
}

func TestGateCloseEndsIteration(t *testing.T) {
	g := newRestartGate()
	g.next()
	g.next()
	g.close()

	_, ok := g.next()
	if ok {
		t.Fatalf("expected closed gate to report ok=false")
	}
}
