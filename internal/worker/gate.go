package worker

// restartGate is a bounded-queue restart gate: a counted semaphore
// holding at most two pending values, Continue (true) or Stop (false).
// The initial queue is [Continue, Stop]
// so the serving loop runs exactly once before stopping; beginRestart
// clears any pending value and re-pushes [Continue, Stop] so the loop
// runs one more serve cycle before stopping again.
type restartGate struct {
	ch chan bool
}

func newRestartGate() *restartGate {
	g := &restartGate{ch: make(chan bool, 2)}
	g.ch <- true
	g.ch <- false
	return g
}

// next blocks for the next queued value, or returns ok=false once the
// gate has been closed (worker shutting down for good).
func (g *restartGate) next() (v bool, ok bool) {
	v, ok = <-g.ch
	return v, ok
}

// beginRestart clears any pending value (non-blocking drain) and
// re-queues [Continue, Stop], requesting exactly one more serve cycle.
func (g *restartGate) beginRestart() {
	for {
		select {
		case <-g.ch:
			continue
		default:
		}
		break
	}
	g.ch <- true
	g.ch <- false
}

// stop clears the queue and pushes a single Stop, so the loop exits
// after (at most) finishing whatever serve cycle is already running.
func (g *restartGate) stop() {
	for {
		select {
		case <-g.ch:
			continue
		default:
		}
		break
	}
	g.ch <- false
}

func (g *restartGate) close() {
	close(g.ch)
}
