package simulator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/slamcore/internal/timeutil"
)

// FixedTimestep is the simulator's integration step: 1/30s, matching the
// reference desktop and wasm simulator loops.
const FixedTimestep = 1.0 / 30.0

// Loop drives a Simulator at a fixed timestep, accumulating real elapsed
// time and running as many Tick(FixedTimestep) calls as needed to catch up
// ("fix your timestep"). It owns a background goroutine when Start is
// called; embedded or single-threaded hosts should instead call Step
// directly from their own driving loop.
type Loop struct {
	sim   *Simulator
	clock timeutil.Clock

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewLoop creates a Loop for sim, paced by clock.
func NewLoop(sim *Simulator, clock timeutil.Clock) *Loop {
	return &Loop{sim: sim, clock: clock}
}

// Step runs a single Tick(dt) directly on the caller's goroutine, the entry
// point for cooperative (embedded/single-core/web) hosts that drive their
// own loop instead of spawning a background thread.
func (l *Loop) Step(dt float64) { l.sim.Tick(dt) }

// Start spawns a background goroutine that ticks the simulator at
// FixedTimestep intervals, accumulating elapsed wall-clock time between
// iterations. It is a no-op if already running.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.run(l.stopCh, l.doneCh)
}

func (l *Loop) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	dt := FixedTimestep
	currentTime := l.clock.Now()
	accumulator := 0.0

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		now := l.clock.Now()
		frameTime := now.Sub(currentTime).Seconds()
		currentTime = now
		accumulator += frameTime

		for accumulator >= dt {
			l.sim.Tick(dt)
			accumulator -= dt
		}

		l.clock.Sleep(time.Duration(dt * float64(time.Second)))
	}
}

// Stop halts the background goroutine started by Start and waits for it to
// exit. It is a no-op if the loop was never started or already stopped.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	close(l.stopCh)
	<-l.doneCh
}
