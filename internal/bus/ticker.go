package bus

import (
	"sync"
	"time"

	"github.com/banshee-data/slamcore/internal/timeutil"
)

// DefaultTickTimeout bounds how long the Ticker waits for a publish signal
// before ticking anyway, so a slow producer doesn't starve delivery forever.
const DefaultTickTimeout = 500 * time.Millisecond

// Ticker drives Bus.Tick on a background goroutine: it wakes on every
// publish signal, or after a bounded timeout if none arrives, processes the
// queued messages, then calls waker so a caller (e.g. a UI redraw or another
// goroutine waiting on a condition) can react to newly delivered messages.
type Ticker struct {
	bus     *Bus
	clock   timeutil.Clock
	waker   func()
	timeout time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewTicker starts a background goroutine that repeatedly ticks b, waiting
// up to DefaultTickTimeout for a publish signal between ticks. waker may be
// nil.
func NewTicker(b *Bus, clock timeutil.Clock, waker func()) *Ticker {
	return NewTickerWithTimeout(b, clock, waker, DefaultTickTimeout)
}

// NewTickerWithTimeout is NewTicker with an explicit wait timeout, for
// callers that source it from a TuningConfig rather than the default.
// timeout <= 0 falls back to DefaultTickTimeout.
func NewTickerWithTimeout(b *Bus, clock timeutil.Clock, waker func(), timeout time.Duration) *Ticker {
	if waker == nil {
		waker = func() {}
	}
	if timeout <= 0 {
		timeout = DefaultTickTimeout
	}
	t := &Ticker{
		bus:     b,
		clock:   clock,
		waker:   waker,
		timeout: timeout,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Ticker) run() {
	defer close(t.done)

	timeoutTicker := t.clock.NewTicker(t.timeout)
	defer timeoutTicker.Stop()

	for {
		select {
		case <-t.bus.signal:
		case <-timeoutTicker.C():
		case <-t.stopCh:
			return
		}

		select {
		case <-t.stopCh:
			return
		default:
		}

		t.bus.Tick()
		t.waker()
	}
}

// Stop halts the ticker and waits for its goroutine to exit.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	<-t.done
}
