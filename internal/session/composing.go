package session

import (
	"sync"
	"time"
)

// Composing is the "mentor is typing" indicator. While active it emits a
// pulse at a fixed interval so renderers can animate a typing affordance.
// The ticker goroutine is owned by the indicator and released by Stop.
type Composing struct {
	mu       sync.Mutex
	interval time.Duration
	pulse    func(time.Time)
	stop     chan struct{}
	done     chan struct{}
}

// NewComposing creates an inactive indicator. pulse may be nil; an interval
// <= 0 disables pulses but the indicator still reports its state.
func NewComposing(interval time.Duration, pulse func(time.Time)) *Composing {
	return &Composing{interval: interval, pulse: pulse}
}

// Start activates the indicator. Starting an active indicator is a no-op.
func (c *Composing) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	if c.interval <= 0 || c.pulse == nil {
		close(c.done)
		return
	}
	go c.run(c.stop, c.done)
}

func (c *Composing) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			c.pulse(t)
		}
	}
}

// Stop deactivates the indicator and waits for its goroutine to exit.
// Stopping an inactive indicator is a no-op.
func (c *Composing) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Active reports whether the indicator is on.
func (c *Composing) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}
