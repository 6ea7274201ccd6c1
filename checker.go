package rescheduler

import (
	"context"
	"sync"
	"time"
)

// checker is the auto-check loop: a ticker goroutine that invokes CheckNow
// every interval until stopped. Tick errors go to onError and never halt the
// loop.
type checker struct {
	s        *Scheduler
	onError  func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func startChecker(s *Scheduler, interval time.Duration, onError func(error)) *checker {
	c := &checker{
		s:       s,
		onError: onError,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.run(interval)
	return c
}

func (c *checker) run(interval time.Duration) {
	defer close(c.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			// The ticker may fire in the same instant stop is requested;
			// re-check so no tick begins after stop returns.
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.tick()
		}
	}
}

func (c *checker) tick() {
	if _, err := c.s.CheckNow(context.Background()); err != nil && c.onError != nil {
		c.onError(err)
	}
}

// stop requests cancellation and is safe to call repeatedly. A tick already
// running is allowed to finish; stop does not return until the loop
// goroutine has drained, so callers may release the scheduling connection
// afterwards without racing a tick.
func (c *checker) stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.done
}
