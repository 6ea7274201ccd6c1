package rescheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCheckInterval is the auto-check cadence used by DefaultOptions.
const DefaultCheckInterval = time.Minute

// Options configures a Scheduler. The zero value disables the auto-check
// loop and selects the atomic promotion path when the server supports it.
type Options struct {
	// CheckInterval is how often the auto-check loop promotes ready
	// payloads. Zero disables the loop; promotion then only happens through
	// explicit CheckNow calls.
	CheckInterval time.Duration

	// ForceFallback makes promotion always use the non-atomic multi-step
	// path, regardless of what the server supports.
	ForceFallback bool

	// OnError receives failures from auto-check ticks. Ticks have no caller
	// to return to, so this is the only place their errors surface. A failed
	// tick never stops subsequent ticks. Nil discards tick errors.
	OnError func(error)
}

// DefaultOptions returns Options with the auto-check loop enabled at
// DefaultCheckInterval.
func DefaultOptions() Options {
	return Options{CheckInterval: DefaultCheckInterval}
}

// Scheduler defers payload delivery onto the Redis list queueName until each
// payload's execution time. All item state lives in the backing store; the
// Scheduler itself is a stateless orchestrator and holds only the cached
// capability decision.
//
// The conn passed to New is exclusive to the Scheduler: no other caller may
// issue operations on it concurrently. That discipline is documented, not
// enforced.
type Scheduler struct {
	conn     Conn
	queueKey string
	schedKey string
	opts     Options

	// useAtomic is fixed at construction and never re-evaluated.
	useAtomic bool

	now func() time.Time

	checker *checker

	asyncOnce sync.Once
	async     *AsyncScheduler

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New probes conn for readiness, negotiates the promotion path and returns a
// Scheduler for the destination queue queueName. Pending payloads are held
// under the derived key "<queueName>-scheduler". When opts.CheckInterval is
// positive the auto-check loop starts immediately.
func New(ctx context.Context, conn Conn, queueName string, opts Options) (*Scheduler, error) {
	info, err := conn.Ready(ctx)
	if err != nil {
		return nil, fmt.Errorf("rescheduler: readiness probe: %w", err)
	}

	s := &Scheduler{
		conn:      conn,
		queueKey:  queueName,
		schedKey:  schedulerKey(queueName),
		opts:      opts,
		useAtomic: negotiateAtomic(conn, info, opts.ForceFallback),
		now:       time.Now,
	}
	if opts.CheckInterval > 0 {
		s.checker = startChecker(s, opts.CheckInterval, opts.OnError)
	}
	return s, nil
}

// EnqueueAt schedules payload for delivery at the given time. Scheduling an
// already-pending payload moves its execution time instead of duplicating
// it; created reports which of the two happened.
func (s *Scheduler) EnqueueAt(ctx context.Context, at time.Time, payload string) (created bool, err error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	n, err := s.conn.ZAdd(ctx, s.schedKey, at.UnixMilli(), payload)
	if err != nil {
		return false, fmt.Errorf("rescheduler: enqueue: %w", err)
	}
	return n == 1, nil
}

// EnqueueIn schedules payload for delivery after the given delay.
func (s *Scheduler) EnqueueIn(ctx context.Context, delay time.Duration, payload string) (created bool, err error) {
	return s.EnqueueAt(ctx, s.now().Add(delay), payload)
}

// ScheduledCount returns the number of payloads currently awaiting
// promotion. It reflects the holding set's cardinality at the moment of the
// call, independent of any promotion in progress.
func (s *Scheduler) ScheduledCount(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	n, err := s.conn.ZCard(ctx, s.schedKey)
	if err != nil {
		return 0, fmt.Errorf("rescheduler: scheduled count: %w", err)
	}
	return n, nil
}

// Pop blocks until a promoted payload is available at the head of the
// destination queue, removes it and returns it. A zero timeout waits
// indefinitely; on timeout ok is false with a nil error.
//
// consumer must not be the connection the Scheduler was built with: that
// connection may be engaged by the auto-check loop, and a blocking wait
// issued on it would stall all scheduling operations. Passing it is a usage
// error detected before any store access.
func (s *Scheduler) Pop(ctx context.Context, consumer Conn, timeout time.Duration) (payload string, ok bool, err error) {
	if s.closed.Load() {
		return "", false, ErrClosed
	}
	if consumer == s.conn {
		return "", false, ErrSharedConn
	}
	payload, ok, err = consumer.BLPop(ctx, timeout, s.queueKey)
	if err != nil {
		return "", false, fmt.Errorf("rescheduler: pop: %w", err)
	}
	return payload, ok, nil
}

// Stop cancels the auto-check loop. It is idempotent; a tick already
// executing finishes normally and Stop waits for it, so once Stop returns
// no tick is running and no further tick will begin. The Scheduler remains
// usable for explicit operations after Stop.
func (s *Scheduler) Stop() {
	if s.checker != nil {
		s.checker.stop()
	}
}

// Close stops the auto-check loop and, when the scheduling connection
// implements io.Closer, closes it. Consumer connections are owned by their
// callers and are not touched. Close is idempotent.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		s.Stop()
		s.closed.Store(true)
		if c, ok := s.conn.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}
