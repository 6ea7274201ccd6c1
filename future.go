package rescheduler

import (
	"context"
	"time"
)

// Future is the deferred result of an asynchronous operation. It resolves
// exactly once, with the same value and error the synchronous form of the
// operation would have returned.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the operation completes and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// defer1 runs op on its own goroutine, resolving the returned future with
// op's result.
func defer1[T any](op func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.resolve(op())
	}()
	return f
}

// Async returns the deferred-invocation view of the scheduler: every public
// operation, returning a Future instead of blocking the caller. Repeated
// calls return the same view.
//
// Async operations share the scheduling connection, so at most one should be
// in flight at a time, exactly as with the synchronous forms. Pop remains
// the exception: it takes its own consumer connection and may overlap.
func (s *Scheduler) Async() *AsyncScheduler {
	s.asyncOnce.Do(func() {
		s.async = &AsyncScheduler{s: s}
	})
	return s.async
}

// AsyncScheduler mirrors Scheduler's operations as deferred values. Each
// method dispatches immediately and resolves its Future with the result and
// error shape of the corresponding synchronous method.
type AsyncScheduler struct {
	s *Scheduler
}

func (a *AsyncScheduler) EnqueueAt(ctx context.Context, at time.Time, payload string) *Future[bool] {
	return defer1(func() (bool, error) { return a.s.EnqueueAt(ctx, at, payload) })
}

func (a *AsyncScheduler) EnqueueIn(ctx context.Context, delay time.Duration, payload string) *Future[bool] {
	return defer1(func() (bool, error) { return a.s.EnqueueIn(ctx, delay, payload) })
}

func (a *AsyncScheduler) ScheduledCount(ctx context.Context) *Future[int64] {
	return defer1(func() (int64, error) { return a.s.ScheduledCount(ctx) })
}

func (a *AsyncScheduler) CheckNow(ctx context.Context) *Future[int] {
	return defer1(func() (int, error) { return a.s.CheckNow(ctx) })
}

func (a *AsyncScheduler) CheckUntil(ctx context.Context, max time.Time) *Future[int] {
	return defer1(func() (int, error) { return a.s.CheckUntil(ctx, max) })
}

// PopResult carries Pop's two-part outcome through a Future.
type PopResult struct {
	Payload string
	OK      bool
}

func (a *AsyncScheduler) Pop(ctx context.Context, consumer Conn, timeout time.Duration) *Future[PopResult] {
	return defer1(func() (PopResult, error) {
		payload, ok, err := a.s.Pop(ctx, consumer, timeout)
		return PopResult{Payload: payload, OK: ok}, err
	})
}
