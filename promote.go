package rescheduler

import (
	"context"
	"fmt"
	"time"
)

// promoteScript moves every ready payload from the holding set to the
// destination list in one server-side step. KEYS[1] is the holding set,
// KEYS[2] the destination list, ARGV[1] the maximum score. Returns the
// number of payloads moved. RPUSH runs in chunks of 1000 because unpack
// cannot exceed Lua's stack size; the script as a whole is still one
// atomic step.
const promoteScript = `
local ready = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if #ready == 0 then
	return 0
end
for i = 1, #ready, 1000 do
	redis.call('RPUSH', KEYS[2], unpack(ready, i, math.min(i + 999, #ready)))
end
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
return #ready
`

// CheckNow promotes every payload whose execution time has arrived. It is
// CheckUntil with the current time as the horizon.
func (s *Scheduler) CheckNow(ctx context.Context) (int, error) {
	return s.CheckUntil(ctx, s.now())
}

// CheckUntil promotes every payload whose execution time is at or before
// max, moving it from the holding set to the tail of the destination queue
// in ascending execution-time order, and returns how many were promoted.
// Nothing ready is not an error; the count is 0 and neither collection
// changes. A future horizon promotes payloads that are not yet due.
//
// On servers with scripting support promotion is atomic: no observer can see
// a payload removed from the holding set but not yet enqueued, or the
// reverse. On the fallback path the read, push and delete are separate
// commands, so a concurrent promoter can observe and re-promote the same
// payloads during the window. That duplication is an accepted property of
// the fallback path, not corrected here.
//
// Store errors propagate to the caller; there is no automatic retry.
func (s *Scheduler) CheckUntil(ctx context.Context, max time.Time) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if s.useAtomic {
		return s.promoteAtomic(ctx, max.UnixMilli())
	}
	return s.promoteFallback(ctx, max.UnixMilli())
}

func (s *Scheduler) promoteAtomic(ctx context.Context, max int64) (int, error) {
	res, err := s.conn.(Scripter).Eval(ctx, promoteScript, []string{s.schedKey, s.queueKey}, max)
	if err != nil {
		return 0, fmt.Errorf("rescheduler: promote: %w", err)
	}
	switch n := res.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("rescheduler: promote: unexpected script result %T", res)
	}
}

func (s *Scheduler) promoteFallback(ctx context.Context, max int64) (int, error) {
	ready, err := s.conn.ZRangeByScore(ctx, s.schedKey, max)
	if err != nil {
		return 0, fmt.Errorf("rescheduler: promote: range: %w", err)
	}
	if len(ready) == 0 {
		return 0, nil
	}
	if err := s.conn.RPush(ctx, s.queueKey, ready...); err != nil {
		return 0, fmt.Errorf("rescheduler: promote: push: %w", err)
	}
	if _, err := s.conn.ZRemRangeByScore(ctx, s.schedKey, max); err != nil {
		return 0, fmt.Errorf("rescheduler: promote: trim: %w", err)
	}
	return len(ready), nil
}
