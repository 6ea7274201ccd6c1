package rescheduler

import (
	"context"
	"time"
)

// Conn is the contract the backing store must satisfy. It is the subset of
// Redis the scheduler orchestrates: a sorted set for pending payloads and a
// list for the destination queue. RedisConn implements it over go-redis; any
// other implementation works as long as the semantics below hold.
type Conn interface {
	// Ready probes the connection and reports server details. The scheduler
	// calls it once, at construction, to drive capability negotiation.
	Ready(ctx context.Context) (ServerInfo, error)

	// ZAdd upserts member into the sorted set at key with the given score,
	// returning the number of members newly created (0 when an existing
	// member was rescored).
	ZAdd(ctx context.Context, key string, score int64, member string) (int64, error)

	// ZRangeByScore returns all members with score <= max, ascending.
	ZRangeByScore(ctx context.Context, key string, max int64) ([]string, error)

	// ZRemRangeByScore removes all members with score <= max, returning the
	// number removed.
	ZRemRangeByScore(ctx context.Context, key string, max int64) (int64, error)

	// ZCard returns the cardinality of the sorted set at key.
	ZCard(ctx context.Context, key string) (int64, error)

	// RPush appends members to the list at key, preserving argument order.
	RPush(ctx context.Context, key string, members ...string) error

	// BLPop blocks until the list at key has a head element, then removes and
	// returns it. A zero timeout waits indefinitely. On timeout it returns
	// ok == false with a nil error.
	BLPop(ctx context.Context, timeout time.Duration, key string) (value string, ok bool, err error)
}

// Scripter is the optional atomic-execution capability. Connections that
// implement it can run promotion as one indivisible server-side step; the
// scheduler detects it by type assertion during capability negotiation.
type Scripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
}

// ServerInfo describes the backing server as reported by the readiness probe.
type ServerInfo struct {
	Version Version
}

// schedulerKey derives the holding-set key from the destination queue name.
func schedulerKey(queueName string) string {
	return queueName + "-scheduler"
}
