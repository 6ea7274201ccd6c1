// Package rescheduler defers delivery of opaque payloads onto a Redis list
// until a caller-chosen time. Pending payloads wait in a sorted set keyed by
// execution time; a promotion step moves everything that has come due onto
// the destination list, in execution-time order, where ordinary blocking
// consumers pick them up.
//
// When the server supports Lua scripting (Redis 2.6+), promotion runs as a
// single atomic script. Older servers fall back to a read/push/delete
// sequence that is not atomic as a whole; see CheckNow for the consequences.
//
// The connection given to New is treated as an exclusive resource. Consumers
// must use a separate connection for Pop, since its blocking wait would
// otherwise starve scheduling operations and the periodic checker.
package rescheduler
