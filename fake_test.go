package rescheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

// fakeConn is an in-memory stand-in for the backing store. It implements the
// Conn contract over maps and slices, with per-operation error injection and
// an operation log so tests can assert which path promotion took.
type fakeConn struct {
	mu      sync.Mutex
	version Version
	zsets   map[string]map[string]int64
	lists   map[string][]string
	errs    map[string]error
	ops     []string
	blpops  int
	closed  bool

	// gateEnter and gateWait, when set before use, let a test observe a
	// ZRangeByScore call starting and hold it open.
	gateEnter chan struct{}
	gateWait  chan struct{}
}

func newFakeConn(version string) *fakeConn {
	v, err := ParseVersion(version)
	if err != nil {
		panic(err)
	}
	return &fakeConn{
		version: v,
		zsets:   make(map[string]map[string]int64),
		lists:   make(map[string][]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeConn) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeConn) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeConn) blpopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blpops
}

func (f *fakeConn) Ready(context.Context) (ServerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs["ready"]; err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{Version: f.version}, nil
}

func (f *fakeConn) ZAdd(_ context.Context, key string, score int64, member string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "zadd")
	if err := f.errs["zadd"]; err != nil {
		return 0, err
	}
	return f.zadd(key, score, member), nil
}

func (f *fakeConn) zadd(key string, score int64, member string) int64 {
	zs := f.zsets[key]
	if zs == nil {
		zs = make(map[string]int64)
		f.zsets[key] = zs
	}
	_, existed := zs[member]
	zs[member] = score
	if existed {
		return 0
	}
	return 1
}

func (f *fakeConn) ZRangeByScore(_ context.Context, key string, max int64) ([]string, error) {
	if f.gateEnter != nil {
		select {
		case f.gateEnter <- struct{}{}:
		default:
		}
	}
	if f.gateWait != nil {
		<-f.gateWait
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "zrangebyscore")
	if err := f.errs["zrangebyscore"]; err != nil {
		return nil, err
	}
	return f.zrangeByScore(key, max), nil
}

func (f *fakeConn) zrangeByScore(key string, max int64) []string {
	type entry struct {
		member string
		score  int64
	}
	var ready []entry
	for m, sc := range f.zsets[key] {
		if sc <= max {
			ready = append(ready, entry{m, sc})
		}
	}
	// score order, ties by member, as Redis does
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].score != ready[j].score {
			return ready[i].score < ready[j].score
		}
		return ready[i].member < ready[j].member
	})
	out := make([]string, len(ready))
	for i, e := range ready {
		out[i] = e.member
	}
	return out
}

func (f *fakeConn) ZRemRangeByScore(_ context.Context, key string, max int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "zremrangebyscore")
	if err := f.errs["zremrangebyscore"]; err != nil {
		return 0, err
	}
	return f.zremRangeByScore(key, max), nil
}

func (f *fakeConn) zremRangeByScore(key string, max int64) int64 {
	var n int64
	for m, sc := range f.zsets[key] {
		if sc <= max {
			delete(f.zsets[key], m)
			n++
		}
	}
	return n
}

func (f *fakeConn) ZCard(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "zcard")
	if err := f.errs["zcard"]; err != nil {
		return 0, err
	}
	return int64(len(f.zsets[key])), nil
}

func (f *fakeConn) RPush(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "rpush")
	if err := f.errs["rpush"]; err != nil {
		return err
	}
	f.lists[key] = append(f.lists[key], members...)
	return nil
}

func (f *fakeConn) BLPop(_ context.Context, timeout time.Duration, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blpops++
	f.ops = append(f.ops, "blpop")
	if err := f.errs["blpop"]; err != nil {
		return "", false, err
	}
	if l := f.lists[key]; len(l) > 0 {
		head := l[0]
		f.lists[key] = l[1:]
		return head, true, nil
	}
	// nothing buffered: report an immediate timeout rather than blocking
	return "", false, nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) list(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lists[key]...)
}

func (f *fakeConn) scheduled(key string) map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.zsets[key]))
	for m, sc := range f.zsets[key] {
		out[m] = sc
	}
	return out
}

// fakeScriptConn adds the Scripter capability: Eval runs the promotion
// semantics under one lock, indivisible as far as any other fake operation
// can observe.
type fakeScriptConn struct {
	*fakeConn
	evals int
}

func newFakeScriptConn(version string) *fakeScriptConn {
	return &fakeScriptConn{fakeConn: newFakeConn(version)}
}

func (f *fakeScriptConn) Eval(_ context.Context, _ string, keys []string, args ...any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals++
	f.ops = append(f.ops, "eval")
	if err := f.errs["eval"]; err != nil {
		return nil, err
	}
	max := args[0].(int64)
	ready := f.zrangeByScore(keys[0], max)
	if len(ready) > 0 {
		f.lists[keys[1]] = append(f.lists[keys[1]], ready...)
		f.zremRangeByScore(keys[0], max)
	}
	return int64(len(ready)), nil
}

func (f *fakeScriptConn) evalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evals
}
