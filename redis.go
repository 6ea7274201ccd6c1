package rescheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConn adapts a go-redis client to the Conn contract. It also
// implements Scripter, so schedulers built on it use atomic promotion
// whenever the server is new enough.
type RedisConn struct {
	rdb *redis.Client
}

var (
	_ Conn     = (*RedisConn)(nil)
	_ Scripter = (*RedisConn)(nil)
)

// NewRedisConn wraps an existing client. The client's lifecycle stays with
// the caller unless the conn is handed to a Scheduler and closed through it.
func NewRedisConn(rdb *redis.Client) *RedisConn {
	return &RedisConn{rdb: rdb}
}

// DialRedis opens a dedicated client for addr and wraps it. Useful for the
// separate consumer connection Pop requires.
func DialRedis(addr string, db int) *RedisConn {
	return NewRedisConn(redis.NewClient(&redis.Options{Addr: addr, DB: db}))
}

// Ready pings the server and reads its version from INFO.
func (c *RedisConn) Ready(ctx context.Context) (ServerInfo, error) {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return ServerInfo{}, err
	}
	raw, err := c.rdb.Info(ctx, "server").Result()
	if err != nil {
		return ServerInfo{}, err
	}
	v, err := parseInfoVersion(raw)
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{Version: v}, nil
}

func parseInfoVersion(info string) (Version, error) {
	for _, line := range strings.Split(info, "\n") {
		if rest, ok := strings.CutPrefix(line, "redis_version:"); ok {
			return ParseVersion(strings.TrimRight(rest, "\r"))
		}
	}
	return Version{}, errors.New("rescheduler: no redis_version in INFO reply")
}

func (c *RedisConn) ZAdd(ctx context.Context, key string, score int64, member string) (int64, error) {
	return c.rdb.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: member}).Result()
}

func (c *RedisConn) ZRangeByScore(ctx context.Context, key string, max int64) ([]string, error) {
	return c.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(max, 10),
	}).Result()
}

func (c *RedisConn) ZRemRangeByScore(ctx context.Context, key string, max int64) (int64, error) {
	return c.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(max, 10)).Result()
}

func (c *RedisConn) ZCard(ctx context.Context, key string) (int64, error) {
	return c.rdb.ZCard(ctx, key).Result()
}

func (c *RedisConn) RPush(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.rdb.RPush(ctx, key, args...).Err()
}

func (c *RedisConn) BLPop(ctx context.Context, timeout time.Duration, key string) (string, bool, error) {
	res, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// BLPOP replies [key, value].
	if len(res) != 2 {
		return "", false, fmt.Errorf("rescheduler: unexpected BLPOP reply of %d elements", len(res))
	}
	return res[1], true, nil
}

func (c *RedisConn) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	return c.rdb.Eval(ctx, script, keys, args...).Result()
}

// Close closes the underlying client.
func (c *RedisConn) Close() error {
	return c.rdb.Close()
}
