package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks per-task status alongside the scheduler's own keys, so the
// API can answer "where is my task" without touching the holding set.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) SetStatus(ctx context.Context, taskID, status string, fields ...map[string]interface{}) error {
	key := "task:" + taskID

	data := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	}

	if len(fields) > 0 {
		for k, v := range fields[0] {
			data[k] = v
		}
	}

	return s.rdb.HSet(ctx, key, data).Err()
}

func (s *Store) GetTask(ctx context.Context, taskID string) (map[string]string, error) {
	key := "task:" + taskID
	return s.rdb.HGetAll(ctx, key).Result()
}
