package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/misterfifths/rescheduler"
	"github.com/misterfifths/rescheduler/internal/config"
	"github.com/misterfifths/rescheduler/internal/store"
	"github.com/misterfifths/rescheduler/internal/task"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("component", "worker").Logger()

	cfg := config.Load()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	s := store.New(rdb)

	sched, err := rescheduler.New(context.Background(), rescheduler.NewRedisConn(rdb), cfg.Queue, rescheduler.Options{
		CheckInterval: cfg.CheckInterval,
		ForceFallback: cfg.ForceFallback,
		OnError: func(err error) {
			logger.Error().Err(err).Msg("auto-check tick failed")
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler init failed")
	}

	// Pop blocks, so it gets its own connection.
	consumer := rescheduler.DialRedis(cfg.RedisAddr, cfg.RedisDB)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info().Msg("shutting down")
		sched.Stop()
		cancel()
	}()

	logger.Info().Str("queue", cfg.Queue).Msg("worker running")

	for ctx.Err() == nil {
		payload, ok, err := sched.Pop(ctx, consumer, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("pop failed")
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue // timeout, loop again
		}

		env, err := task.Decode(payload)
		if err != nil {
			logger.Error().Err(err).Str("payload", payload).Msg("bad envelope")
			continue
		}

		logger.Info().
			Str("id", env.ID).
			Str("type", env.Type).
			Time("due", env.ExecuteTime()).
			Msg("task delivered")

		_ = s.SetStatus(ctx, env.ID, "delivered", map[string]interface{}{
			"delivered_at": time.Now().Unix(),
		})
	}
}
