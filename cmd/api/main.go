package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/misterfifths/rescheduler"
	"github.com/misterfifths/rescheduler/internal/config"
	"github.com/misterfifths/rescheduler/internal/store"
	"github.com/misterfifths/rescheduler/internal/task"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("component", "api").Logger()

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
	defer sched.Close()

	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// schedule a task
	r.POST("/tasks", func(c *gin.Context) {
		var req struct {
			Type      string          `json:"type" binding:"required"`
			Body      json.RawMessage `json:"body" binding:"required"`
			ExecuteAt int64           `json:"execute_at"`
			DelayMS   int64           `json:"delay_ms"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		at := now
		switch {
		case req.ExecuteAt > 0:
			at = time.UnixMilli(req.ExecuteAt)
		case req.DelayMS > 0:
			at = now.Add(time.Duration(req.DelayMS) * time.Millisecond)
		}

		env := task.Envelope{
			ID:        uuid.NewString(),
			Type:      req.Type,
			Body:      req.Body,
			CreatedAt: now.UnixMilli(),
			ExecuteAt: at.UnixMilli(),
		}
		payload, err := env.Encode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if _, err := sched.EnqueueAt(c.Request.Context(), at, payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		_ = s.SetStatus(c.Request.Context(), env.ID, "scheduled", map[string]interface{}{
			"created_at": now.Unix(),
			"execute_at": at.UnixMilli(),
		})

		c.JSON(http.StatusAccepted, gin.H{"id": env.ID, "status": "accepted"})
	})

	// get status
	r.GET("/tasks/:id", func(c *gin.Context) {
		data, err := s.GetTask(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(data) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusOK, data)
	})

	r.GET("/stats", func(c *gin.Context) {
		n, err := sched.ScheduledCount(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scheduled": n})
	})

	// manual promotion, mostly useful with CHECK_INTERVAL=0
	r.POST("/check", func(c *gin.Context) {
		n, err := sched.CheckNow(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"promoted": n})
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
