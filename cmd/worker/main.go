// Package main runs the background worker that reclaims orphaned recording blobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soundtech/meeting-backend/config"
	"github.com/soundtech/meeting-backend/internal/store"
	"github.com/soundtech/meeting-backend/internal/worker"
	"github.com/soundtech/meeting-backend/pkg/queue"
	"github.com/soundtech/meeting-backend/pkg/redis"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

// requeueBatch caps how many dead jobs one scheduled requeue moves.
const requeueBatch = 100

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("worker needs REDIS_ADDR")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer st.Close()

	media, err := storage.New(ctx, cfg.Media.Backend, cfg.Media.Dir, cfg.S3(), logger)
	if err != nil {
		logger.Fatal("media store", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	reclaimer := worker.NewBlobReclaimer(jobQueue, media, st, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := cron.New()
	if spec := cfg.Worker.DeadLetterRequeue; spec != "" {
		_, err := sched.AddFunc(spec, func() {
			if _, err := jobQueue.RequeueDead(workerCtx, requeueBatch); err != nil {
				logger.Warn("requeue dead jobs", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("dead letter schedule", zap.String("spec", spec), zap.Error(err))
		}
	}
	sched.Start()

	done := make(chan struct{})
	go func() {
		reclaimer.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-sched.Stop().Done()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
