package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soundtech/meeting-backend/config"
	"github.com/soundtech/meeting-backend/internal/realtime"
	"github.com/soundtech/meeting-backend/internal/recordings"
	"github.com/soundtech/meeting-backend/internal/rooms"
	"github.com/soundtech/meeting-backend/internal/store"
	"github.com/soundtech/meeting-backend/internal/token"
	"github.com/soundtech/meeting-backend/pkg/queue"
	"github.com/soundtech/meeting-backend/pkg/redis"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer st.Close()

	issuer, err := token.New(cfg.Token.Provider, cfg.Token.AppID, cfg.Token.AppSecret)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	containers, err := storage.ParseContainers(cfg.Media.AllowedContainers)
	if err != nil {
		logger.Fatal("allowed containers", zap.Error(err))
	}
	media, err := storage.New(ctx, cfg.Media.Backend, cfg.Media.Dir, cfg.S3(), logger)
	if err != nil {
		logger.Fatal("media store", zap.Error(err))
	}

	roomSvc := rooms.NewService(st, issuer, logger)
	recMgr := recordings.NewManager(st, media, containers, logger)

	var (
		pub realtime.RedisPublisher
		sub realtime.RedisSubscriber
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()

		bridge := realtime.NewRedisPubSub(rdb.Client, logger)
		pub, sub = bridge, bridge
		recMgr.SetReclaimQueue(queue.NewQueue(rdb.Client, logger))
	} else {
		logger.Info("redis disabled, room events stay on this instance")
	}
	hub := realtime.NewHub(logger, pub, sub)
	recMgr.SetEventPublisher(hub)

	router := newRouter(routerDeps{
		server:     cfg.Server,
		rooms:      rooms.NewHandler(roomSvc, logger),
		recordings: recordings.NewHandler(recMgr, cfg.Server.MaxUploadBytes(), logger),
		events: realtime.ServeWs(hub, realtime.NewUpgrader(cfg.Server.Origins()), func(ctx context.Context, roomID string) error {
			_, err := roomSvc.GetRoom(ctx, roomID)
			return err
		}, logger),
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
