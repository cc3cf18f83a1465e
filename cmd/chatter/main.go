package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahqrt/chatter-backend/handlers"
	"github.com/ahqrt/chatter-backend/internal/config"
	"github.com/ahqrt/chatter-backend/internal/database"
	"github.com/ahqrt/chatter-backend/internal/sessions"
	"github.com/ahqrt/chatter-backend/internal/users"
	"github.com/ahqrt/chatter-backend/pkg/logger"
	"github.com/ahqrt/chatter-backend/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}

	var client *mongo.Client
	if cfg.MongoDB.URI != "" {
		client, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts)
		if err != nil {
			logger.Warnf("could not connect to MongoDB, continuing without it: %v", err)
			client = nil
		}
	}
	if client != nil {
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		db := client.Database(cfg.MongoDB.Database)
		if err := users.EnsureIndexes(ctx, db.Collection(users.CollectionName)); err != nil {
			logger.Warnf("failed to ensure user indexes: %v", err)
		}
		if err := sessions.EnsureIndexes(ctx, db.Collection(sessions.CollectionName)); err != nil {
			logger.Warnf("failed to ensure session indexes: %v", err)
		}
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		logger.Infof("Using MongoDB database %q", cfg.MongoDB.Database)
	} else {
		logger.Warnf("MONGODB_URI not usable; no indexes prepared")
	}

	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rc.Close()
		srepo := sessions.NewRedisRepository(rc, cfg.Sessions.KeyPrefix)
		if err := srepo.Ping(ctx); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		}
		checks["redis"] = srepo.Ping
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	handlers.NewHealthHandler(checks, prometheus.DefaultGatherer).Register(r)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting chatter backend on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
