package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/database"
	"github.com/kamacharovs/aiof-asset/internal/event"
	"github.com/kamacharovs/aiof-asset/internal/queue"
	"github.com/kamacharovs/aiof-asset/internal/server"
	"github.com/kamacharovs/aiof-asset/internal/telemetry"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
)

const typeCacheTTL = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("API server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("API server exited properly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OtelEndpoint, cfg.OtelServiceName)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	db, err := database.Open(cfg.DB, logger, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var cache database.TypeCache
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		cache = database.NewRedisTypeCache(rdb, typeCacheTTL, logger)
	}

	repo, err := database.New(db, cache)
	if err != nil {
		return err
	}
	defer repo.Close()

	g, gctx := errgroup.WithContext(ctx)

	var emitter usecase.Emitter
	if cfg.Features.IsEnabled(ctx, config.FeatureEventing) {
		sender, closeSender, err := newSender(cfg, logger)
		if err != nil {
			return err
		}
		defer closeSender()

		dispatcher := event.NewChannelDispatcher(cfg.Eventing.BufferSize, sender, logger)
		g.Go(func() error {
			return dispatcher.Run(gctx)
		})
		emitter = event.NewEmitter(cfg.Features, dispatcher, logger)
		logger.Info("Eventing enabled", slog.String("mode", cfg.Eventing.Mode))
	}

	srv, err := server.NewServer(cfg, usecase.New(repo, emitter, logger), logger)
	if err != nil {
		return err
	}

	g.Go(func() error {
		logger.Info("API server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down API server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	return g.Wait()
}

// newSender delivers events straight to the event endpoint, or through the
// queue when EVENTING_MODE=queue.
func newSender(cfg config.Config, logger *slog.Logger) (event.Sender, func() error, error) {
	if cfg.Eventing.Mode == config.EventingModeQueue {
		if cfg.Redis.Addr() == "" {
			return nil, nil, fmt.Errorf("%s=%s requires %s", config.ENV_KEY_EVENTING_MODE, cfg.Eventing.Mode, config.ENV_KEY_REDIS_HOST)
		}
		client := queue.NewClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Eventing.MaxRetries, logger)
		return client, client.Close, nil
	}

	sink, err := event.NewSink(cfg.Eventing, nil, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create event sink: %w", err)
	}
	return sink, func() error { return nil }, nil
}
