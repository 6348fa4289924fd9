package queue

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/event"
	"github.com/kamacharovs/aiof-asset/internal/queue/handlers"
)

// Worker delivers queued events to the event endpoint.
type Worker struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	logger      *slog.Logger
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(cfg config.Config, logger *slog.Logger) (*Worker, error) {
	logger.Info("Initializing worker dependencies...")

	if cfg.Redis.Addr() == "" {
		return nil, fmt.Errorf("worker requires %s", config.ENV_KEY_REDIS_HOST)
	}

	sink, err := event.NewSink(cfg.Eventing, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event sink: %w", err)
	}

	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Logger:      newAsynqLogger(logger),
		},
	)

	mux := asynq.NewServeMux()

	h := handlers.NewHandlers(sink, logger)

	// Register task handlers - one line per task type
	mux.HandleFunc(handlers.TypeEmitEvent, h.HandleEmitEvent)

	logger.Info("Worker registered handlers", slog.String("types", handlers.TypeEmitEvent))

	return &Worker{
		asynqServer: asynqServer,
		mux:         mux,
		logger:      logger,
	}, nil
}

// Start starts the worker server
func (w *Worker) Start() error {
	w.logger.Info("Worker started successfully")
	return w.asynqServer.Start(w.mux)
}

// Stop stops the worker server gracefully
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.asynqServer.Shutdown()
}

// asynqLogger routes asynq's internal logs through slog.
type asynqLogger struct {
	l *slog.Logger
}

func newAsynqLogger(l *slog.Logger) asynqLogger {
	return asynqLogger{l: l.With(slog.String("component", "asynq"))}
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
