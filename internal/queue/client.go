package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/kamacharovs/aiof-asset/internal/event"
	"github.com/kamacharovs/aiof-asset/internal/queue/handlers"
)

// Client wraps asynq.Client for enqueuing tasks
type Client struct {
	client     *asynq.Client
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a new queue client
func NewClient(redisAddr string, redisPassword string, maxRetries int, logger *slog.Logger) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
	})
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client:     client,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Send enqueues the envelope for delivery by the worker.
func (c *Client) Send(ctx context.Context, env event.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	task := asynq.NewTask(handlers.TypeEmitEvent, payload, asynq.MaxRetry(c.maxRetries))

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.DebugContext(ctx, "enqueued event",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("event_type", string(env.EventType)))
	return nil
}
