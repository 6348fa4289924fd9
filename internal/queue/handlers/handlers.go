package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/kamacharovs/aiof-asset/internal/event"
)

const TypeEmitEvent = "event:emit"

type Handlers struct {
	sink   event.Sender
	logger *slog.Logger
}

func NewHandlers(sink event.Sender, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		sink:   sink,
		logger: logger,
	}
}

// HandleEmitEvent delivers one queued envelope. Answers that cannot succeed on
// redelivery skip the asynq retries.
func (h *Handlers) HandleEmitEvent(ctx context.Context, task *asynq.Task) error {
	var env event.Envelope
	if err := json.Unmarshal(task.Payload(), &env); err != nil {
		h.logger.ErrorContext(ctx, "invalid event payload", slog.String("err", err.Error()))
		return fmt.Errorf("unmarshal event: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.sink.Send(ctx, env); err != nil {
		h.logger.ErrorContext(ctx, "event delivery failed",
			slog.String("event_type", string(env.EventType)),
			slog.Int("entity_id", env.Entity.ID),
			slog.String("err", err.Error()))
		if event.IsPermanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
