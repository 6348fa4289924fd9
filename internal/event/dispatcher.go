package event

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrBufferFull = errors.New("event buffer is full")

// ChannelDispatcher queues envelopes in memory and delivers them from a
// single background loop, detached from the request that emitted them.
type ChannelDispatcher struct {
	ch     chan Envelope
	sender Sender
	logger *slog.Logger

	drainTimeout time.Duration
}

func NewChannelDispatcher(size int, sender Sender, logger *slog.Logger) *ChannelDispatcher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelDispatcher{
		ch:           make(chan Envelope, size),
		sender:       sender,
		logger:       logger,
		drainTimeout: 5 * time.Second,
	}
}

// Dispatch never blocks; a full buffer drops the envelope.
func (d *ChannelDispatcher) Dispatch(_ context.Context, env Envelope) error {
	select {
	case d.ch <- env:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run delivers envelopes until ctx is done, then flushes what is buffered
// within the drain timeout.
func (d *ChannelDispatcher) Run(ctx context.Context) error {
	for {
		select {
		case env := <-d.ch:
			d.send(ctx, env)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *ChannelDispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()
	for {
		select {
		case env := <-d.ch:
			d.send(ctx, env)
		default:
			return
		}
	}
}

func (d *ChannelDispatcher) send(ctx context.Context, env Envelope) {
	if err := d.sender.Send(ctx, env); err != nil {
		d.logger.ErrorContext(ctx, "event delivery failed",
			slog.String("event_type", string(env.EventType)),
			slog.Int("entity_id", env.Entity.ID),
			slog.String("err", err.Error()))
	}
}
