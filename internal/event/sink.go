package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kamacharovs/aiof-asset/internal/config"
	"golang.org/x/time/rate"
)

// StatusError is a non-2xx answer from the event endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("event endpoint responded %d %s", e.Code, http.StatusText(e.Code))
}

// IsPermanent reports whether redelivering the envelope cannot succeed.
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code < http.StatusInternalServerError
}

// Sender delivers one envelope synchronously.
type Sender interface {
	Send(context.Context, Envelope) error
}

// Sink POSTs envelopes to {base}/emit. Transport failures and 5xx answers are
// retried with exponential backoff; other non-2xx answers are final.
type Sink struct {
	client     *http.Client
	endpoint   string
	headerName string
	key        string
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger

	initialInterval time.Duration
}

func NewSink(cfg config.EventingConfig, client *http.Client, logger *slog.Logger) (*Sink, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("event sink requires a base url")
	}
	endpoint, err := url.JoinPath(cfg.BaseURL, "emit")
	if err != nil {
		return nil, fmt.Errorf("invalid event base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sink{
		client:          client,
		endpoint:        endpoint,
		headerName:      cfg.FunctionKeyHeaderName,
		key:             cfg.FunctionKey,
		maxRetries:      cfg.MaxRetries,
		logger:          logger,
		initialInterval: 500 * time.Millisecond,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s, nil
}

func (s *Sink) Send(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal event: %w", err))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, s.post(ctx, body)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.WarnContext(ctx, "retrying event delivery",
				slog.String("event_type", string(env.EventType)),
				slog.Int("attempt", attempt),
				slog.Duration("next", next),
				slog.String("err", err.Error()))
		}),
	)
	if err != nil {
		return fmt.Errorf("deliver %s for entity %d: %w", env.EventType, env.Entity.ID, err)
	}

	s.logger.InfoContext(ctx, "event delivered",
		slog.String("event_type", string(env.EventType)),
		slog.Int("entity_id", env.Entity.ID),
		slog.Int("attempts", attempt))
	return nil
}

func (s *Sink) post(ctx context.Context, body []byte) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.headerName != "" && s.key != "" {
		req.Header.Set(s.headerName, s.key)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode >= http.StatusInternalServerError:
		return &StatusError{Code: res.StatusCode}
	default:
		return backoff.Permanent(&StatusError{Code: res.StatusCode})
	}
}
