// Package event builds and delivers asset domain events.
package event

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/tenant"
)

type Type string

const (
	AssetAdded   Type = "AssetAdded"
	AssetUpdated Type = "AssetUpdated"
	AssetDeleted Type = "AssetDeleted"
)

type Envelope struct {
	EventType Type   `json:"eventType"`
	Source    Source `json:"source"`
	User      User   `json:"user"`
	Entity    Entity `json:"entity"`
}

type Source struct {
	Api string `json:"api"`
	Ip  string `json:"ip"`
}

type User struct {
	ID        int       `json:"id"`
	PublicKey uuid.UUID `json:"publicKey"`
}

type Entity struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Dispatcher hands envelopes to a delivery mechanism without blocking.
type Dispatcher interface {
	Dispatch(context.Context, Envelope) error
}

// Emitter stamps envelopes with the caller and hands them to a dispatcher
// when eventing is enabled. Failures are logged and never returned.
type Emitter struct {
	features   config.Features
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewEmitter(features config.Features, dispatcher Dispatcher, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{features: features, dispatcher: dispatcher, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, typ Type, entity Entity) {
	if e == nil || e.dispatcher == nil || !e.features.IsEnabled(ctx, config.FeatureEventing) {
		return
	}

	t, err := tenant.FromContext(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "event without tenant dropped",
			slog.String("event_type", string(typ)),
			slog.Int("entity_id", entity.ID))
		return
	}

	env := Envelope{
		EventType: typ,
		Source:    Source{Api: config.ApiName, Ip: t.IP},
		User:      User{ID: t.TenantID(), PublicKey: t.PublicKey},
		Entity:    entity,
	}
	if err := e.dispatcher.Dispatch(ctx, env); err != nil {
		e.logger.ErrorContext(ctx, "failed to dispatch event",
			slog.String("event_type", string(typ)),
			slog.Int("entity_id", entity.ID),
			slog.String("err", err.Error()))
	}
}
