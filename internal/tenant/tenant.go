// Package tenant carries the caller identity through a request.
package tenant

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/config"
)

var ErrNoTenant = errors.New("tenant not found in context")

// Tenant is built once per request from a verified identity and is read-only
// afterwards.
type Tenant struct {
	UserID    int       `json:"user_id"`
	ClientID  int       `json:"client_id"`
	PublicKey uuid.UUID `json:"public_key"`
	IP        string    `json:"-"`
}

// TenantID is the owner id applied to every row filter. Service clients
// without a user fall back to their client id.
func (t Tenant) TenantID() int {
	if t.UserID == 0 {
		return t.ClientID
	}
	return t.UserID
}

// Log renders the tenant for log lines.
func (t Tenant) Log() string {
	b, _ := json.Marshal(t)
	return string(b)
}

func (t Tenant) Valid() bool {
	return t.TenantID() > 0
}

func NewContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, config.CTX_KEY_TENANT, t)
}

func FromContext(ctx context.Context) (Tenant, error) {
	t, ok := ctx.Value(config.CTX_KEY_TENANT).(Tenant)
	if !ok || !t.Valid() {
		return Tenant{}, ErrNoTenant
	}
	return t, nil
}
