package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantID(t *testing.T) {
	assert.Equal(t, 7, Tenant{UserID: 7, ClientID: 2}.TenantID())
	assert.Equal(t, 2, Tenant{ClientID: 2}.TenantID())
	assert.False(t, Tenant{}.Valid())
}

func TestContextRoundTrip(t *testing.T) {
	pk := uuid.New()
	ctx := NewContext(context.Background(), Tenant{UserID: 1, PublicKey: pk, IP: "10.0.0.1"})

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TenantID())
	assert.Equal(t, pk, got.PublicKey)
	assert.Equal(t, "10.0.0.1", got.IP)

	_, err = FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoTenant)

	_, err = FromContext(NewContext(context.Background(), Tenant{}))
	assert.ErrorIs(t, err, ErrNoTenant)
}

func TestLog(t *testing.T) {
	pk := uuid.MustParse("581f3ce6-cf2a-42a5-828f-157a2bfab763")
	log := Tenant{UserID: 1, ClientID: 3, PublicKey: pk, IP: "127.0.0.1"}.Log()

	assert.JSONEq(t, `{"user_id":1,"client_id":3,"public_key":"581f3ce6-cf2a-42a5-828f-157a2bfab763"}`, log)
}
