package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/database"
	"github.com/kamacharovs/aiof-asset/internal/event"
	"github.com/kamacharovs/aiof-asset/internal/tenant"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, typ event.Type, entity event.Entity) {
	m.Called(ctx, typ, entity)
}

type fixture struct {
	uc     usecase.Usecase
	events *mockEmitter
	logs   *bytes.Buffer
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := database.Open(config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"}, slog.New(slog.NewTextHandler(io.Discard, nil)), "ERROR")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	repo, err := database.New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	events := &mockEmitter{}
	events.On("Emit", mock.Anything, mock.Anything, mock.Anything).Return()

	logs := &bytes.Buffer{}
	uc := usecase.New(repo, events, slog.New(slog.NewJSONHandler(logs, nil)))

	return fixture{uc: uc, events: events, logs: logs}
}

func asUser(id int) context.Context {
	return tenant.NewContext(context.Background(), tenant.Tenant{UserID: id, IP: "127.0.0.1"})
}

func ptr[T any](v T) *T { return &v }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func vti() usecase.AssetDto {
	return usecase.AssetDto{
		Name:  ptr("VTI"),
		Value: dec("10000"),
		Stock: &usecase.AssetStockDto{
			TickerSymbol:  ptr("VTI"),
			Shares:        dec("50"),
			ExpenseRatio:  dec("0.0003"),
			DividendYield: dec("0.015"),
		},
	}
}

func car(value string) usecase.AssetDto {
	return usecase.AssetDto{
		Name:     ptr("car"),
		TypeName: ptr(usecase.TypeCar),
		Value:    dec(value),
	}
}

func TestStock_AddAndUpdate(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Stocks().Add(ctx, vti())
	require.NoError(t, err)
	assert.Equal(t, usecase.TypeStock, added.TypeName)
	assert.Equal(t, usecase.KindStock, added.Kind())
	assert.Equal(t, 1, added.UserID)
	require.Len(t, added.Snapshots, 1)
	assert.True(t, added.Snapshots[0].ValueChange.Valid)
	assert.True(t, decimal.Zero.Equal(added.Snapshots[0].ValueChange.Decimal))

	updated, err := f.uc.Stocks().Update(ctx, added.ID, usecase.AssetDto{Value: dec("10500")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10500).Equal(updated.Value))
	require.Len(t, updated.Snapshots, 2)
	assert.True(t, decimal.NewFromInt(500).Equal(updated.Snapshots[0].ValueChange.Decimal))
	assert.Equal(t, "VTI", updated.Stock.TickerSymbol)

	f.events.AssertCalled(t, "Emit", mock.Anything, event.AssetAdded, mock.MatchedBy(func(e event.Entity) bool {
		return e.ID == added.ID && e.Type == "asset_stock"
	}))
	f.events.AssertCalled(t, "Emit", mock.Anything, event.AssetUpdated, mock.Anything)
}

func TestGet_TenantIsolation(t *testing.T) {
	f := setup(t)

	added, err := f.uc.Assets().Add(asUser(1), car("15000"))
	require.NoError(t, err)

	_, err = f.uc.Assets().Get(asUser(2), added.ID, usecase.SnapshotsOption{})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = f.uc.Assets().Update(asUser(2), added.ID, usecase.AssetDto{Value: dec("1")})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	assert.ErrorIs(t, f.uc.Assets().Delete(asUser(2), added.ID), usecase.ErrNotFound)

	list, err := f.uc.Assets().List(asUser(2), usecase.ListOption{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdate_LogsOwner(t *testing.T) {
	f := setup(t)
	ctx := asUser(3)

	added, err := f.uc.Assets().Add(ctx, car("100"))
	require.NoError(t, err)
	_, err = f.uc.Assets().Update(ctx, added.ID, usecase.AssetDto{Value: dec("150")})
	require.NoError(t, err)

	var found bool
	lines := json.NewDecoder(f.logs)
	for lines.More() {
		var line map[string]any
		require.NoError(t, lines.Decode(&line))
		if line["msg"] != "Updated Asset=asset" {
			continue
		}
		found = true
		assert.EqualValues(t, added.ID, line["asset_id"])
		assert.EqualValues(t, 3, line["user_id"])
		assert.Equal(t, added.PublicKey.String(), line["public_key"])
		assert.NotEmpty(t, line["tenant"])
	}
	assert.True(t, found, "update log line missing")
}

func TestClientTenant(t *testing.T) {
	f := setup(t)
	ctx := tenant.NewContext(context.Background(), tenant.Tenant{ClientID: 42})

	added, err := f.uc.Assets().Add(ctx, car("100"))
	require.NoError(t, err)
	assert.Equal(t, 42, added.UserID)
}

func TestNoTenant(t *testing.T) {
	f := setup(t)

	_, err := f.uc.Assets().Add(context.Background(), car("100"))
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestDelete_Twice(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Assets().Add(ctx, car("15000"))
	require.NoError(t, err)

	require.NoError(t, f.uc.Assets().Delete(ctx, added.ID))
	assert.ErrorIs(t, f.uc.Assets().Delete(ctx, added.ID), usecase.ErrNotFound)

	_, err = f.uc.Assets().Get(ctx, added.ID, usecase.SnapshotsOption{})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	f.events.AssertCalled(t, "Emit", mock.Anything, event.AssetDeleted, mock.MatchedBy(func(e event.Entity) bool {
		a, ok := e.Payload.(usecase.Asset)
		return ok && a.IsDeleted
	}))
}

func TestGet_SnapshotWindow(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Assets().Add(ctx, car("15000"))
	require.NoError(t, err)

	start := time.Now().AddDate(0, 0, 1)
	end := time.Now().AddDate(0, 0, -1)
	_, err = f.uc.Assets().Get(ctx, added.ID, usecase.SnapshotsOption{Start: &start, End: &end})
	assert.ErrorIs(t, err, usecase.ErrBadRequest)

	// a window without snapshots falls back to the latest one
	start, end = time.Now().AddDate(-2, 0, 0), time.Now().AddDate(-1, 0, 0)
	got, err := f.uc.Assets().Get(ctx, added.ID, usecase.SnapshotsOption{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, got.Snapshots, 1)
	assert.True(t, decimal.NewFromInt(15000).Equal(got.Snapshots[0].Value.Decimal))

	list, err := f.uc.Assets().List(ctx, usecase.ListOption{SnapshotsOption: usecase.SnapshotsOption{Start: &start, End: &end}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Snapshots)
}

func TestAddMany(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	invalid := car("15000")
	invalid.TypeName = ptr("yacht")

	added, err := f.uc.Assets().AddMany(ctx, []usecase.AssetDto{car("1"), invalid, car("2")})
	require.NoError(t, err)
	assert.Len(t, added, 2)
	assert.Contains(t, f.logs.String(), "Added 2 of 3 Assets")

	list, err := f.uc.Assets().List(ctx, usecase.ListOption{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAddMany_TooMany(t *testing.T) {
	f := setup(t)

	dtos := make([]usecase.AssetDto, usecase.MaxBatchSize+1)
	for i := range dtos {
		dtos[i] = car("1")
	}
	_, err := f.uc.Assets().AddMany(asUser(1), dtos)
	assert.ErrorIs(t, err, usecase.ErrBadRequest)
}

func TestUpdate_SnapshotOnlyForBaseFields(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Stocks().Add(ctx, vti())
	require.NoError(t, err)

	updated, err := f.uc.Stocks().Update(ctx, added.ID, usecase.AssetDto{
		Stock: &usecase.AssetStockDto{Shares: dec("60")},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(updated.Stock.Shares.Decimal))
	assert.Len(t, updated.Snapshots, 1)

	updated, err = f.uc.Stocks().Update(ctx, added.ID, usecase.AssetDto{Name: ptr("Total Market")})
	require.NoError(t, err)
	assert.Equal(t, "Total Market", updated.Name)
	require.Len(t, updated.Snapshots, 2)
	assert.Equal(t, "Total Market", *updated.Snapshots[0].Name)
	assert.False(t, updated.Snapshots[0].Value.Valid)
	assert.False(t, updated.Snapshots[0].ValueChange.Valid)
}

func TestUpdate_WrongKind(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Stocks().Add(ctx, vti())
	require.NoError(t, err)

	_, err = f.uc.Homes().Update(ctx, added.ID, usecase.AssetDto{Value: dec("1")})
	assert.ErrorIs(t, err, usecase.ErrBadRequest)

	// the generic variant accepts every asset
	_, err = f.uc.Assets().Update(ctx, added.ID, usecase.AssetDto{Value: dec("1")})
	require.NoError(t, err)
}

func TestValueChange_PriorZero(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Assets().Add(ctx, car("0"))
	require.NoError(t, err)

	updated, err := f.uc.Assets().Update(ctx, added.ID, usecase.AssetDto{Value: dec("100")})
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(updated.Snapshots[0].ValueChange.Decimal))
}

func TestAddSnapshot(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	added, err := f.uc.Assets().Add(ctx, car("15000"))
	require.NoError(t, err)

	snap, err := f.uc.Assets().AddSnapshot(ctx, usecase.AssetSnapshotDto{AssetID: added.ID, Value: dec("14000")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-1000).Equal(snap.ValueChange.Decimal))

	_, err = f.uc.Assets().AddSnapshot(asUser(2), usecase.AssetSnapshotDto{AssetID: added.ID, Value: dec("1")})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = f.uc.Assets().AddSnapshot(ctx, usecase.AssetSnapshotDto{AssetID: added.ID, Value: dec("-1")})
	assert.True(t, usecase.IsValidationError(err))
}

func TestHome_Add(t *testing.T) {
	f := setup(t)
	ctx := asUser(1)

	_, err := f.uc.Homes().Add(ctx, usecase.AssetDto{Name: ptr("house"), Value: dec("300000")})
	assert.True(t, usecase.IsValidationError(err))

	added, err := f.uc.Homes().Add(ctx, usecase.AssetDto{
		Name:  ptr("house"),
		Value: dec("300000"),
		Home: &usecase.AssetHomeDto{
			HomeType:        ptr("single family"),
			LoanValue:       dec("250000"),
			MonthlyMortgage: dec("1400"),
			MortgageRate:    dec("0.035"),
			DownPayment:     dec("50000"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, usecase.TypeHome, added.TypeName)
	require.NotNil(t, added.Home)
	assert.False(t, added.Home.IsRefinanced)

	homes, err := f.uc.Homes().List(ctx, usecase.ListOption{})
	require.NoError(t, err)
	assert.Len(t, homes, 1)

	stocks, err := f.uc.Stocks().List(ctx, usecase.ListOption{})
	require.NoError(t, err)
	assert.Empty(t, stocks)
}

func TestListAssetTypes(t *testing.T) {
	f := setup(t)

	types, err := f.uc.ListAssetTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 6)

	types, err = f.uc.Stocks().GetTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 6)
}
