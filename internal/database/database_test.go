package database

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"}, slog.New(slog.NewTextHandler(io.Discard, nil)), "ERROR")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func setupService(t *testing.T, cache TypeCache) *service {
	t.Helper()
	s, err := New(setupTestDB(t), cache)
	require.NoError(t, err)
	return s
}

func newAsset(userID int, name, typeName string, value int64) usecase.Asset {
	return usecase.Asset{
		PublicKey: uuid.New(),
		Name:      name,
		TypeName:  typeName,
		Value:     decimal.NewFromInt(value),
		UserID:    userID,
		Created:   time.Now().UTC(),
	}
}

func TestNew_NilDatabase(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilDatabase)
}

func TestMigrate_SeedsTypesOnce(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasIndex(&Asset{}, "idx_asset_type_ref"))

	s, err := New(db, nil)
	require.NoError(t, err)

	types, err := s.ListAssetTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 6)

	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = typ.Name
		assert.NotEqual(t, uuid.Nil, typ.PublicKey)
	}
	assert.ElementsMatch(t, []string{"car", "home", "investment", "stock", "cash", "other"}, names)

	ok, err := s.AssetTypeExists(context.Background(), "stock")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AssetTypeExists(context.Background(), "yacht")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAsset_CRUD(t *testing.T) {
	ctx := context.Background()
	s := setupService(t, nil)

	a := newAsset(1, "VTI", usecase.TypeStock, 10000)
	a.Stock = &usecase.AssetStock{
		TickerSymbol: "VTI",
		Shares:       decimal.NewNullDecimal(decimal.NewFromInt(50)),
		ExpenseRatio: decimal.NewNullDecimal(decimal.RequireFromString("0.0003")),
	}

	created, err := s.CreateAsset(ctx, a)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, usecase.KindStock, created.Kind())

	got, err := s.GetAsset(ctx, usecase.GetAssetOption{
		ID:           created.ID,
		AssetsOption: usecase.AssetsOption{UserID: 1, Kind: usecase.KindStock},
	})
	require.NoError(t, err)
	assert.Equal(t, "VTI", got.Name)
	assert.True(t, decimal.NewFromInt(10000).Equal(got.Value))
	require.NotNil(t, got.Stock)
	assert.Equal(t, "VTI", got.Stock.TickerSymbol)
	assert.True(t, decimal.RequireFromString("0.0003").Equal(got.Stock.ExpenseRatio.Decimal))
	assert.False(t, got.Stock.DividendYield.Valid)

	// another tenant cannot see it
	_, err = s.GetAsset(ctx, usecase.GetAssetOption{
		ID:           created.ID,
		AssetsOption: usecase.AssetsOption{UserID: 2},
	})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	// not a home
	_, err = s.GetAsset(ctx, usecase.GetAssetOption{
		ID:           created.ID,
		AssetsOption: usecase.AssetsOption{UserID: 1, Kind: usecase.KindHome},
	})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	got.Value = decimal.NewFromInt(10500)
	got.Stock.Shares = decimal.NewNullDecimal(decimal.NewFromInt(52))
	_, err = s.UpdateAsset(ctx, got)
	require.NoError(t, err)

	got, err = s.GetAsset(ctx, usecase.GetAssetOption{
		ID:           created.ID,
		AssetsOption: usecase.AssetsOption{UserID: 1},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10500).Equal(got.Value))
	assert.True(t, decimal.NewFromInt(52).Equal(got.Stock.Shares.Decimal))

	require.NoError(t, s.SoftDeleteAsset(ctx, 1, created.ID))
	_, err = s.GetAsset(ctx, usecase.GetAssetOption{
		ID:           created.ID,
		AssetsOption: usecase.AssetsOption{UserID: 1},
	})
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assert.ErrorIs(t, s.SoftDeleteAsset(ctx, 1, created.ID), usecase.ErrNotFound)
}

func TestUpdateAsset_OtherTenant(t *testing.T) {
	ctx := context.Background()
	s := setupService(t, nil)

	created, err := s.CreateAsset(ctx, newAsset(1, "car", usecase.TypeCar, 15000))
	require.NoError(t, err)

	created.UserID = 2
	_, err = s.UpdateAsset(ctx, created)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestListAssets(t *testing.T) {
	ctx := context.Background()
	s := setupService(t, nil)

	_, err := s.CreateAsset(ctx, newAsset(1, "car", usecase.TypeCar, 15000))
	require.NoError(t, err)
	cash, err := s.CreateAsset(ctx, newAsset(1, "savings", usecase.TypeCash, 2000))
	require.NoError(t, err)
	home := newAsset(1, "house", usecase.TypeHome, 300000)
	home.Home = &usecase.AssetHome{
		HomeType:        "house",
		LoanValue:       decimal.NewFromInt(250000),
		MonthlyMortgage: decimal.NewFromInt(1400),
		MortgageRate:    decimal.RequireFromString("0.035"),
		DownPayment:     decimal.NewFromInt(50000),
	}
	_, err = s.CreateAsset(ctx, home)
	require.NoError(t, err)
	_, err = s.CreateAsset(ctx, newAsset(2, "other car", usecase.TypeCar, 5000))
	require.NoError(t, err)
	require.NoError(t, s.SoftDeleteAsset(ctx, 1, cash.ID))

	all, err := s.ListAssets(ctx, usecase.ListAssetsOption{AssetsOption: usecase.AssetsOption{UserID: 1}})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	homes, err := s.ListAssets(ctx, usecase.ListAssetsOption{AssetsOption: usecase.AssetsOption{UserID: 1, Kind: usecase.KindHome}})
	require.NoError(t, err)
	require.Len(t, homes, 1)
	assert.True(t, decimal.RequireFromString("0.035").Equal(homes[0].Home.MortgageRate))

	cars, err := s.ListAssets(ctx, usecase.ListAssetsOption{TypeName: usecase.TypeCar, AssetsOption: usecase.AssetsOption{UserID: 1}})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "car", cars[0].Name)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := setupService(t, nil)

	a, err := s.CreateAsset(ctx, newAsset(1, "VTI", usecase.TypeStock, 10000))
	require.NoError(t, err)

	latest, err := s.GetLatestSnapshot(ctx, a.ID, false)
	require.NoError(t, err)
	assert.Nil(t, latest)

	now := time.Now().UTC()
	name := "VTI renamed"
	_, err = s.CreateSnapshot(ctx, usecase.AssetSnapshot{
		PublicKey:   uuid.New(),
		AssetID:     a.ID,
		Value:       decimal.NewNullDecimal(decimal.NewFromInt(10000)),
		ValueChange: decimal.NewNullDecimal(decimal.Zero),
		Created:     now.AddDate(0, -8, 0),
	})
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, usecase.AssetSnapshot{
		PublicKey: uuid.New(),
		AssetID:   a.ID,
		Name:      &name,
		Created:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	latest, err = s.GetLatestSnapshot(ctx, a.ID, false)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, &name, latest.Name)
	assert.False(t, latest.Value.Valid)

	valued, err := s.GetLatestSnapshot(ctx, a.ID, true)
	require.NoError(t, err)
	require.NotNil(t, valued)
	assert.True(t, decimal.NewFromInt(10000).Equal(valued.Value.Decimal))

	got, err := s.GetAsset(ctx, usecase.GetAssetOption{
		ID: a.ID,
		AssetsOption: usecase.AssetsOption{
			UserID:         1,
			WithSnapshots:  true,
			SnapshotsStart: now.AddDate(0, -6, 0),
			SnapshotsEnd:   now,
		},
	})
	require.NoError(t, err)
	require.Len(t, got.Snapshots, 1)
	assert.Equal(t, &name, got.Snapshots[0].Name)
}

func TestWithTx_Rollback(t *testing.T) {
	ctx := context.Background()
	s := setupService(t, nil)

	err := s.WithTx(ctx, func(tx usecase.Repository) error {
		if _, err := tx.CreateAsset(ctx, newAsset(1, "car", usecase.TypeCar, 1)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	all, err := s.ListAssets(ctx, usecase.ListAssetsOption{AssetsOption: usecase.AssetsOption{UserID: 1}})
	require.NoError(t, err)
	assert.Empty(t, all)
}

type memoryTypeCache struct {
	mu    sync.Mutex
	types []usecase.AssetType
	sets  int
}

func (c *memoryTypeCache) GetTypes(context.Context) ([]usecase.AssetType, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.types, c.types != nil
}

func (c *memoryTypeCache) SetTypes(_ context.Context, types []usecase.AssetType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = types
	c.sets++
}

func TestListAssetTypes_Cached(t *testing.T) {
	ctx := context.Background()
	cache := &memoryTypeCache{}
	s := setupService(t, cache)

	_, err := s.ListAssetTypes(ctx)
	require.NoError(t, err)
	_, err = s.ListAssetTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// names missing from the cache are looked up in the table
	require.NoError(t, s.db.Create(&AssetType{Name: "crypto"}).Error)
	ok, err := s.AssetTypeExists(ctx, "crypto")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisTypeCache_Unavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := NewRedisTypeCache(rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetTypes(context.Background(), []usecase.AssetType{{Name: "car"}})
	types, ok := c.GetTypes(context.Background())
	assert.False(t, ok)
	assert.Nil(t, types)
}

func TestHealth(t *testing.T) {
	s := setupService(t, nil)
	stats := s.Health()
	assert.Equal(t, "up", stats["status"])
}
