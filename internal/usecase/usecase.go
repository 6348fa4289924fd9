package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kamacharovs/aiof-asset/internal/event"
)

func New(repo Repository, events Emitter, logger *slog.Logger) Usecase {
	if events == nil {
		events = noopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Usecase{
		repo:      repo,
		validator: NewValidator(repo),
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type Repository interface {
	Health() map[string]string
	Close() error

	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(context.Context, func(Repository) error) error

	ListAssetTypes(context.Context) ([]AssetType, error)
	AssetTypeExists(context.Context, string) (bool, error)

	GetAsset(context.Context, GetAssetOption) (Asset, error)
	ListAssets(context.Context, ListAssetsOption) ([]Asset, error)
	CreateAsset(context.Context, Asset) (Asset, error)
	UpdateAsset(context.Context, Asset) (Asset, error)
	SoftDeleteAsset(ctx context.Context, userID, id int) error

	CreateSnapshot(context.Context, AssetSnapshot) (AssetSnapshot, error)
	// GetLatestSnapshot returns nil when the asset has no matching snapshot.
	GetLatestSnapshot(ctx context.Context, assetID int, withValue bool) (*AssetSnapshot, error)
}

// Emitter publishes domain events. Implementations must not block the caller
// and never report delivery failures.
type Emitter interface {
	Emit(context.Context, event.Type, event.Entity)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, event.Type, event.Entity) {}

type AssetsOption struct {
	UserID int
	Kind   Kind

	WithSnapshots  bool
	SnapshotsStart time.Time
	SnapshotsEnd   time.Time
}

type GetAssetOption struct {
	ID int
	AssetsOption
}

type ListAssetsOption struct {
	TypeName string
	AssetsOption
}

type Usecase struct {
	repo      Repository
	validator *Validator
	events    Emitter
	logger    *slog.Logger
	now       func() time.Time
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

func (u Usecase) Close() error {
	return u.repo.Close()
}

func (u Usecase) Validator() *Validator {
	return u.validator
}

func (u Usecase) ListAssetTypes(ctx context.Context) ([]AssetType, error) {
	return u.repo.ListAssetTypes(ctx)
}

// Assets operates on every asset regardless of variant.
func (u Usecase) Assets() AssetRepository {
	return u.assetRepository(assetStrategy)
}

func (u Usecase) Stocks() AssetRepository {
	return u.assetRepository(stockStrategy)
}

func (u Usecase) Homes() AssetRepository {
	return u.assetRepository(homeStrategy)
}

func (u Usecase) assetRepository(s strategy) AssetRepository {
	return AssetRepository{
		strategy:  s,
		repo:      u.repo,
		validator: u.validator,
		events:    u.events,
		logger:    u.logger,
		now:       u.now,
	}
}
