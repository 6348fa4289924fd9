package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/event"
	"github.com/kamacharovs/aiof-asset/internal/tenant"
)

const (
	MaxBatchSize = 10

	defaultSnapshotsWindow = -6 // months
)

// AssetRepository is the tenant-scoped asset API for one variant. Every
// operation reads the caller from the context.
type AssetRepository struct {
	strategy

	repo      Repository
	validator *Validator
	events    Emitter
	logger    *slog.Logger
	now       func() time.Time
}

func (r AssetRepository) Kind() Kind {
	return r.kind
}

func (r AssetRepository) GetTypes(ctx context.Context) ([]AssetType, error) {
	return r.repo.ListAssetTypes(ctx)
}

// window resolves the snapshot bounds, defaulting to the last six months.
func (r AssetRepository) window(opt SnapshotsOption) (time.Time, time.Time, error) {
	now := r.now()
	start := now.AddDate(0, defaultSnapshotsWindow, 0)
	end := now
	if opt.Start != nil {
		start = opt.Start.UTC()
	}
	if opt.End != nil {
		end = opt.End.UTC()
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, badRequest("Snapshots end date cannot be earlier than start date")
	}
	return start, end, nil
}

// Get returns one asset of the caller with its snapshots in the window,
// newest first. When the window is empty the latest snapshot is attached.
func (r AssetRepository) Get(ctx context.Context, id int, opt SnapshotsOption) (Asset, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return Asset{}, err
	}
	start, end, err := r.window(opt)
	if err != nil {
		return Asset{}, err
	}

	asset, err := r.repo.GetAsset(ctx, GetAssetOption{
		ID: id,
		AssetsOption: AssetsOption{
			UserID:         t.TenantID(),
			Kind:           r.kind,
			WithSnapshots:  true,
			SnapshotsStart: start,
			SnapshotsEnd:   end,
		},
	})
	if err != nil {
		return Asset{}, err
	}

	if len(asset.Snapshots) == 0 {
		latest, err := r.repo.GetLatestSnapshot(ctx, asset.ID, false)
		if err != nil {
			return Asset{}, err
		}
		if latest != nil {
			asset.Snapshots = []AssetSnapshot{*latest}
		}
	}
	return asset, nil
}

// List returns every asset of the caller for this variant. The latest
// snapshot fallback of Get does not apply.
func (r AssetRepository) List(ctx context.Context, opt ListOption) ([]Asset, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := r.window(opt.SnapshotsOption)
	if err != nil {
		return nil, err
	}
	return r.repo.ListAssets(ctx, ListAssetsOption{
		TypeName: opt.TypeName,
		AssetsOption: AssetsOption{
			UserID:         t.TenantID(),
			Kind:           r.kind,
			WithSnapshots:  true,
			SnapshotsStart: start,
			SnapshotsEnd:   end,
		},
	})
}

// Add validates dto, stores the asset under the caller and records the
// initial snapshot in the same transaction.
func (r AssetRepository) Add(ctx context.Context, dto AssetDto) (Asset, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return Asset{}, err
	}

	dto = r.withDefaults(dto)
	if err := r.validateAdd(r.validator, ctx, dto); err != nil {
		return Asset{}, err
	}

	asset := Asset{
		PublicKey: uuid.New(),
		UserID:    t.TenantID(),
		Created:   r.now(),
	}
	mergeBase(&asset, dto)
	r.build(&asset, dto)

	err = r.repo.WithTx(ctx, func(tx Repository) error {
		created, err := tx.CreateAsset(ctx, asset)
		if err != nil {
			return err
		}
		asset = created

		snap := dto.snapshot(created.ID)
		if !snap.hasFields() {
			return nil
		}
		s, err := r.appendSnapshot(ctx, tx, snap)
		if err != nil {
			return err
		}
		asset.Snapshots = []AssetSnapshot{s}
		return nil
	})
	if err != nil {
		return Asset{}, err
	}

	r.logger.InfoContext(ctx, fmt.Sprintf("Created Asset=%s", r.kind),
		slog.String("tenant", t.Log()),
		slog.Int("asset_id", asset.ID),
		slog.String("public_key", asset.PublicKey.String()),
		slog.Int("user_id", asset.UserID))

	r.emit(ctx, event.AssetAdded, asset)
	return asset, nil
}

// AddMany adds up to MaxBatchSize assets. Items failing validation are
// skipped; any other failure aborts the batch.
func (r AssetRepository) AddMany(ctx context.Context, dtos []AssetDto) ([]Asset, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(dtos) > MaxBatchSize {
		return nil, badRequest("cannot add more than %d assets at once, got %d", MaxBatchSize, len(dtos))
	}

	added := make([]Asset, 0, len(dtos))
	for i, dto := range dtos {
		asset, err := r.Add(ctx, dto)
		if IsValidationError(err) {
			r.logger.WarnContext(ctx, "skipped invalid asset",
				slog.Int("index", i),
				slog.String("err", err.Error()))
			continue
		}
		if err != nil {
			return nil, err
		}
		added = append(added, asset)
	}

	r.logger.InfoContext(ctx, fmt.Sprintf("Added %d of %d Assets", len(added), len(dtos)),
		slog.String("tenant", t.Log()),
		slog.Int("added", len(added)),
		slog.Int("requested", len(dtos)))

	return added, nil
}

// Update merges the present fields of dto into the caller's asset. A snapshot
// is recorded when name, typeName or value is present.
func (r AssetRepository) Update(ctx context.Context, id int, dto AssetDto) (Asset, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return Asset{}, err
	}
	if err := r.validateUpdate(r.validator, ctx, dto); err != nil {
		return Asset{}, err
	}

	asset, err := r.repo.GetAsset(ctx, GetAssetOption{
		ID:           id,
		AssetsOption: AssetsOption{UserID: t.TenantID(), Kind: KindAsset},
	})
	if err != nil {
		return Asset{}, err
	}
	if !r.accepts(asset) {
		return Asset{}, badRequest("Asset is not of type %s", r.kind)
	}

	mergeBase(&asset, dto)
	r.merge(&asset, dto)

	err = r.repo.WithTx(ctx, func(tx Repository) error {
		if _, err := tx.UpdateAsset(ctx, asset); err != nil {
			return err
		}
		snap := dto.snapshot(asset.ID)
		if !snap.hasFields() {
			return nil
		}
		_, err := r.appendSnapshot(ctx, tx, snap)
		return err
	})
	if err != nil {
		return Asset{}, err
	}

	r.logger.InfoContext(ctx, fmt.Sprintf("Updated Asset=%s", r.kind),
		slog.String("tenant", t.Log()),
		slog.Int("asset_id", asset.ID),
		slog.String("public_key", asset.PublicKey.String()),
		slog.Int("user_id", asset.UserID))

	updated, err := r.Get(ctx, asset.ID, SnapshotsOption{})
	if err != nil {
		return Asset{}, err
	}
	r.emit(ctx, event.AssetUpdated, updated)
	return updated, nil
}

// Delete soft deletes the caller's asset. Deleted assets are not found again.
func (r AssetRepository) Delete(ctx context.Context, id int) error {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	asset, err := r.repo.GetAsset(ctx, GetAssetOption{
		ID:           id,
		AssetsOption: AssetsOption{UserID: t.TenantID(), Kind: r.kind},
	})
	if err != nil {
		return err
	}
	if err := r.repo.SoftDeleteAsset(ctx, t.TenantID(), id); err != nil {
		return err
	}
	asset.IsDeleted = true

	r.logger.InfoContext(ctx, fmt.Sprintf("Soft Deleted Asset=%s", r.kind),
		slog.String("tenant", t.Log()),
		slog.Int("asset_id", asset.ID),
		slog.String("public_key", asset.PublicKey.String()))

	r.emit(ctx, event.AssetDeleted, asset)
	return nil
}

func (r AssetRepository) emit(ctx context.Context, typ event.Type, a Asset) {
	r.events.Emit(ctx, typ, event.Entity{
		ID:      a.ID,
		Type:    a.Kind().String(),
		Payload: a,
	})
}
