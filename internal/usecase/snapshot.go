package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/tenant"
	"github.com/shopspring/decimal"
)

// appendSnapshot derives the value change against the latest valued snapshot
// of the asset and persists the result through repo. dto must already be
// validated; repo may be bound to a transaction.
// ValueChange is null without a value, and zero when there is no prior valued
// snapshot or the prior value is zero.
func (r AssetRepository) appendSnapshot(ctx context.Context, repo Repository, dto AssetSnapshotDto) (AssetSnapshot, error) {
	snapshot := AssetSnapshot{
		PublicKey: uuid.New(),
		AssetID:   dto.AssetID,
		Name:      dto.Name,
		TypeName:  dto.TypeName,
		Created:   r.now(),
	}

	if dto.Value != nil {
		change := decimal.Zero
		prior, err := repo.GetLatestSnapshot(ctx, dto.AssetID, true)
		if err != nil {
			return AssetSnapshot{}, err
		}
		if prior != nil && prior.Value.Valid && !prior.Value.Decimal.IsZero() {
			change = dto.Value.Sub(prior.Value.Decimal)
		}
		snapshot.Value = decimal.NewNullDecimal(*dto.Value)
		snapshot.ValueChange = decimal.NewNullDecimal(change)
	}

	created, err := repo.CreateSnapshot(ctx, snapshot)
	if err != nil {
		return AssetSnapshot{}, err
	}

	r.logger.InfoContext(ctx, "Created AssetSnapshot",
		slog.Int("asset_id", created.AssetID),
		slog.String("public_key", created.PublicKey.String()))

	return created, nil
}

// AddSnapshot records a snapshot for an asset owned by the caller.
func (r AssetRepository) AddSnapshot(ctx context.Context, dto AssetSnapshotDto) (AssetSnapshot, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return AssetSnapshot{}, err
	}
	if err := r.validator.ValidateSnapshotForAdd(ctx, dto); err != nil {
		return AssetSnapshot{}, err
	}
	if _, err := r.repo.GetAsset(ctx, GetAssetOption{
		ID:           dto.AssetID,
		AssetsOption: AssetsOption{UserID: t.TenantID(), Kind: KindAsset},
	}); err != nil {
		return AssetSnapshot{}, err
	}
	return r.appendSnapshot(ctx, r.repo, dto)
}
