package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AssetSnapshot struct {
	ID          int                 `gorm:"column:id;primaryKey"`
	PublicKey   uuid.UUID           `gorm:"column:public_key;type:uuid;not null;uniqueIndex"`
	AssetID     int                 `gorm:"column:asset_id;not null;index:idx_asset_snapshot_asset_created,priority:1"`
	Name        *string             `gorm:"column:name;type:varchar(100)"`
	TypeName    *string             `gorm:"column:type_name;type:varchar(100)"`
	Value       decimal.NullDecimal `gorm:"column:value;type:numeric(19,6)"`
	ValueChange decimal.NullDecimal `gorm:"column:value_change;type:numeric(19,6)"`
	Created     time.Time           `gorm:"column:created;not null;index:idx_asset_snapshot_asset_created,priority:2"`
}

func (AssetSnapshot) TableName() string {
	return "asset_snapshot"
}

func (m *AssetSnapshot) BeforeCreate(*gorm.DB) error {
	if m.PublicKey == uuid.Nil {
		m.PublicKey = uuid.New()
	}
	if m.Created.IsZero() {
		m.Created = time.Now().UTC()
	}
	return nil
}

// Convert core model to Usecase
func (m AssetSnapshot) ConvertToUsecase() usecase.AssetSnapshot {
	return usecase.AssetSnapshot{
		ID:          m.ID,
		PublicKey:   m.PublicKey,
		AssetID:     m.AssetID,
		Name:        m.Name,
		TypeName:    m.TypeName,
		Value:       m.Value,
		ValueChange: m.ValueChange,
		Created:     m.Created.UTC(),
	}
}

func (s *service) CreateSnapshot(ctx context.Context, snap usecase.AssetSnapshot) (usecase.AssetSnapshot, error) {
	m := AssetSnapshot{
		PublicKey:   snap.PublicKey,
		AssetID:     snap.AssetID,
		Name:        snap.Name,
		TypeName:    snap.TypeName,
		Value:       snap.Value,
		ValueChange: snap.ValueChange,
		Created:     snap.Created,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return usecase.AssetSnapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	return m.ConvertToUsecase(), nil
}

// GetLatestSnapshot returns the newest snapshot of an asset, optionally only
// among those that carry a value.
func (s *service) GetLatestSnapshot(ctx context.Context, assetID int, withValue bool) (*usecase.AssetSnapshot, error) {
	var snaps []AssetSnapshot

	db := s.db.
		WithContext(ctx).
		Where("asset_id = ?", assetID)

	if withValue {
		db = db.Where("value IS NOT NULL")
	}

	if err := db.
		Order("created DESC, id DESC").
		Limit(1).
		Find(&snaps).
		Error; err != nil {

		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	snap := snaps[0].ConvertToUsecase()
	return &snap, nil
}
