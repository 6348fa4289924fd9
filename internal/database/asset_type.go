package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"gorm.io/gorm"
)

type AssetType struct {
	Name      string    `gorm:"column:name;type:varchar(100);primaryKey"`
	PublicKey uuid.UUID `gorm:"column:public_key;type:uuid;not null"`
}

func (AssetType) TableName() string {
	return "asset_type"
}

func (m *AssetType) BeforeCreate(*gorm.DB) error {
	if m.PublicKey == uuid.Nil {
		m.PublicKey = uuid.New()
	}
	return nil
}

func (m AssetType) ConvertToUsecase() usecase.AssetType {
	return usecase.AssetType{
		Name:      m.Name,
		PublicKey: m.PublicKey,
	}
}

func (s *service) ListAssetTypes(ctx context.Context) ([]usecase.AssetType, error) {
	if s.cache != nil {
		if types, ok := s.cache.GetTypes(ctx); ok {
			return types, nil
		}
	}

	var types []AssetType
	if err := s.db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("list asset types: %w", err)
	}

	utypes := make([]usecase.AssetType, 0, len(types))
	for _, t := range types {
		utypes = append(utypes, t.ConvertToUsecase())
	}

	if s.cache != nil {
		s.cache.SetTypes(ctx, utypes)
	}
	return utypes, nil
}

// AssetTypeExists answers from the cached list when it contains name and
// falls back to the table otherwise.
func (s *service) AssetTypeExists(ctx context.Context, name string) (bool, error) {
	if s.cache != nil {
		if types, ok := s.cache.GetTypes(ctx); ok {
			for _, t := range types {
				if t.Name == name {
					return true, nil
				}
			}
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&AssetType{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check asset type: %w", err)
	}
	return count > 0, nil
}
