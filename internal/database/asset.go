package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Asset struct {
	ID        int             `gorm:"column:id;primaryKey"`
	PublicKey uuid.UUID       `gorm:"column:public_key;type:uuid;not null;uniqueIndex"`
	Name      string          `gorm:"column:name;type:varchar(100);not null"`
	TypeName  string          `gorm:"column:type_name;type:varchar(100);not null;index:idx_asset_type_ref"`
	Type      *AssetType      `gorm:"foreignKey:TypeName;references:Name"`
	Value     decimal.Decimal `gorm:"column:value;type:numeric(19,6);not null"`
	UserID    int             `gorm:"column:user_id;not null;index"`
	Created   time.Time       `gorm:"column:created;not null"`
	IsDeleted bool            `gorm:"column:is_deleted;not null"`

	Stock     *AssetStock     `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
	Home      *AssetHome      `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
	Snapshots []AssetSnapshot `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
}

func (Asset) TableName() string {
	return "asset"
}

func (m *Asset) BeforeCreate(*gorm.DB) error {
	if m.PublicKey == uuid.Nil {
		m.PublicKey = uuid.New()
	}
	if m.Created.IsZero() {
		m.Created = time.Now().UTC()
	}
	return nil
}

type AssetStock struct {
	AssetID       int                 `gorm:"column:asset_id;primaryKey;autoIncrement:false"`
	TickerSymbol  string              `gorm:"column:ticker_symbol;type:varchar(50);not null"`
	Shares        decimal.NullDecimal `gorm:"column:shares;type:numeric(19,6)"`
	ExpenseRatio  decimal.NullDecimal `gorm:"column:expense_ratio;type:numeric(19,6)"`
	DividendYield decimal.NullDecimal `gorm:"column:dividend_yield;type:numeric(19,6)"`
}

func (AssetStock) TableName() string {
	return "asset_stock"
}

type AssetHome struct {
	AssetID           int                 `gorm:"column:asset_id;primaryKey;autoIncrement:false"`
	HomeType          string              `gorm:"column:home_type;type:varchar(100);not null"`
	LoanValue         decimal.Decimal     `gorm:"column:loan_value;type:numeric(19,6);not null"`
	MonthlyMortgage   decimal.Decimal     `gorm:"column:monthly_mortgage;type:numeric(19,6);not null"`
	MortgageRate      decimal.Decimal     `gorm:"column:mortgage_rate;type:numeric(19,6);not null"`
	DownPayment       decimal.Decimal     `gorm:"column:down_payment;type:numeric(19,6);not null"`
	AnnualInsurance   decimal.NullDecimal `gorm:"column:annual_insurance;type:numeric(19,6)"`
	AnnualPropertyTax decimal.NullDecimal `gorm:"column:annual_property_tax;type:numeric(19,6)"`
	ClosingCosts      decimal.NullDecimal `gorm:"column:closing_costs;type:numeric(19,6)"`
	IsRefinanced      bool                `gorm:"column:is_refinanced;not null"`
}

func (AssetHome) TableName() string {
	return "asset_home"
}

// ownedBy limits a query to live assets of one tenant.
func ownedBy(userID int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("asset.user_id = ? AND asset.is_deleted = ?", userID, false)
	}
}

func ofKind(k usecase.Kind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch k {
		case usecase.KindStock:
			return db.Where("EXISTS (SELECT 1 FROM asset_stock WHERE asset_stock.asset_id = asset.id)")
		case usecase.KindHome:
			return db.Where("EXISTS (SELECT 1 FROM asset_home WHERE asset_home.asset_id = asset.id)")
		default:
			return db
		}
	}
}

func withRelations(opt usecase.AssetsOption) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Preload("Stock").Preload("Home")
		if opt.WithSnapshots {
			db = db.Preload("Snapshots", func(db *gorm.DB) *gorm.DB {
				return db.
					Where("created >= ? AND created <= ?", opt.SnapshotsStart, opt.SnapshotsEnd).
					Order("created DESC, id DESC")
			})
		}
		return db
	}
}

func (s *service) GetAsset(ctx context.Context, opt usecase.GetAssetOption) (usecase.Asset, error) {
	var a Asset
	err := s.db.
		WithContext(ctx).
		Scopes(ownedBy(opt.UserID), ofKind(opt.Kind), withRelations(opt.AssetsOption)).
		Where("asset.id = ?", opt.ID).
		Take(&a).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usecase.Asset{}, fmt.Errorf("asset with id=%d was not found: %w", opt.ID, usecase.ErrNotFound)
	}
	if err != nil {
		return usecase.Asset{}, err
	}
	return a.ConvertToUsecase(), nil
}

func (s *service) ListAssets(ctx context.Context, opt usecase.ListAssetsOption) ([]usecase.Asset, error) {
	var assets []Asset

	db := s.db.
		WithContext(ctx).
		Scopes(ownedBy(opt.UserID), ofKind(opt.Kind), withRelations(opt.AssetsOption))

	if opt.TypeName != "" {
		db = db.Where("asset.type_name = ?", opt.TypeName)
	}

	if err := db.Order("asset.id").Find(&assets).Error; err != nil {
		return nil, err
	}

	uassets := make([]usecase.Asset, 0, len(assets))
	for _, a := range assets {
		uassets = append(uassets, a.ConvertToUsecase())
	}
	return uassets, nil
}

func (s *service) CreateAsset(ctx context.Context, a usecase.Asset) (usecase.Asset, error) {
	m := fromUsecase(a)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return usecase.Asset{}, fmt.Errorf("create asset: %w", err)
	}
	return m.ConvertToUsecase(), nil
}

// UpdateAsset writes the common fields and any loaded extension.
func (s *service) UpdateAsset(ctx context.Context, a usecase.Asset) (usecase.Asset, error) {
	m := fromUsecase(a)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&Asset{}).
			Scopes(ownedBy(m.UserID)).
			Where("asset.id = ?", m.ID).
			Updates(map[string]any{
				"name":      m.Name,
				"type_name": m.TypeName,
				"value":     m.Value,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("asset with id=%d was not found: %w", m.ID, usecase.ErrNotFound)
		}

		if m.Stock != nil {
			if err := tx.Save(m.Stock).Error; err != nil {
				return err
			}
		}
		if m.Home != nil {
			if err := tx.Save(m.Home).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return usecase.Asset{}, err
	}
	return m.ConvertToUsecase(), nil
}

func (s *service) SoftDeleteAsset(ctx context.Context, userID, id int) error {
	res := s.db.
		WithContext(ctx).
		Model(&Asset{}).
		Scopes(ownedBy(userID)).
		Where("asset.id = ?", id).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("asset with id=%d was not found: %w", id, usecase.ErrNotFound)
	}
	return nil
}

func fromUsecase(a usecase.Asset) Asset {
	m := Asset{
		ID:        a.ID,
		PublicKey: a.PublicKey,
		Name:      a.Name,
		TypeName:  a.TypeName,
		Value:     a.Value,
		UserID:    a.UserID,
		Created:   a.Created,
		IsDeleted: a.IsDeleted,
	}
	if st := a.Stock; st != nil {
		m.Stock = &AssetStock{
			AssetID:       a.ID,
			TickerSymbol:  st.TickerSymbol,
			Shares:        st.Shares,
			ExpenseRatio:  st.ExpenseRatio,
			DividendYield: st.DividendYield,
		}
	}
	if h := a.Home; h != nil {
		m.Home = &AssetHome{
			AssetID:           a.ID,
			HomeType:          h.HomeType,
			LoanValue:         h.LoanValue,
			MonthlyMortgage:   h.MonthlyMortgage,
			MortgageRate:      h.MortgageRate,
			DownPayment:       h.DownPayment,
			AnnualInsurance:   h.AnnualInsurance,
			AnnualPropertyTax: h.AnnualPropertyTax,
			ClosingCosts:      h.ClosingCosts,
			IsRefinanced:      h.IsRefinanced,
		}
	}
	return m
}

// Convert core model to Usecase
func (m Asset) ConvertToUsecase() usecase.Asset {
	a := usecase.Asset{
		ID:        m.ID,
		PublicKey: m.PublicKey,
		Name:      m.Name,
		TypeName:  m.TypeName,
		Value:     m.Value,
		UserID:    m.UserID,
		Created:   m.Created.UTC(),
		IsDeleted: m.IsDeleted,
		Snapshots: make([]usecase.AssetSnapshot, 0, len(m.Snapshots)),
	}
	if st := m.Stock; st != nil {
		a.Stock = &usecase.AssetStock{
			TickerSymbol:  st.TickerSymbol,
			Shares:        st.Shares,
			ExpenseRatio:  st.ExpenseRatio,
			DividendYield: st.DividendYield,
		}
	}
	if h := m.Home; h != nil {
		a.Home = &usecase.AssetHome{
			HomeType:          h.HomeType,
			LoanValue:         h.LoanValue,
			MonthlyMortgage:   h.MonthlyMortgage,
			MortgageRate:      h.MortgageRate,
			DownPayment:       h.DownPayment,
			AnnualInsurance:   h.AnnualInsurance,
			AnnualPropertyTax: h.AnnualPropertyTax,
			ClosingCosts:      h.ClosingCosts,
			IsRefinanced:      h.IsRefinanced,
		}
	}
	for _, s := range m.Snapshots {
		a.Snapshots = append(a.Snapshots, s.ConvertToUsecase())
	}
	return a
}
