package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reference asset type names seeded with the store.
const (
	TypeCar        = "car"
	TypeHome       = "home"
	TypeInvestment = "investment"
	TypeStock      = "stock"
	TypeCash       = "cash"
	TypeOther      = "other"
)

// Kind tags the asset variant. Every asset has the common fields; stocks and
// homes carry one extension each.
type Kind int

const (
	KindAsset Kind = iota
	KindStock
	KindHome
)

func (k Kind) String() string {
	switch k {
	case KindStock:
		return "asset_stock"
	case KindHome:
		return "asset_home"
	default:
		return "asset"
	}
}

type AssetType struct {
	Name      string    `json:"name"`
	PublicKey uuid.UUID `json:"publicKey"`
}

type Asset struct {
	ID        int             `json:"id"`
	PublicKey uuid.UUID       `json:"publicKey"`
	Name      string          `json:"name"`
	TypeName  string          `json:"typeName"`
	Value     decimal.Decimal `json:"value"`
	UserID    int             `json:"userId"`
	Created   time.Time       `json:"created"`
	IsDeleted bool            `json:"isDeleted"`

	Stock *AssetStock `json:"stock,omitempty"`
	Home  *AssetHome  `json:"home,omitempty"`

	Snapshots []AssetSnapshot `json:"snapshots"`
}

func (a Asset) Kind() Kind {
	switch {
	case a.Stock != nil:
		return KindStock
	case a.Home != nil:
		return KindHome
	default:
		return KindAsset
	}
}

type AssetStock struct {
	TickerSymbol  string              `json:"tickerSymbol"`
	Shares        decimal.NullDecimal `json:"shares"`
	ExpenseRatio  decimal.NullDecimal `json:"expenseRatio"`
	DividendYield decimal.NullDecimal `json:"dividendYield"`
}

type AssetHome struct {
	HomeType          string              `json:"homeType"`
	LoanValue         decimal.Decimal     `json:"loanValue"`
	MonthlyMortgage   decimal.Decimal     `json:"monthlyMortgage"`
	MortgageRate      decimal.Decimal     `json:"mortgageRate"`
	DownPayment       decimal.Decimal     `json:"downPayment"`
	AnnualInsurance   decimal.NullDecimal `json:"annualInsurance"`
	AnnualPropertyTax decimal.NullDecimal `json:"annualPropertyTax"`
	ClosingCosts      decimal.NullDecimal `json:"closingCosts"`
	IsRefinanced      bool                `json:"isRefinanced"`
}

type AssetSnapshot struct {
	ID          int                 `json:"id"`
	PublicKey   uuid.UUID           `json:"publicKey"`
	AssetID     int                 `json:"assetId"`
	Name        *string             `json:"name"`
	TypeName    *string             `json:"typeName"`
	Value       decimal.NullDecimal `json:"value"`
	ValueChange decimal.NullDecimal `json:"valueChange"`
	Created     time.Time           `json:"created"`
}

// AssetDto is the write shape for every variant. Nil fields are absent.
type AssetDto struct {
	Name     *string
	TypeName *string
	Value    *decimal.Decimal

	Stock *AssetStockDto
	Home  *AssetHomeDto
}

type AssetStockDto struct {
	TickerSymbol  *string
	Shares        *decimal.Decimal
	ExpenseRatio  *decimal.Decimal
	DividendYield *decimal.Decimal
}

func (d *AssetStockDto) hasFields() bool {
	return d != nil && (d.TickerSymbol != nil ||
		d.Shares != nil ||
		d.ExpenseRatio != nil ||
		d.DividendYield != nil)
}

type AssetHomeDto struct {
	HomeType          *string
	LoanValue         *decimal.Decimal
	MonthlyMortgage   *decimal.Decimal
	MortgageRate      *decimal.Decimal
	DownPayment       *decimal.Decimal
	AnnualInsurance   *decimal.Decimal
	AnnualPropertyTax *decimal.Decimal
	ClosingCosts      *decimal.Decimal
	IsRefinanced      *bool
}

func (d *AssetHomeDto) hasFields() bool {
	return d != nil && (d.HomeType != nil ||
		d.LoanValue != nil ||
		d.MonthlyMortgage != nil ||
		d.MortgageRate != nil ||
		d.DownPayment != nil ||
		d.AnnualInsurance != nil ||
		d.AnnualPropertyTax != nil ||
		d.ClosingCosts != nil ||
		d.IsRefinanced != nil)
}

type AssetSnapshotDto struct {
	AssetID  int
	Name     *string
	TypeName *string
	Value    *decimal.Decimal
}

// snapshot maps the snapshot-relevant fields of an asset write.
func (d AssetDto) snapshot(assetID int) AssetSnapshotDto {
	return AssetSnapshotDto{
		AssetID:  assetID,
		Name:     d.Name,
		TypeName: d.TypeName,
		Value:    d.Value,
	}
}

func (d AssetSnapshotDto) hasFields() bool {
	return d.Name != nil || d.TypeName != nil || d.Value != nil
}

// SnapshotsOption bounds the snapshot window attached to returned assets.
// Nil bounds default to the last six months.
type SnapshotsOption struct {
	Start *time.Time
	End   *time.Time
}

type ListOption struct {
	SnapshotsOption
	TypeName string
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
