package usecase

import "context"

// strategy is what varies between the asset variants: which rows they see,
// which rule sets they validate with and how DTO fields land on the entity.
type strategy struct {
	kind        Kind
	defaultType string

	validateAdd    func(*Validator, context.Context, AssetDto) error
	validateUpdate func(*Validator, context.Context, AssetDto) error

	// build maps the variant extension of a validated Add DTO.
	build func(*Asset, AssetDto)
	// merge copies present extension fields onto an existing asset.
	merge func(*Asset, AssetDto)
}

// accepts reports whether a stored asset can be handled as this variant.
func (s strategy) accepts(a Asset) bool {
	return s.kind == KindAsset || a.Kind() == s.kind
}

func (s strategy) withDefaults(dto AssetDto) AssetDto {
	if dto.TypeName == nil && s.defaultType != "" {
		t := s.defaultType
		dto.TypeName = &t
	}
	return dto
}

var assetStrategy = strategy{
	kind:           KindAsset,
	validateAdd:    (*Validator).ValidateAssetForAdd,
	validateUpdate: (*Validator).ValidateAssetForUpdate,
	build:          func(*Asset, AssetDto) {},
	merge:          func(*Asset, AssetDto) {},
}

var stockStrategy = strategy{
	kind:           KindStock,
	defaultType:    TypeStock,
	validateAdd:    (*Validator).ValidateStockForAdd,
	validateUpdate: (*Validator).ValidateStockForUpdate,
	build: func(a *Asset, dto AssetDto) {
		a.Stock = &AssetStock{}
		mergeStock(a.Stock, dto.Stock)
	},
	merge: func(a *Asset, dto AssetDto) {
		if a.Stock == nil {
			a.Stock = &AssetStock{}
		}
		mergeStock(a.Stock, dto.Stock)
	},
}

var homeStrategy = strategy{
	kind:           KindHome,
	defaultType:    TypeHome,
	validateAdd:    (*Validator).ValidateHomeForAdd,
	validateUpdate: (*Validator).ValidateHomeForUpdate,
	build: func(a *Asset, dto AssetDto) {
		a.Home = &AssetHome{}
		mergeHome(a.Home, dto.Home)
	},
	merge: func(a *Asset, dto AssetDto) {
		if a.Home == nil {
			a.Home = &AssetHome{}
		}
		mergeHome(a.Home, dto.Home)
	},
}

func mergeBase(a *Asset, dto AssetDto) {
	if dto.Name != nil {
		a.Name = *dto.Name
	}
	if dto.TypeName != nil {
		a.TypeName = *dto.TypeName
	}
	if dto.Value != nil {
		a.Value = *dto.Value
	}
}

func mergeStock(s *AssetStock, dto *AssetStockDto) {
	if dto == nil {
		return
	}
	if dto.TickerSymbol != nil {
		s.TickerSymbol = *dto.TickerSymbol
	}
	if dto.Shares != nil {
		s.Shares = nullDecimal(dto.Shares)
	}
	if dto.ExpenseRatio != nil {
		s.ExpenseRatio = nullDecimal(dto.ExpenseRatio)
	}
	if dto.DividendYield != nil {
		s.DividendYield = nullDecimal(dto.DividendYield)
	}
}

func mergeHome(h *AssetHome, dto *AssetHomeDto) {
	if dto == nil {
		return
	}
	if dto.HomeType != nil {
		h.HomeType = *dto.HomeType
	}
	if dto.LoanValue != nil {
		h.LoanValue = *dto.LoanValue
	}
	if dto.MonthlyMortgage != nil {
		h.MonthlyMortgage = *dto.MonthlyMortgage
	}
	if dto.MortgageRate != nil {
		h.MortgageRate = *dto.MortgageRate
	}
	if dto.DownPayment != nil {
		h.DownPayment = *dto.DownPayment
	}
	if dto.AnnualInsurance != nil {
		h.AnnualInsurance = nullDecimal(dto.AnnualInsurance)
	}
	if dto.AnnualPropertyTax != nil {
		h.AnnualPropertyTax = nullDecimal(dto.AnnualPropertyTax)
	}
	if dto.ClosingCosts != nil {
		h.ClosingCosts = nullDecimal(dto.ClosingCosts)
	}
	if dto.IsRefinanced != nil {
		h.IsRefinanced = *dto.IsRefinanced
	}
}
