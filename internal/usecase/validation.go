package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength     = 100
	maxTickerLength   = 50
	maxHomeTypeLength = 100

	valueRule    = "amount"
	positiveRule = "positive"
	fractionRule = "fraction"
)

var (
	maxAmount   = decimal.NewFromInt(99999999)
	maxFraction = decimal.NewFromInt(1)
)

type TypeChecker interface {
	AssetTypeExists(context.Context, string) (bool, error)
}

// Validator holds the Add and Update rule sets of every write DTO. Field rules
// stop at the first failure per field; all failing fields are reported.
type Validator struct {
	v     *validator.Validate
	types TypeChecker
}

func NewValidator(types TypeChecker) *Validator {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation(valueRule, isAmount)
	_ = v.RegisterValidation(positiveRule, isPositive)
	_ = v.RegisterValidation(fractionRule, isFraction)
	return &Validator{v: v, types: types}
}

// decimalValue hands decimals to the rules as exact strings.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(fl.Field().String())
	return d, err == nil
}

// isAmount accepts [0, 99999999).
func isAmount(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.Sign() >= 0 && d.LessThan(maxAmount)
}

// isPositive accepts (0, 99999999).
func isPositive(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.Sign() > 0 && d.LessThan(maxAmount)
}

// isFraction accepts (0, 1], a percentage within (0, 100].
func isFraction(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.Sign() > 0 && d.LessThanOrEqual(maxFraction)
}

// ValidateTypeName checks a bare type name, including that it references an
// existing asset type.
func (v *Validator) ValidateTypeName(ctx context.Context, name string) error {
	errs := &ValidationError{}
	if err := v.typeName(ctx, errs, "typeName", &name, true); err != nil {
		return err
	}
	return errs.orNil()
}

func (v *Validator) ValidateAssetForAdd(ctx context.Context, dto AssetDto) error {
	errs := &ValidationError{}
	if err := v.asset(ctx, errs, dto, true); err != nil {
		return err
	}
	return errs.orNil()
}

func (v *Validator) ValidateAssetForUpdate(ctx context.Context, dto AssetDto) error {
	errs := &ValidationError{}
	if err := v.asset(ctx, errs, dto, false); err != nil {
		return err
	}
	if dto.Name == nil && dto.TypeName == nil && dto.Value == nil {
		errs.Add("asset", "at least one of name, typeName or value must be provided")
	}
	return errs.orNil()
}

func (v *Validator) ValidateStockForAdd(ctx context.Context, dto AssetDto) error {
	errs := &ValidationError{}
	if err := v.asset(ctx, errs, dto, true); err != nil {
		return err
	}
	stock := dto.Stock
	if stock == nil {
		stock = &AssetStockDto{}
	}
	v.stock(errs, stock, true)
	return errs.orNil()
}

func (v *Validator) ValidateStockForUpdate(ctx context.Context, dto AssetDto) error {
	errs := &ValidationError{}
	if err := v.asset(ctx, errs, dto, false); err != nil {
		return err
	}
	if dto.Stock != nil {
		v.stock(errs, dto.Stock, false)
	}
	if dto.Name == nil && dto.TypeName == nil && dto.Value == nil && !dto.Stock.hasFields() {
		errs.Add("asset", "at least one field must be provided")
	}
	return errs.orNil()
}

func (v *Validator) ValidateHomeForAdd(ctx context.Context, dto AssetDto) error {
	errs := &ValidationError{}
	if err := v.asset(ctx, errs, dto, true); err != nil {
		return err
	}
	home := dto.Home
	if home == nil {
		home = &AssetHomeDto{}
	}
	v.home(errs, home, true)
	return errs.orNil()
}

func (v *Validator) ValidateHomeForUpdate(ctx context.Context, dto AssetDto) error {
	errs := &ValidationError{}
	if err := v.asset(ctx, errs, dto, false); err != nil {
		return err
	}
	if dto.Home != nil {
		v.home(errs, dto.Home, false)
	}
	if dto.Name == nil && dto.TypeName == nil && dto.Value == nil && !dto.Home.hasFields() {
		errs.Add("asset", "at least one field must be provided")
	}
	return errs.orNil()
}

func (v *Validator) ValidateSnapshotForAdd(ctx context.Context, dto AssetSnapshotDto) error {
	errs := &ValidationError{}
	if err := v.snapshot(ctx, errs, dto); err != nil {
		return err
	}
	return errs.orNil()
}

func (v *Validator) ValidateSnapshotForUpdate(ctx context.Context, dto AssetSnapshotDto) error {
	errs := &ValidationError{}
	if err := v.snapshot(ctx, errs, dto); err != nil {
		return err
	}
	if !dto.hasFields() {
		errs.Add("snapshot", "at least one of name, typeName or value must be provided")
	}
	return errs.orNil()
}

func (v *Validator) asset(ctx context.Context, errs *ValidationError, dto AssetDto, required bool) error {
	v.str(errs, "name", dto.Name, required, maxNameLength)
	v.dec(errs, "value", dto.Value, required, valueRule)
	return v.typeName(ctx, errs, "typeName", dto.TypeName, required)
}

func (v *Validator) snapshot(ctx context.Context, errs *ValidationError, dto AssetSnapshotDto) error {
	if dto.AssetID <= 0 {
		errs.Add("assetId", "is required")
	}
	v.str(errs, "name", dto.Name, false, maxNameLength)
	v.dec(errs, "value", dto.Value, false, valueRule)
	return v.typeName(ctx, errs, "typeName", dto.TypeName, false)
}

func (v *Validator) stock(errs *ValidationError, dto *AssetStockDto, required bool) {
	v.str(errs, "tickerSymbol", dto.TickerSymbol, required, maxTickerLength)
	v.dec(errs, "shares", dto.Shares, required, positiveRule)
	v.dec(errs, "expenseRatio", dto.ExpenseRatio, required, fractionRule)
	v.dec(errs, "dividendYield", dto.DividendYield, required, fractionRule)
}

func (v *Validator) home(errs *ValidationError, dto *AssetHomeDto, required bool) {
	v.str(errs, "homeType", dto.HomeType, required, maxHomeTypeLength)
	v.dec(errs, "loanValue", dto.LoanValue, required, valueRule)
	v.dec(errs, "monthlyMortgage", dto.MonthlyMortgage, required, valueRule)
	v.dec(errs, "downPayment", dto.DownPayment, required, valueRule)
	v.dec(errs, "mortgageRate", dto.MortgageRate, required, fractionRule)
	v.dec(errs, "annualInsurance", dto.AnnualInsurance, false, valueRule)
	v.dec(errs, "annualPropertyTax", dto.AnnualPropertyTax, false, valueRule)
	v.dec(errs, "closingCosts", dto.ClosingCosts, false, valueRule)
}

// typeName validates the field bounds first and only then asks the store
// whether the type exists. Store failures are returned, not reported.
func (v *Validator) typeName(ctx context.Context, errs *ValidationError, field string, s *string, required bool) error {
	if !v.str(errs, field, s, required, maxNameLength) || s == nil {
		return nil
	}
	ok, err := v.types.AssetTypeExists(ctx, *s)
	if err != nil {
		return fmt.Errorf("check asset type %q: %w", *s, err)
	}
	if !ok {
		errs.Add(field, fmt.Sprintf("asset type %q does not exist", *s))
	}
	return nil
}

func (v *Validator) str(errs *ValidationError, field string, s *string, required bool, max int) bool {
	if s == nil {
		if required {
			errs.Add(field, "is required")
			return false
		}
		return true
	}
	return v.check(errs, field, strings.TrimSpace(*s), fmt.Sprintf("required,max=%d", max))
}

func (v *Validator) dec(errs *ValidationError, field string, d *decimal.Decimal, required bool, rule string) bool {
	if d == nil {
		if required {
			errs.Add(field, "is required")
			return false
		}
		return true
	}
	return v.check(errs, field, *d, rule)
}

func (v *Validator) check(errs *ValidationError, field string, value any, rule string) bool {
	err := v.v.Var(value, rule)
	if err == nil {
		return true
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		errs.Add(field, err.Error())
		return false
	}
	errs.Add(field, reason(ves[0]))
	return false
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case valueRule:
		return "must be between 0 and 99999999"
	case positiveRule:
		return "must be greater than 0 and less than 99999999"
	case fractionRule:
		return "must be a percentage within (0, 100], expressed as a fraction"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
