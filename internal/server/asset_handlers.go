package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kamacharovs/aiof-asset/internal/usecase"
)

type AssetRequest struct {
	Name     *string          `json:"name"`
	TypeName *string          `json:"typeName"`
	Value    *decimal.Decimal `json:"value"`
}

func (r AssetRequest) toDto() usecase.AssetDto {
	return usecase.AssetDto{
		Name:     r.Name,
		TypeName: r.TypeName,
		Value:    r.Value,
	}
}

type AssetStockRequest struct {
	AssetRequest
	TickerSymbol  *string          `json:"tickerSymbol"`
	Shares        *decimal.Decimal `json:"shares"`
	ExpenseRatio  *decimal.Decimal `json:"expenseRatio"`
	DividendYield *decimal.Decimal `json:"dividendYield"`
}

func (r AssetStockRequest) toDto() usecase.AssetDto {
	dto := r.AssetRequest.toDto()
	dto.Stock = &usecase.AssetStockDto{
		TickerSymbol:  r.TickerSymbol,
		Shares:        r.Shares,
		ExpenseRatio:  r.ExpenseRatio,
		DividendYield: r.DividendYield,
	}
	return dto
}

type AssetHomeRequest struct {
	AssetRequest
	HomeType          *string          `json:"homeType"`
	LoanValue         *decimal.Decimal `json:"loanValue"`
	MonthlyMortgage   *decimal.Decimal `json:"monthlyMortgage"`
	MortgageRate      *decimal.Decimal `json:"mortgageRate"`
	DownPayment       *decimal.Decimal `json:"downPayment"`
	AnnualInsurance   *decimal.Decimal `json:"annualInsurance"`
	AnnualPropertyTax *decimal.Decimal `json:"annualPropertyTax"`
	ClosingCosts      *decimal.Decimal `json:"closingCosts"`
	IsRefinanced      *bool            `json:"isRefinanced"`
}

func (r AssetHomeRequest) toDto() usecase.AssetDto {
	dto := r.AssetRequest.toDto()
	dto.Home = &usecase.AssetHomeDto{
		HomeType:          r.HomeType,
		LoanValue:         r.LoanValue,
		MonthlyMortgage:   r.MonthlyMortgage,
		MortgageRate:      r.MortgageRate,
		DownPayment:       r.DownPayment,
		AnnualInsurance:   r.AnnualInsurance,
		AnnualPropertyTax: r.AnnualPropertyTax,
		ClosingCosts:      r.ClosingCosts,
		IsRefinanced:      r.IsRefinanced,
	}
	return dto
}

type SnapshotRequest struct {
	Name     *string          `json:"name"`
	TypeName *string          `json:"typeName"`
	Value    *decimal.Decimal `json:"value"`
}

type SnapshotsQuery struct {
	SnapshotsStartDate string `query:"snapshotsStartDate"`
	SnapshotsEndDate   string `query:"snapshotsEndDate"`
}

type ListAssetsQuery struct {
	SnapshotsQuery
	TypeName string `query:"typeName" validate:"omitempty,max=100"`
}

var dateLayouts = []string{time.RFC3339, time.DateOnly}

func parseDate(param, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", param, v))
}

func (q SnapshotsQuery) option() (usecase.SnapshotsOption, error) {
	start, err := parseDate("snapshotsStartDate", q.SnapshotsStartDate)
	if err != nil {
		return usecase.SnapshotsOption{}, err
	}
	end, err := parseDate("snapshotsEndDate", q.SnapshotsEndDate)
	if err != nil {
		return usecase.SnapshotsOption{}, err
	}
	return usecase.SnapshotsOption{Start: start, End: end}, nil
}

func paramID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid asset id: %q", c.Param("id")))
	}
	return id, nil
}

func (s *Server) ListAssetTypes(c echo.Context) error {
	types, err := s.server.ListAssetTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Res{Data: types, Meta: &Meta{Total: len(types)}})
}

func (s *Server) list(c echo.Context, repo usecase.AssetRepository) error {
	var q ListAssetsQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	if err := s.validator.Struct(q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opt, err := q.option()
	if err != nil {
		return err
	}

	assets, err := repo.List(c.Request().Context(), usecase.ListOption{
		SnapshotsOption: opt,
		TypeName:        q.TypeName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Res{Data: assets, Meta: &Meta{Total: len(assets)}})
}

func (s *Server) get(c echo.Context, repo usecase.AssetRepository) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var q SnapshotsQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	opt, err := q.option()
	if err != nil {
		return err
	}

	asset, err := repo.Get(c.Request().Context(), id, opt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Res{Data: asset})
}

func (s *Server) add(c echo.Context, repo usecase.AssetRepository, dto usecase.AssetDto) error {
	asset, err := repo.Add(c.Request().Context(), dto)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, Res{Data: asset})
}

func (s *Server) update(c echo.Context, repo usecase.AssetRepository, id int, dto usecase.AssetDto) error {
	asset, err := repo.Update(c.Request().Context(), id, dto)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Res{Data: asset})
}

func (s *Server) ListAssets(c echo.Context) error {
	return s.list(c, s.server.Assets())
}

func (s *Server) GetAsset(c echo.Context) error {
	return s.get(c, s.server.Assets())
}

func (s *Server) AddAsset(c echo.Context) error {
	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return s.add(c, s.server.Assets(), req.toDto())
}

func (s *Server) AddAssets(c echo.Context) error {
	var req []AssetRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	dtos := make([]usecase.AssetDto, 0, len(req))
	for _, r := range req {
		dtos = append(dtos, r.toDto())
	}

	assets, err := s.server.Assets().AddMany(c.Request().Context(), dtos)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, Res{
		Data:    assets,
		Message: fmt.Sprintf("Added %d of %d Assets", len(assets), len(dtos)),
		Meta:    &Meta{Total: len(assets)},
	})
}

func (s *Server) UpdateAsset(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return s.update(c, s.server.Assets(), id, req.toDto())
}

func (s *Server) DeleteAsset(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := s.server.Assets().Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) AddSnapshot(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req SnapshotRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	snapshot, err := s.server.Assets().AddSnapshot(c.Request().Context(), usecase.AssetSnapshotDto{
		AssetID:  id,
		Name:     req.Name,
		TypeName: req.TypeName,
		Value:    req.Value,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, Res{Data: snapshot})
}

func (s *Server) ListStocks(c echo.Context) error {
	return s.list(c, s.server.Stocks())
}

func (s *Server) GetStock(c echo.Context) error {
	return s.get(c, s.server.Stocks())
}

func (s *Server) AddStock(c echo.Context) error {
	var req AssetStockRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return s.add(c, s.server.Stocks(), req.toDto())
}

func (s *Server) UpdateStock(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req AssetStockRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return s.update(c, s.server.Stocks(), id, req.toDto())
}

func (s *Server) ListHomes(c echo.Context) error {
	return s.list(c, s.server.Homes())
}

func (s *Server) GetHome(c echo.Context) error {
	return s.get(c, s.server.Homes())
}

func (s *Server) AddHome(c echo.Context) error {
	var req AssetHomeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return s.add(c, s.server.Homes(), req.toDto())
}

func (s *Server) UpdateHome(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req AssetHomeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	return s.update(c, s.server.Homes(), id, req.toDto())
}
