package networth

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// HoldingShare is a holding's value and its percentage of its category
type HoldingShare struct {
	domain.HoldingValue
	Percentage decimal.Decimal
}

// AssetCategory is one holding type's share of total assets
type AssetCategory struct {
	Type       domain.HoldingType
	Value      decimal.Decimal
	Percentage decimal.Decimal
	Count      int
	Holdings   []HoldingShare
}

// AssetBreakdownResult represents allocation across asset types
type AssetBreakdownResult struct {
	Assets          []AssetCategory // Sorted by value, largest first
	Debt            *AssetCategory  // Reported as 100% of itself, never netted into Assets
	TotalAssets     decimal.Decimal
	TotalDebt       decimal.Decimal
	StaleHoldings   []domain.StaleHolding
	DisplayCurrency string
	RatesUsed       domain.RateTable
	CalculatedAt    time.Time
}

// CalculateAssetBreakdown computes each asset type's percentage of total assets and
// each holding's percentage within its type
func (s *NetWorthService) CalculateAssetBreakdown(ctx context.Context, userID string, opts Options) (*AssetBreakdownResult, error) {
	netWorth, err := s.CalculateNetWorth(ctx, userID, opts)
	if err != nil {
		return nil, err
	}

	return BuildAssetBreakdown(netWorth), nil
}

// BuildAssetBreakdown derives the allocation view from a net worth result
func BuildAssetBreakdown(netWorth *NetWorthResult) *AssetBreakdownResult {
	result := &AssetBreakdownResult{
		Assets:          make([]AssetCategory, 0, len(netWorth.Breakdown)),
		TotalAssets:     netWorth.TotalAssets,
		TotalDebt:       netWorth.TotalDebt,
		StaleHoldings:   netWorth.StaleHoldings,
		DisplayCurrency: netWorth.DisplayCurrency,
		RatesUsed:       netWorth.RatesUsed,
		CalculatedAt:    netWorth.CalculatedAt,
	}

	for _, group := range netWorth.Breakdown {
		category := newCategory(group)
		category.Percentage = percentOf(group.TotalValue, netWorth.TotalAssets)
		result.Assets = append(result.Assets, category)
	}

	// Stable keeps the type order for equal values
	sort.SliceStable(result.Assets, func(i, j int) bool {
		return result.Assets[i].Value.GreaterThan(result.Assets[j].Value)
	})

	if netWorth.DebtBreakdown != nil {
		debt := newCategory(*netWorth.DebtBreakdown)
		debt.Percentage = hundred
		result.Debt = &debt
	}

	return result
}

func newCategory(group TypeBreakdown) AssetCategory {
	category := AssetCategory{
		Type:     group.Type,
		Value:    group.TotalValue,
		Count:    group.Count,
		Holdings: make([]HoldingShare, 0, len(group.Holdings)),
	}

	for _, hv := range group.Holdings {
		category.Holdings = append(category.Holdings, HoldingShare{
			HoldingValue: hv,
			Percentage:   percentOf(hv.DisplayValue, group.TotalValue),
		})
	}

	sort.SliceStable(category.Holdings, func(i, j int) bool {
		return category.Holdings[i].DisplayValue.GreaterThan(category.Holdings[j].DisplayValue)
	})

	return category
}

// percentOf returns part / whole x 100, or 0 when whole is 0
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
