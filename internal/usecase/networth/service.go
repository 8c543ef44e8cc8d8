package networth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/currency"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/ledger"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/loader"
)

// Settings holds the freshness windows applied when valuing holdings
type Settings struct {
	DisplayCurrency    string
	PriceCacheTTL      time.Duration
	SnapshotStaleAfter time.Duration
}

// Options are per-request overrides
type Options struct {
	DisplayCurrency string    // Empty uses the configured default
	Now             time.Time // Zero uses the current time
}

// TypeBreakdown groups the valued holdings of one type
type TypeBreakdown struct {
	Type       domain.HoldingType
	TotalValue decimal.Decimal
	Count      int
	Holdings   []domain.HoldingValue
}

// NetWorthResult represents the calculated net worth
type NetWorthResult struct {
	NetWorth        decimal.Decimal
	TotalAssets     decimal.Decimal
	TotalDebt       decimal.Decimal
	Breakdown       []TypeBreakdown // Asset types only, empty groups omitted
	DebtBreakdown   *TypeBreakdown  // Nil when there is no debt
	StaleHoldings   []domain.StaleHolding
	HasStaleData    bool
	RatesUsed       domain.RateTable
	DisplayCurrency string
	CalculatedAt    time.Time
}

// Group returns the breakdown for a holding type, or nil when nothing of that type was valued
func (r *NetWorthResult) Group(t domain.HoldingType) *TypeBreakdown {
	if t.IsDebt() {
		return r.DebtBreakdown
	}
	for i := range r.Breakdown {
		if r.Breakdown[i].Type == t {
			return &r.Breakdown[i]
		}
	}
	return nil
}

// NetWorthService handles current valuation of a user's holdings
type NetWorthService struct {
	HoldingRepo  domain.HoldingRepository
	RateProvider domain.ExchangeRateProvider
	Loader       *loader.Loader
	settings     Settings
	logger       zerolog.Logger
}

// NewNetWorthService creates a new NetWorthService instance
func NewNetWorthService(
	holdingRepo domain.HoldingRepository,
	rateProvider domain.ExchangeRateProvider,
	ld *loader.Loader,
	settings Settings,
	logger zerolog.Logger,
) *NetWorthService {
	return &NetWorthService{
		HoldingRepo:  holdingRepo,
		RateProvider: rateProvider,
		Loader:       ld,
		settings:     settings,
		logger:       logger.With().Str("component", "networth").Logger(),
	}
}

// CalculateNetWorth values every active holding of a user in the display currency
// Logic:
//   - Tradeable: replayed quantity x cached price. No symbol or no position contributes
//     nothing and is not stale; a missing price contributes 0 (no_price); an expired
//     price is still used (price_expired)
//   - Snapshot-valued: latest snapshot at or before now. None contributes nothing
//     (no_snapshot); one older than the staleness window is still used (snapshot_old)
//   - NetWorth = TotalAssets - TotalDebt
//
// Missing data never fails the calculation. Missing exchange rates and gateway
// infrastructure errors do.
func (s *NetWorthService) CalculateNetWorth(ctx context.Context, userID string, opts Options) (*NetWorthResult, error) {
	display, now, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	holdings, err := s.HoldingRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	valuations, err := s.valueHoldings(ctx, holdings, now)
	if err != nil {
		return nil, err
	}

	currencies := make([]string, 0, len(valuations))
	for _, v := range valuations {
		if v.contributes {
			currencies = append(currencies, v.currency)
		}
	}
	rates, err := s.Loader.Rates(ctx, s.RateProvider, display, currencies...)
	if err != nil {
		return nil, err
	}

	result := &NetWorthResult{
		NetWorth:        decimal.Zero,
		TotalAssets:     decimal.Zero,
		TotalDebt:       decimal.Zero,
		Breakdown:       []TypeBreakdown{},
		StaleHoldings:   []domain.StaleHolding{},
		RatesUsed:       rates,
		DisplayCurrency: display,
		CalculatedAt:    now,
	}

	groups := make(map[domain.HoldingType]*TypeBreakdown)
	for _, v := range valuations {
		if v.stale != nil {
			result.StaleHoldings = append(result.StaleHoldings, *v.stale)
		}
		if !v.contributes {
			continue
		}

		displayValue, err := currency.Convert(v.value.NativeValue, v.currency, display, rates)
		if err != nil {
			return nil, fmt.Errorf("failed to convert holding %s: %w", v.value.HoldingID, err)
		}
		v.value.DisplayValue = displayValue

		group, ok := groups[v.value.Type]
		if !ok {
			group = &TypeBreakdown{Type: v.value.Type, TotalValue: decimal.Zero}
			groups[v.value.Type] = group
		}
		group.Holdings = append(group.Holdings, v.value)
		group.TotalValue = group.TotalValue.Add(displayValue)
		group.Count++
	}

	for _, t := range domain.AllHoldingTypes {
		group, ok := groups[t]
		if !ok {
			continue
		}
		if t.IsDebt() {
			result.DebtBreakdown = group
			result.TotalDebt = group.TotalValue
			continue
		}
		result.Breakdown = append(result.Breakdown, *group)
		result.TotalAssets = result.TotalAssets.Add(group.TotalValue)
	}

	result.NetWorth = result.TotalAssets.Sub(result.TotalDebt)
	result.HasStaleData = len(result.StaleHoldings) > 0

	s.logger.Debug().
		Str("user_id", userID).
		Int("holdings", len(holdings)).
		Int("stale", len(result.StaleHoldings)).
		Str("net_worth", result.NetWorth.String()).
		Msg("Net worth calculated")

	return result, nil
}

// valuation is the native-currency outcome for one holding
type valuation struct {
	value       domain.HoldingValue
	currency    string
	contributes bool // Nonzero value that enters the totals
	stale       *domain.StaleHolding
}

// valueHoldings loads gateway data for all holdings concurrently and values each one
func (s *NetWorthService) valueHoldings(ctx context.Context, holdings []*domain.Holding, now time.Time) ([]valuation, error) {
	ledgers, err := s.Loader.Transactions(ctx, holdings)
	if err != nil {
		return nil, err
	}

	quantities := make(map[uuid.UUID]decimal.Decimal, len(ledgers))
	var symbols []string
	for _, h := range holdings {
		if !h.Type.IsTradeable() || h.SymbolOrEmpty() == "" {
			continue
		}
		quantity := ledger.CalculateQuantity(ledgers[h.ID], nil)
		quantities[h.ID] = quantity
		if quantity.IsPositive() {
			symbols = append(symbols, h.SymbolOrEmpty())
		} else if quantity.IsNegative() {
			s.logger.Warn().
				Str("holding_id", h.ID.String()).
				Str("quantity", quantity.String()).
				Msg("Ledger sells more than it buys, holding valued as no position")
		}
	}

	prices, err := s.Loader.Prices(ctx, symbols)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.Loader.LatestSnapshots(ctx, holdings, now)
	if err != nil {
		return nil, err
	}

	valuations := make([]valuation, 0, len(holdings))
	for _, h := range holdings {
		switch {
		case h.Type.IsTradeable():
			valuations = append(valuations, s.valueTradeable(h, quantities[h.ID], prices, now))
		case h.Type.IsSnapshotValued():
			valuations = append(valuations, s.valueSnapshot(h, snapshots[h.ID], now))
		default:
			s.logger.Warn().Str("holding_id", h.ID.String()).Str("type", string(h.Type)).Msg("Unknown holding type, skipped")
		}
	}

	return valuations, nil
}

// valueTradeable values a stock, ETF or crypto position
func (s *NetWorthService) valueTradeable(h *domain.Holding, quantity decimal.Decimal, prices map[string]*domain.CachedPrice, now time.Time) valuation {
	symbol := h.SymbolOrEmpty()
	v := valuation{
		value:    newHoldingValue(h),
		currency: h.Currency,
	}

	// Absence of a position is not staleness
	if symbol == "" || !quantity.IsPositive() {
		return v
	}

	price, ok := prices[loader.NormalizeSymbol(symbol)]
	if !ok {
		v.stale = newStale(h, domain.StaleReasonNoPrice, nil)
		s.logger.Debug().Str("symbol", symbol).Msg("No cached price")
		return v
	}

	if price.IsExpired(now, s.settings.PriceCacheTTL) {
		fetchedAt := price.FetchedAt
		v.stale = newStale(h, domain.StaleReasonPriceExpired, &fetchedAt)
	}

	if price.Currency != "" {
		v.currency = price.Currency
	}
	q, p := quantity, price.Price
	v.value.Quantity = &q
	v.value.Price = &p
	v.value.NativeCurrency = v.currency
	v.value.NativeValue = quantity.Mul(price.Price)
	v.contributes = !v.value.NativeValue.IsZero()

	return v
}

// valueSnapshot values a super, cash or debt balance
func (s *NetWorthService) valueSnapshot(h *domain.Holding, snapshot *domain.Snapshot, now time.Time) valuation {
	v := valuation{
		value:    newHoldingValue(h),
		currency: h.Currency,
	}

	if snapshot == nil {
		v.stale = newStale(h, domain.StaleReasonNoSnapshot, nil)
		return v
	}

	if snapshot.IsOlderThan(now, s.settings.SnapshotStaleAfter) {
		date := snapshot.Date
		v.stale = newStale(h, domain.StaleReasonSnapshotOld, &date)
	}

	if snapshot.Currency != "" {
		v.currency = snapshot.Currency
	}
	v.value.NativeCurrency = v.currency
	v.value.NativeValue = snapshot.Balance
	v.contributes = !snapshot.Balance.IsZero()

	return v
}

// resolve applies defaults to the request options
func (s *NetWorthService) resolve(opts Options) (string, time.Time, error) {
	display := strings.ToUpper(opts.DisplayCurrency)
	if display == "" {
		display = strings.ToUpper(s.settings.DisplayCurrency)
	}
	if err := domain.ValidateCurrency(display); err != nil {
		return "", time.Time{}, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return display, now, nil
}

func newHoldingValue(h *domain.Holding) domain.HoldingValue {
	return domain.HoldingValue{
		HoldingID:      h.ID,
		Name:           h.Name,
		Symbol:         h.SymbolOrEmpty(),
		Type:           h.Type,
		NativeCurrency: h.Currency,
		NativeValue:    decimal.Zero,
		DisplayValue:   decimal.Zero,
	}
}

func newStale(h *domain.Holding, reason domain.StaleReason, asOf *time.Time) *domain.StaleHolding {
	return &domain.StaleHolding{
		HoldingID: h.ID,
		Name:      h.Name,
		Type:      h.Type,
		Reason:    reason,
		AsOf:      asOf,
	}
}
