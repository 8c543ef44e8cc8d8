package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/currency"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/ledger"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/loader"
)

const (
	// DefaultMonths is used when neither the request nor the settings name a window
	DefaultMonths = 12
	// MaxMonths bounds a single reconstruction
	MaxMonths = 120
)

// Settings holds the defaults applied to history requests
type Settings struct {
	DisplayCurrency string
	Months          int
}

// Options are per-request overrides
type Options struct {
	Months          int // Zero uses the configured default
	DisplayCurrency string
	Now             time.Time
}

// HistoryPoint is the month-end net worth in display currency
type HistoryPoint struct {
	Date        time.Time
	NetWorth    decimal.Decimal
	TotalAssets decimal.Decimal
	TotalDebt   decimal.Decimal
}

// HistoryResult is the monthly series, oldest first
type HistoryResult struct {
	History         []HistoryPoint
	DisplayCurrency string
	GeneratedAt     time.Time
}

// HistoryService reconstructs past month-end net worth from ledgers and snapshots
type HistoryService struct {
	HoldingRepo  domain.HoldingRepository
	RateProvider domain.ExchangeRateProvider
	Loader       *loader.Loader
	settings     Settings
	logger       zerolog.Logger
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(
	holdingRepo domain.HoldingRepository,
	rateProvider domain.ExchangeRateProvider,
	ld *loader.Loader,
	settings Settings,
	logger zerolog.Logger,
) *HistoryService {
	if settings.Months <= 0 {
		settings.Months = DefaultMonths
	}
	return &HistoryService{
		HoldingRepo:  holdingRepo,
		RateProvider: rateProvider,
		Loader:       ld,
		settings:     settings,
		logger:       logger.With().Str("component", "history").Logger(),
	}
}

// MonthEnds returns the last instant of each of the n months ending with now's month, oldest first
func MonthEnds(now time.Time, n int) []time.Time {
	now = now.UTC()
	ends := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		firstOfNext := time.Date(now.Year(), now.Month()-time.Month(i)+1, 1, 0, 0, 0, 0, time.UTC)
		ends = append(ends, firstOfNext.Add(-time.Nanosecond))
	}
	return ends
}

// amount is one holding's native contribution at one month-end
type amount struct {
	value    decimal.Decimal
	currency string
	debt     bool
}

// CalculateHistoricalNetWorth rebuilds net worth at each month-end of the window
// Logic:
//   - Tradeable: quantity replayed through the month-end x today's cached price.
//     Past prices are not retained, so earlier points value past positions at current
//     prices.
//   - Snapshot-valued: the latest snapshot on or before the month-end, carried forward;
//     none contributes 0
//
// Staleness is not reported here. Ledgers, snapshots and prices are each fetched once.
func (s *HistoryService) CalculateHistoricalNetWorth(ctx context.Context, userID string, opts Options) (*HistoryResult, error) {
	display, months, now, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	holdings, err := s.HoldingRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	ledgers, err := s.Loader.Transactions(ctx, holdings)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if h.Type.IsTradeable() && len(ledgers[h.ID]) > 0 {
			symbols = append(symbols, h.SymbolOrEmpty())
		}
	}
	prices, err := s.Loader.Prices(ctx, symbols)
	if err != nil {
		return nil, err
	}

	histories, err := s.Loader.SnapshotHistories(ctx, holdings)
	if err != nil {
		return nil, err
	}

	ends := MonthEnds(now, months)
	amounts := make([][]amount, len(ends))
	var currencies []string
	for i, end := range ends {
		for _, h := range holdings {
			a, ok := valueAt(h, end, ledgers[h.ID], histories[h.ID], prices)
			if !ok {
				continue
			}
			amounts[i] = append(amounts[i], a)
			currencies = append(currencies, a.currency)
		}
	}

	rates, err := s.Loader.Rates(ctx, s.RateProvider, display, currencies...)
	if err != nil {
		return nil, err
	}

	result := &HistoryResult{
		History:         make([]HistoryPoint, 0, len(ends)),
		DisplayCurrency: display,
		GeneratedAt:     now,
	}
	for i, end := range ends {
		point := HistoryPoint{Date: end, TotalAssets: decimal.Zero, TotalDebt: decimal.Zero}
		for _, a := range amounts[i] {
			converted, err := currency.Convert(a.value, a.currency, display, rates)
			if err != nil {
				return nil, err
			}
			if a.debt {
				point.TotalDebt = point.TotalDebt.Add(converted)
			} else {
				point.TotalAssets = point.TotalAssets.Add(converted)
			}
		}
		point.NetWorth = point.TotalAssets.Sub(point.TotalDebt)
		result.History = append(result.History, point)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("months", months).
		Int("holdings", len(holdings)).
		Msg("Historical net worth calculated")

	return result, nil
}

// valueAt returns a holding's nonzero native value at end, or false when it contributes nothing
func valueAt(
	h *domain.Holding,
	end time.Time,
	txs []*domain.Transaction,
	snapshots []*domain.Snapshot,
	prices map[string]*domain.CachedPrice,
) (amount, bool) {
	switch {
	case h.Type.IsTradeable():
		price, ok := prices[loader.NormalizeSymbol(h.SymbolOrEmpty())]
		if !ok {
			return amount{}, false
		}
		quantity := ledger.CalculateQuantity(txs, &end)
		if !quantity.IsPositive() {
			return amount{}, false
		}
		ccy := price.Currency
		if ccy == "" {
			ccy = h.Currency
		}
		return amount{value: quantity.Mul(price.Price), currency: ccy}, !price.Price.IsZero()

	case h.Type.IsSnapshotValued():
		snapshot := ledger.SnapshotAsOf(snapshots, end)
		if snapshot == nil || snapshot.Balance.IsZero() {
			return amount{}, false
		}
		ccy := snapshot.Currency
		if ccy == "" {
			ccy = h.Currency
		}
		return amount{value: snapshot.Balance, currency: ccy, debt: h.Type.IsDebt()}, true
	}
	return amount{}, false
}

// resolve applies defaults to the request options
func (s *HistoryService) resolve(opts Options) (string, int, time.Time, error) {
	months := opts.Months
	if months == 0 {
		months = s.settings.Months
	}
	if months < 1 || months > MaxMonths {
		return "", 0, time.Time{}, fmt.Errorf("%w: months must be between 1 and %d, got %d", domain.ErrInvalidRequest, MaxMonths, months)
	}

	display := strings.ToUpper(opts.DisplayCurrency)
	if display == "" {
		display = strings.ToUpper(s.settings.DisplayCurrency)
	}
	if err := domain.ValidateCurrency(display); err != nil {
		return "", 0, time.Time{}, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return display, months, now, nil
}
