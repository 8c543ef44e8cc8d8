package performance

import (
	"context"
	"fmt"
	"sort"
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

// DefaultLimit is used when neither the request nor the settings name a limit
const DefaultLimit = 5

var hundred = decimal.NewFromInt(100)

// Settings holds the defaults applied to ranking requests
type Settings struct {
	DisplayCurrency string
	Limit           int
}

// Options are per-request overrides
type Options struct {
	Limit           int // Zero uses the configured default
	DisplayCurrency string
	Now             time.Time
}

// Performer is a ranked holding's unrealised gain or loss in display currency
type Performer struct {
	HoldingID       uuid.UUID
	Name            string
	Symbol          string
	Type            domain.HoldingType
	Quantity        decimal.Decimal
	CurrentValue    decimal.Decimal
	CostBasis       decimal.Decimal
	GainLoss        decimal.Decimal
	GainLossPercent decimal.Decimal
}

// TopPerformersResult holds the best and worst performing positions
type TopPerformersResult struct {
	Gainers         []Performer // Largest gain first
	Losers          []Performer // Largest loss first
	DisplayCurrency string
	CalculatedAt    time.Time
}

// PerformanceService ranks tradeable holdings by unrealised gain
type PerformanceService struct {
	HoldingRepo  domain.HoldingRepository
	RateProvider domain.ExchangeRateProvider
	Loader       *loader.Loader
	settings     Settings
	logger       zerolog.Logger
}

// NewPerformanceService creates a new PerformanceService instance
func NewPerformanceService(
	holdingRepo domain.HoldingRepository,
	rateProvider domain.ExchangeRateProvider,
	ld *loader.Loader,
	settings Settings,
	logger zerolog.Logger,
) *PerformanceService {
	if settings.Limit <= 0 {
		settings.Limit = DefaultLimit
	}
	return &PerformanceService{
		HoldingRepo:  holdingRepo,
		RateProvider: rateProvider,
		Loader:       ld,
		settings:     settings,
		logger:       logger.With().Str("component", "performance").Logger(),
	}
}

// candidate is a rankable holding before currency conversion
type candidate struct {
	holding   *domain.Holding
	quantity  decimal.Decimal
	costBasis decimal.Decimal
	price     *domain.CachedPrice
}

// GetTopPerformers returns the holdings with the largest unrealised gains and losses
// Logic:
//   - A holding is rankable with a positive position, a cached price and a nonzero cost basis
//   - GainLoss = quantity x price - FIFO cost basis, both converted to the display currency
//   - GainLossPercent = GainLoss / CostBasis x 100
//   - Gainers descend by GainLoss, losers ascend; ties break on symbol
//
// Unrankable holdings are skipped silently. Missing exchange rates fail the request.
func (s *PerformanceService) GetTopPerformers(ctx context.Context, userID string, opts Options) (*TopPerformersResult, error) {
	display, limit, now, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	holdings, err := s.HoldingRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	candidates, err := s.candidates(ctx, holdings)
	if err != nil {
		return nil, err
	}

	currencies := make([]string, 0, 2*len(candidates))
	for _, c := range candidates {
		currencies = append(currencies, c.holding.Currency, priceCurrency(c))
	}
	rates, err := s.Loader.Rates(ctx, s.RateProvider, display, currencies...)
	if err != nil {
		return nil, err
	}

	result := &TopPerformersResult{
		Gainers:         []Performer{},
		Losers:          []Performer{},
		DisplayCurrency: display,
		CalculatedAt:    now,
	}

	for _, c := range candidates {
		p, err := s.rank(c, display, rates)
		if err != nil {
			return nil, err
		}
		switch {
		case p.GainLoss.IsPositive():
			result.Gainers = append(result.Gainers, p)
		case p.GainLoss.IsNegative():
			result.Losers = append(result.Losers, p)
		}
	}

	sortPerformers(result.Gainers, func(a, b Performer) bool { return a.GainLoss.GreaterThan(b.GainLoss) })
	sortPerformers(result.Losers, func(a, b Performer) bool { return a.GainLoss.LessThan(b.GainLoss) })

	result.Gainers = truncate(result.Gainers, limit)
	result.Losers = truncate(result.Losers, limit)

	s.logger.Debug().
		Str("user_id", userID).
		Int("rankable", len(candidates)).
		Int("gainers", len(result.Gainers)).
		Int("losers", len(result.Losers)).
		Msg("Top performers calculated")

	return result, nil
}

// candidates replays every tradeable ledger and keeps the rankable holdings
func (s *PerformanceService) candidates(ctx context.Context, holdings []*domain.Holding) ([]candidate, error) {
	ledgers, err := s.Loader.Transactions(ctx, holdings)
	if err != nil {
		return nil, err
	}

	positions := make([]candidate, 0, len(holdings))
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if !h.Type.IsTradeable() || h.SymbolOrEmpty() == "" {
			continue
		}
		txs := ledgers[h.ID]
		quantity := ledger.CalculateQuantity(txs, nil)
		if !quantity.IsPositive() {
			continue
		}
		basis := ledger.CalculateCostBasis(txs, nil)
		if basis.CostBasis.IsZero() {
			continue
		}
		positions = append(positions, candidate{holding: h, quantity: quantity, costBasis: basis.CostBasis})
		symbols = append(symbols, h.SymbolOrEmpty())
	}

	prices, err := s.Loader.Prices(ctx, symbols)
	if err != nil {
		return nil, err
	}

	rankable := positions[:0]
	for _, c := range positions {
		price, ok := prices[loader.NormalizeSymbol(c.holding.SymbolOrEmpty())]
		if !ok {
			continue
		}
		c.price = price
		rankable = append(rankable, c)
	}

	return rankable, nil
}

// rank converts one candidate into display currency and derives its gain
func (s *PerformanceService) rank(c candidate, display string, rates domain.RateTable) (Performer, error) {
	value, err := currency.Convert(c.quantity.Mul(c.price.Price), priceCurrency(c), display, rates)
	if err != nil {
		return Performer{}, fmt.Errorf("failed to convert value of holding %s: %w", c.holding.ID, err)
	}
	basis, err := currency.Convert(c.costBasis, c.holding.Currency, display, rates)
	if err != nil {
		return Performer{}, fmt.Errorf("failed to convert cost basis of holding %s: %w", c.holding.ID, err)
	}

	gainLoss := value.Sub(basis)
	return Performer{
		HoldingID:       c.holding.ID,
		Name:            c.holding.Name,
		Symbol:          c.holding.SymbolOrEmpty(),
		Type:            c.holding.Type,
		Quantity:        c.quantity,
		CurrentValue:    value,
		CostBasis:       basis,
		GainLoss:        gainLoss,
		GainLossPercent: gainLoss.Div(basis).Mul(hundred),
	}, nil
}

// resolve applies defaults to the request options
func (s *PerformanceService) resolve(opts Options) (string, int, time.Time, error) {
	if opts.Limit < 0 {
		return "", 0, time.Time{}, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidRequest)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = s.settings.Limit
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

	return display, limit, now, nil
}

// priceCurrency is the currency the cached price is quoted in
func priceCurrency(c candidate) string {
	if c.price != nil && c.price.Currency != "" {
		return c.price.Currency
	}
	return c.holding.Currency
}

func sortPerformers(performers []Performer, better func(a, b Performer) bool) {
	sort.SliceStable(performers, func(i, j int) bool {
		a, b := performers[i], performers[j]
		if a.GainLoss.Equal(b.GainLoss) {
			return a.Symbol < b.Symbol
		}
		return better(a, b)
	})
}

func truncate(performers []Performer, limit int) []Performer {
	if len(performers) > limit {
		return performers[:limit]
	}
	return performers
}
