package loader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/currency"
)

// Settings bounds the gateway fan-out of a single request
type Settings struct {
	GatewayTimeout time.Duration // Per gateway call; a price or snapshot timeout degrades to missing data
	Concurrency    int
}

// Loader fetches ledgers, snapshots and prices for many holdings concurrently.
// Results are keyed by holding ID or symbol, never by completion order.
type Loader struct {
	TransactionRepo domain.TransactionRepository
	SnapshotRepo    domain.SnapshotRepository
	PriceGateway    domain.PriceGateway
	settings        Settings
	logger          zerolog.Logger
}

// NewLoader creates a new Loader instance
func NewLoader(
	transactionRepo domain.TransactionRepository,
	snapshotRepo domain.SnapshotRepository,
	priceGateway domain.PriceGateway,
	settings Settings,
	logger zerolog.Logger,
) *Loader {
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	return &Loader{
		TransactionRepo: transactionRepo,
		SnapshotRepo:    snapshotRepo,
		PriceGateway:    priceGateway,
		settings:        settings,
		logger:          logger.With().Str("component", "loader").Logger(),
	}
}

// Transactions fetches the ledger of every tradeable holding
func (l *Loader) Transactions(ctx context.Context, holdings []*domain.Holding) (map[uuid.UUID][]*domain.Transaction, error) {
	var mu sync.Mutex
	ledgers := make(map[uuid.UUID][]*domain.Transaction)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency)

	for _, h := range holdings {
		if !h.Type.IsTradeable() {
			continue
		}
		g.Go(func() error {
			txs, err := l.TransactionRepo.ListByHolding(gctx, h.ID, nil)
			if err != nil {
				return fmt.Errorf("failed to list transactions for holding %s: %w", h.ID, err)
			}
			mu.Lock()
			ledgers[h.ID] = txs
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ledgers, nil
}

// LatestSnapshots fetches the latest snapshot on or before asOf for every snapshot-valued holding.
// Holdings without a snapshot, or whose lookup timed out, are absent from the result.
func (l *Loader) LatestSnapshots(ctx context.Context, holdings []*domain.Holding, asOf time.Time) (map[uuid.UUID]*domain.Snapshot, error) {
	var mu sync.Mutex
	snapshots := make(map[uuid.UUID]*domain.Snapshot)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency)

	for _, h := range holdings {
		if !h.Type.IsSnapshotValued() {
			continue
		}
		g.Go(func() error {
			callCtx, cancel := l.callContext(gctx)
			defer cancel()

			snapshot, err := l.SnapshotRepo.Latest(callCtx, h.ID, &asOf)
			if err != nil {
				if l.degrades(gctx, err) {
					l.logger.Warn().Err(err).Str("holding_id", h.ID.String()).Msg("snapshot lookup timed out, treating as missing")
					return nil
				}
				return fmt.Errorf("failed to get latest snapshot for holding %s: %w", h.ID, err)
			}
			if snapshot == nil {
				return nil
			}
			mu.Lock()
			snapshots[h.ID] = snapshot
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// SnapshotHistories fetches every snapshot of every snapshot-valued holding
func (l *Loader) SnapshotHistories(ctx context.Context, holdings []*domain.Holding) (map[uuid.UUID][]*domain.Snapshot, error) {
	var mu sync.Mutex
	histories := make(map[uuid.UUID][]*domain.Snapshot)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency)

	for _, h := range holdings {
		if !h.Type.IsSnapshotValued() {
			continue
		}
		g.Go(func() error {
			callCtx, cancel := l.callContext(gctx)
			defer cancel()

			snapshots, err := l.SnapshotRepo.ListByHolding(callCtx, h.ID)
			if err != nil {
				if l.degrades(gctx, err) {
					l.logger.Warn().Err(err).Str("holding_id", h.ID.String()).Msg("snapshot history lookup timed out, treating as empty")
					return nil
				}
				return fmt.Errorf("failed to list snapshots for holding %s: %w", h.ID, err)
			}
			mu.Lock()
			histories[h.ID] = snapshots
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return histories, nil
}

// Prices fetches the cached price of each distinct symbol once.
// Symbols with no cached price, or whose lookup timed out, are absent from the result.
func (l *Loader) Prices(ctx context.Context, symbols []string) (map[string]*domain.CachedPrice, error) {
	var mu sync.Mutex
	prices := make(map[string]*domain.CachedPrice)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.settings.Concurrency)

	for _, symbol := range DistinctSymbols(symbols) {
		g.Go(func() error {
			callCtx, cancel := l.callContext(gctx)
			defer cancel()

			price, err := l.PriceGateway.GetCachedPrice(callCtx, symbol)
			if err != nil {
				if l.degrades(gctx, err) {
					l.logger.Warn().Err(err).Str("symbol", symbol).Msg("price lookup timed out, treating as missing")
					return nil
				}
				return fmt.Errorf("failed to get cached price for %s: %w", symbol, err)
			}
			if price == nil {
				return nil
			}
			mu.Lock()
			prices[symbol] = price
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}

// Rates loads the exchange-rate table of one aggregate, bounding each lookup by the gateway timeout.
// Rate errors always propagate, including timeouts: a rate that cannot be read is a configuration error.
func (l *Loader) Rates(ctx context.Context, provider domain.ExchangeRateProvider, to string, from ...string) (domain.RateTable, error) {
	return currency.LoadRates(ctx, boundedRates{provider: provider, loader: l}, to, from...)
}

// boundedRates applies the per-call gateway timeout to an exchange-rate provider
type boundedRates struct {
	provider domain.ExchangeRateProvider
	loader   *Loader
}

func (b boundedRates) GetExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	callCtx, cancel := b.loader.callContext(ctx)
	defer cancel()
	return b.provider.GetExchangeRate(callCtx, from, to)
}

// DistinctSymbols normalises symbols to upper case and removes blanks and duplicates
func DistinctSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	distinct := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		distinct = append(distinct, s)
	}
	sort.Strings(distinct)
	return distinct
}

// NormalizeSymbol returns the key prices are looked up under
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// callContext derives the bounded context for one gateway call
func (l *Loader) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.settings.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.settings.GatewayTimeout)
}

// degrades reports whether err is this call's own timeout rather than a failure of the request.
// Gateways may surface the deadline as a network timeout instead of the context error.
func (l *Loader) degrades(requestCtx context.Context, err error) bool {
	if requestCtx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
