// Package memory provides an in-process implementation of the domain repositories
// and gateways, used for tests and local runs without PostgreSQL or Redis.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// Store holds holdings, ledgers, snapshots, prices and rates in memory
type Store struct {
	mu           sync.RWMutex
	holdings     map[uuid.UUID]*domain.Holding
	order        []uuid.UUID
	transactions map[uuid.UUID][]*domain.Transaction
	snapshots    map[uuid.UUID][]*domain.Snapshot
	prices       map[string]*domain.CachedPrice
	rates        domain.RateTable
	seq          int64
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		holdings:     make(map[uuid.UUID]*domain.Holding),
		transactions: make(map[uuid.UUID][]*domain.Transaction),
		snapshots:    make(map[uuid.UUID][]*domain.Snapshot),
		prices:       make(map[string]*domain.CachedPrice),
		rates:        make(domain.RateTable),
	}
}

// AddHolding stores a holding after validating it
func (s *Store) AddHolding(h *domain.Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if _, exists := s.holdings[h.ID]; !exists {
		s.order = append(s.order, h.ID)
	}
	s.holdings[h.ID] = h
	return nil
}

// AddTransaction appends a ledger entry, assigning its ID and insertion sequence
func (s *Store) AddTransaction(tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holdings[tx.HoldingID]; !ok {
		return fmt.Errorf("holding %s: %w", tx.HoldingID, domain.ErrHoldingNotFound)
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	s.seq++
	tx.Seq = s.seq
	s.transactions[tx.HoldingID] = append(s.transactions[tx.HoldingID], tx)
	return nil
}

// AddSnapshot stores a balance snapshot, replacing any live snapshot on the same date
func (s *Store) AddSnapshot(snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holdings[snapshot.HoldingID]; !ok {
		return fmt.Errorf("holding %s: %w", snapshot.HoldingID, domain.ErrHoldingNotFound)
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}

	existing := s.snapshots[snapshot.HoldingID]
	for _, old := range existing {
		if !old.IsDeleted && old.Date.Equal(snapshot.Date) {
			old.IsDeleted = true
		}
	}
	s.snapshots[snapshot.HoldingID] = append(existing, snapshot)
	return nil
}

// SetPrice stores a cached price for its symbol
func (s *Store) SetPrice(price *domain.CachedPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(price.Symbol)] = price
}

// SetRate stores the rate for from -> to
func (s *Store) SetRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[domain.PairKey(from, to)] = rate
}

// GetByID retrieves a holding by its ID
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[id]
	if !ok || h.IsDeleted {
		return nil, fmt.Errorf("holding %s: %w", id, domain.ErrHoldingNotFound)
	}
	return h, nil
}

// ListActive retrieves the active, non-deleted holdings of a user in insertion order
func (s *Store) ListActive(_ context.Context, userID string) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := make([]*domain.Holding, 0)
	for _, id := range s.order {
		h := s.holdings[id]
		if h.UserID == userID && h.IsActive && !h.IsDeleted {
			holdings = append(holdings, h)
		}
	}
	return holdings, nil
}

// ListByHolding retrieves non-deleted transactions ordered by date, then insertion
func (s *Store) ListByHolding(_ context.Context, holdingID uuid.UUID, asOf *time.Time) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]*domain.Transaction, 0, len(s.transactions[holdingID]))
	for _, tx := range s.transactions[holdingID] {
		if tx.IsDeleted {
			continue
		}
		if asOf != nil && tx.Date.After(*asOf) {
			continue
		}
		txs = append(txs, tx)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Seq < txs[j].Seq
	})
	return txs, nil
}

// Snapshots returns a SnapshotRepository view of the store
func (s *Store) Snapshots() domain.SnapshotRepository {
	return snapshotView{s}
}

// snapshotView resolves the ListByHolding name clash between ledgers and snapshots
type snapshotView struct {
	s *Store
}

// Latest retrieves the most recent non-deleted snapshot on or before asOf
func (v snapshotView) Latest(ctx context.Context, holdingID uuid.UUID, asOf *time.Time) (*domain.Snapshot, error) {
	snapshots, err := v.ListByHolding(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	var latest *domain.Snapshot
	for _, snapshot := range snapshots {
		if asOf != nil && snapshot.Date.After(*asOf) {
			break
		}
		latest = snapshot
	}
	return latest, nil
}

// ListByHolding retrieves all non-deleted snapshots ordered by date ascending
func (v snapshotView) ListByHolding(_ context.Context, holdingID uuid.UUID) ([]*domain.Snapshot, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	snapshots := make([]*domain.Snapshot, 0, len(v.s.snapshots[holdingID]))
	for _, snapshot := range v.s.snapshots[holdingID] {
		if !snapshot.IsDeleted {
			snapshots = append(snapshots, snapshot)
		}
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Date.Before(snapshots[j].Date)
	})
	return snapshots, nil
}

// GetCachedPrice retrieves the cached price for a symbol, or nil when none is stored
func (s *Store) GetCachedPrice(_ context.Context, symbol string) (*domain.CachedPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices[strings.ToUpper(symbol)], nil
}

// GetExchangeRate returns the stored rate for from -> to, falling back to the inverse pair
func (s *Store) GetExchangeRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rate, ok := s.rates[domain.PairKey(from, to)]; ok {
		return rate, nil
	}
	if inverse, ok := s.rates[domain.PairKey(to, from)]; ok && inverse.IsPositive() {
		return decimal.NewFromInt(1).Div(inverse), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMissingRate, domain.PairKey(from, to))
}
