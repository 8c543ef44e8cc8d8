package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HoldingRepository defines the interface for reading holdings
type HoldingRepository interface {
	// GetByID retrieves a holding by its ID
	// Returns an error wrapping ErrHoldingNotFound if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Holding, error)

	// ListActive retrieves the active, non-deleted holdings owned by a user
	ListActive(ctx context.Context, userID string) ([]*Holding, error)
}

// TransactionRepository defines the interface for reading a holding's ledger
type TransactionRepository interface {
	// ListByHolding retrieves non-deleted transactions in chronological order
	// If asOf is provided, only transactions dated on or before it are returned
	ListByHolding(ctx context.Context, holdingID uuid.UUID, asOf *time.Time) ([]*Transaction, error)
}

// SnapshotRepository defines the interface for reading balance snapshots
type SnapshotRepository interface {
	// Latest retrieves the most recent non-deleted snapshot dated on or before asOf
	// (or the most recent overall when asOf is nil). Returns nil, nil when none exists.
	Latest(ctx context.Context, holdingID uuid.UUID, asOf *time.Time) (*Snapshot, error)

	// ListByHolding retrieves all non-deleted snapshots ordered by date ascending
	ListByHolding(ctx context.Context, holdingID uuid.UUID) ([]*Snapshot, error)
}

// PriceGateway defines the interface for the external market price cache
type PriceGateway interface {
	// GetCachedPrice retrieves the cached price for a symbol
	// Returns nil, nil when no price is cached
	GetCachedPrice(ctx context.Context, symbol string) (*CachedPrice, error)
}

// ExchangeRateProvider defines the interface for the external exchange rate source
type ExchangeRateProvider interface {
	// GetExchangeRate returns the rate such that 1 from = rate to
	// Returns an error wrapping ErrMissingRate if the pair is not available
	GetExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}
