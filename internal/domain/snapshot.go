package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot represents a point-in-time balance for a snapshot-valued holding (super, cash, debt)
// At most one non-deleted snapshot exists per holding and date.
type Snapshot struct {
	ID        uuid.UUID
	HoldingID uuid.UUID
	Date      time.Time // First of month
	Balance   decimal.Decimal
	Currency  string
	IsDeleted bool
}

// IsOlderThan reports whether the snapshot date is more than maxAge before now
func (s *Snapshot) IsOlderThan(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.Date) > maxAge
}

// CachedPrice represents a market price for a symbol held by the external price cache
type CachedPrice struct {
	Symbol    string
	Price     decimal.Decimal
	Currency  string
	FetchedAt time.Time
}

// IsExpired reports whether the price was fetched longer than ttl before now
func (p *CachedPrice) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.FetchedAt) > ttl
}
