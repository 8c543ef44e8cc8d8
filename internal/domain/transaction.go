package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action represents the kind of ledger entry
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionDividend Action = "DIVIDEND"
	ActionSplit    Action = "SPLIT"
)

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionDividend, ActionSplit:
		return true
	}
	return false
}

// Transaction represents an immutable ledger entry belonging to one holding.
// Transactions are ordered by Date; ties keep stored order (Seq).
type Transaction struct {
	ID        uuid.UUID
	HoldingID uuid.UUID
	Date      time.Time
	Action    Action
	Quantity  decimal.Decimal // Share count, or the split ratio for SPLIT (2:1 stored as 2)
	UnitPrice decimal.Decimal // Ignored for SPLIT
	Fees      decimal.Decimal // BUY/SELL only
	Seq       int64           // Insertion order, breaks same-date ties
	IsDeleted bool
}

// Validate ensures the transaction adheres to domain rules
// Returns an error wrapping ErrInvalidTransaction if validation fails
func (t *Transaction) Validate() error {
	if !t.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransaction, t.Action)
	}

	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}

	// A SPLIT ratio of zero would wipe every lot
	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidTransaction)
	}

	if t.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price cannot be negative", ErrInvalidTransaction)
	}

	if t.Fees.IsNegative() {
		return fmt.Errorf("%w: fees cannot be negative", ErrInvalidTransaction)
	}

	if !t.Fees.IsZero() && t.Action != ActionBuy && t.Action != ActionSell {
		return fmt.Errorf("%w: fees only apply to BUY and SELL", ErrInvalidTransaction)
	}

	return nil
}

// Lot represents one historical BUY tracked during a single cost basis computation.
// Lots are never persisted.
type Lot struct {
	Date              time.Time
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	RemainingQuantity decimal.Decimal
}

// CostBasis returns the cost of the shares still held in this lot
func (l Lot) CostBasis() decimal.Decimal {
	return l.RemainingQuantity.Mul(l.UnitPrice)
}
