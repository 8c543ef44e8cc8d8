package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StaleReason explains why a holding's contribution relies on expired or missing data
type StaleReason string

const (
	StaleReasonPriceExpired StaleReason = "price_expired"
	StaleReasonNoPrice      StaleReason = "no_price"
	StaleReasonSnapshotOld  StaleReason = "snapshot_old"
	StaleReasonNoSnapshot   StaleReason = "no_snapshot"
)

// HoldingValue is a holding's value in native and display currency
// Quantity and Price are set for tradeable holdings only.
type HoldingValue struct {
	HoldingID      uuid.UUID
	Name           string
	Symbol         string
	Type           HoldingType
	NativeCurrency string
	NativeValue    decimal.Decimal
	DisplayValue   decimal.Decimal
	Quantity       *decimal.Decimal
	Price          *decimal.Decimal
}

// StaleHolding flags a holding whose contribution to net worth is based on expired or missing data
type StaleHolding struct {
	HoldingID uuid.UUID
	Name      string
	Type      HoldingType
	Reason    StaleReason
	AsOf      *time.Time // FetchedAt of the price or date of the snapshot, when one was found
}
