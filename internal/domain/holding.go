package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

// HoldingType represents the type of financial position a holding tracks
type HoldingType string

const (
	HoldingTypeStock  HoldingType = "stock"
	HoldingTypeETF    HoldingType = "etf"
	HoldingTypeCrypto HoldingType = "crypto"
	HoldingTypeSuper  HoldingType = "super"
	HoldingTypeCash   HoldingType = "cash"
	HoldingTypeDebt   HoldingType = "debt"
)

// AllHoldingTypes lists every holding type in display order
var AllHoldingTypes = []HoldingType{
	HoldingTypeStock,
	HoldingTypeETF,
	HoldingTypeCrypto,
	HoldingTypeSuper,
	HoldingTypeCash,
	HoldingTypeDebt,
}

// Valid reports whether t is a known holding type
func (t HoldingType) Valid() bool {
	for _, known := range AllHoldingTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsTradeable reports whether the holding is valued from a transaction ledger and a market price
func (t HoldingType) IsTradeable() bool {
	return t == HoldingTypeStock || t == HoldingTypeETF || t == HoldingTypeCrypto
}

// IsSnapshotValued reports whether the holding is valued from periodic balance snapshots
func (t HoldingType) IsSnapshotValued() bool {
	return t == HoldingTypeSuper || t == HoldingTypeCash || t == HoldingTypeDebt
}

// IsDebt reports whether the holding's value is a liability
func (t HoldingType) IsDebt() bool {
	return t == HoldingTypeDebt
}

// Holding represents a named financial position owned by a user.
// The type selects the valuation path and never changes after creation.
type Holding struct {
	ID        uuid.UUID
	UserID    string
	Name      string
	Type      HoldingType
	Currency  string  // Native currency (ISO 4217)
	Symbol    *string // Required for tradeable types
	IsActive  bool
	IsDeleted bool
}

// SymbolOrEmpty returns the holding's symbol, or "" when it has none
func (h *Holding) SymbolOrEmpty() string {
	if h.Symbol == nil {
		return ""
	}
	return strings.TrimSpace(*h.Symbol)
}

// Validate ensures the holding adheres to domain rules
func (h *Holding) Validate() error {
	if h.Name == "" {
		return errors.New("holding name cannot be empty")
	}
	if !h.Type.Valid() {
		return fmt.Errorf("invalid holding type %q", h.Type)
	}
	if err := ValidateCurrency(h.Currency); err != nil {
		return err
	}
	if h.Type.IsTradeable() && h.SymbolOrEmpty() == "" {
		return fmt.Errorf("%s holding must have a symbol", h.Type)
	}
	return nil
}

// ValidateCurrency checks that code is an ISO 4217 currency code
func ValidateCurrency(code string) error {
	if code == "" || money.GetCurrency(code) == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return nil
}
