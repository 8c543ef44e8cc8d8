package domain

import "errors"

var (
	// ErrHoldingNotFound is returned when a holding does not exist or is not visible
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrUnsupportedCurrency is returned for currency codes the engine cannot convert
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrMissingRate is returned when a required exchange rate is absent from the rate table
	ErrMissingRate = errors.New("missing exchange rate")

	// ErrInvalidTransaction is returned when a ledger entry violates domain rules
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidRequest is returned when request options are out of range
	ErrInvalidRequest = errors.New("invalid request")
)
