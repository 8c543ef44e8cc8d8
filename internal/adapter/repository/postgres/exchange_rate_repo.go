package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// exchangeRateRepository implements domain.ExchangeRateProvider
type exchangeRateRepository struct {
	db *DB
}

// NewExchangeRateRepository creates a new exchange rate repository
func NewExchangeRateRepository(db *DB) domain.ExchangeRateProvider {
	return &exchangeRateRepository{db: db}
}

// GetExchangeRate returns the stored rate for from -> to.
// When only the reverse pair is stored its reciprocal is returned.
func (r *exchangeRateRepository) GetExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	query := `
		SELECT from_currency, rate
		FROM exchange_rates
		WHERE (from_currency = $1 AND to_currency = $2)
		   OR (from_currency = $2 AND to_currency = $1)
		ORDER BY (from_currency = $1) DESC
		LIMIT 1
	`

	var storedFrom, rateStr string
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(&storedFrom, &rateStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMissingRate, domain.PairKey(from, to))
		}
		return decimal.Zero, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	// Parse rate (NUMERIC)
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse rate: %w", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s has non-positive rate %s", domain.ErrMissingRate, domain.PairKey(from, to), rate)
	}

	if strings.TrimSpace(storedFrom) != from {
		return decimal.NewFromInt(1).Div(rate), nil
	}
	return rate, nil
}
