package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// Convert converts amount from one currency to another using the supplied rate table
// Logic:
//  1. Same currency returns amount unchanged, without consulting the table
//  2. A direct "FROM/TO" rate multiplies
//  3. Otherwise an inverse "TO/FROM" rate divides
//
// Unknown currency codes return ErrUnsupportedCurrency; a pair with neither
// direction in the table returns ErrMissingRate. Rates are never fetched here.
func Convert(amount decimal.Decimal, from, to string, rates domain.RateTable) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}

	if err := domain.ValidateCurrency(strings.ToUpper(from)); err != nil {
		return decimal.Zero, err
	}
	if err := domain.ValidateCurrency(strings.ToUpper(to)); err != nil {
		return decimal.Zero, err
	}

	if rate, ok := rates[domain.PairKey(from, to)]; ok && rate.IsPositive() {
		return amount.Mul(rate), nil
	}

	if inverse, ok := rates[domain.PairKey(to, from)]; ok && inverse.IsPositive() {
		return amount.Div(inverse), nil
	}

	return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMissingRate, domain.PairKey(from, to))
}

// LoadRates fetches the rate from each distinct currency into the display currency
// once, so a whole aggregate converts against one consistent table
func LoadRates(ctx context.Context, provider domain.ExchangeRateProvider, to string, from ...string) (domain.RateTable, error) {
	if err := domain.ValidateCurrency(strings.ToUpper(to)); err != nil {
		return nil, err
	}

	rates := make(domain.RateTable)
	for _, code := range from {
		if code == "" || strings.EqualFold(code, to) {
			continue
		}
		key := domain.PairKey(code, to)
		if _, done := rates[key]; done {
			continue
		}

		if err := domain.ValidateCurrency(strings.ToUpper(code)); err != nil {
			return nil, err
		}

		rate, err := provider.GetExchangeRate(ctx, strings.ToUpper(code), strings.ToUpper(to))
		if err != nil {
			return nil, fmt.Errorf("failed to get exchange rate %s: %w", key, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: %s has non-positive rate %s", domain.ErrMissingRate, key, rate)
		}
		rates[key] = rate
	}

	return rates, nil
}

// StaticProvider serves exchange rates from a fixed table, such as one read from configuration
type StaticProvider struct {
	Rates domain.RateTable
}

// NewStaticProvider creates a new StaticProvider instance
func NewStaticProvider(rates domain.RateTable) *StaticProvider {
	return &StaticProvider{Rates: rates}
}

// GetExchangeRate returns the configured rate for from -> to, falling back to the inverse pair
func (p *StaticProvider) GetExchangeRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := p.Rates[domain.PairKey(from, to)]; ok && rate.IsPositive() {
		return rate, nil
	}
	if inverse, ok := p.Rates[domain.PairKey(to, from)]; ok && inverse.IsPositive() {
		return decimal.NewFromInt(1).Div(inverse), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMissingRate, domain.PairKey(from, to))
}

// ChainProvider asks each provider in turn, moving on only when a provider has no rate for the pair
type ChainProvider struct {
	Providers []domain.ExchangeRateProvider
}

// NewChainProvider creates a new ChainProvider instance
func NewChainProvider(providers ...domain.ExchangeRateProvider) *ChainProvider {
	return &ChainProvider{Providers: providers}
}

// GetExchangeRate returns the first rate found; infrastructure errors stop the search
func (p *ChainProvider) GetExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	for _, provider := range p.Providers {
		rate, err := provider.GetExchangeRate(ctx, from, to)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, domain.ErrMissingRate) {
			return decimal.Zero, err
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMissingRate, domain.PairKey(from, to))
}
