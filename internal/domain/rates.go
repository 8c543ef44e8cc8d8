package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable holds exchange rates keyed by ordered currency pair, e.g. "USD/AUD".
// A rate r under "FROM/TO" means 1 FROM = r TO.
type RateTable map[string]decimal.Decimal

// PairKey builds the rate table key for converting from -> to
func PairKey(from, to string) string {
	return strings.ToUpper(from) + "/" + strings.ToUpper(to)
}
