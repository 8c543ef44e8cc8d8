package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// costBasisPrecision bounds the digits kept after split adjustments, where
// dividing a unit price by a ratio such as 3 does not terminate
const costBasisPrecision = 8

// CostBasisResult is the outcome of a FIFO replay over one holding's ledger
type CostBasisResult struct {
	CostBasis decimal.Decimal
	Quantity  decimal.Decimal
	Lots      []domain.Lot // Only lots with shares remaining, oldest first

	// UnmatchedSellQuantity is the part of SELLs that found no lot to consume.
	// The replay absorbs it; callers decide whether to surface it.
	UnmatchedSellQuantity decimal.Decimal
}

// SortChronological returns a copy of txs ordered by date, then by stored sequence.
// Entries sharing date and sequence keep their input order.
func SortChronological(txs []*domain.Transaction) []*domain.Transaction {
	sorted := make([]*domain.Transaction, len(txs))
	copy(sorted, txs)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	return sorted
}

// included reports whether tx takes part in a replay bounded by asOf
func included(tx *domain.Transaction, asOf *time.Time) bool {
	if tx == nil || tx.IsDeleted {
		return false
	}
	return asOf == nil || !tx.Date.After(*asOf)
}

// CalculateQuantity folds a ledger into the quantity held
// Logic:
//   - BUY adds quantity, SELL subtracts it
//   - SPLIT multiplies the running total by the ratio at the point it occurs;
//     a non-positive ratio is skipped, as in CalculateCostBasis
//   - DIVIDEND has no effect
//
// Deleted entries and entries dated after asOf (when given) are skipped.
// A SELL larger than the position drives the result negative; no error is raised.
func CalculateQuantity(txs []*domain.Transaction, asOf *time.Time) decimal.Decimal {
	quantity := decimal.Zero

	for _, tx := range SortChronological(txs) {
		if !included(tx, asOf) {
			continue
		}

		switch tx.Action {
		case domain.ActionBuy:
			quantity = quantity.Add(tx.Quantity)
		case domain.ActionSell:
			quantity = quantity.Sub(tx.Quantity)
		case domain.ActionSplit:
			if tx.Quantity.IsPositive() {
				quantity = quantity.Mul(tx.Quantity)
			}
		}
	}

	return quantity
}

// CalculateCostBasis replays a ledger into FIFO lots and derives the remaining cost basis
// Logic:
//  1. BUY pushes a new lot with its full quantity remaining
//  2. SELL consumes remaining quantity from the oldest lots first; any excess is
//     recorded in UnmatchedSellQuantity and otherwise ignored
//  3. SPLIT rescales every lot, consumed or not: quantities multiply by the ratio,
//     unit prices divide by it, so each lot's total value is unchanged
//  4. DIVIDEND has no effect
//
// Fees are not capitalised into lots.
func CalculateCostBasis(txs []*domain.Transaction, asOf *time.Time) CostBasisResult {
	var lots []domain.Lot
	head := 0 // Index of the oldest lot that may still hold shares
	unmatched := decimal.Zero

	for _, tx := range SortChronological(txs) {
		if !included(tx, asOf) {
			continue
		}

		switch tx.Action {
		case domain.ActionBuy:
			lots = append(lots, domain.Lot{
				Date:              tx.Date,
				Quantity:          tx.Quantity,
				UnitPrice:         tx.UnitPrice,
				RemainingQuantity: tx.Quantity,
			})

		case domain.ActionSell:
			toSell := tx.Quantity
			for head < len(lots) && toSell.IsPositive() {
				lot := &lots[head]
				if lot.RemainingQuantity.GreaterThan(toSell) {
					lot.RemainingQuantity = lot.RemainingQuantity.Sub(toSell)
					toSell = decimal.Zero
					break
				}
				toSell = toSell.Sub(lot.RemainingQuantity)
				lot.RemainingQuantity = decimal.Zero
				head++
			}
			if toSell.IsPositive() {
				unmatched = unmatched.Add(toSell)
			}

		case domain.ActionSplit:
			ratio := tx.Quantity
			if !ratio.IsPositive() {
				continue
			}
			for i := range lots {
				lots[i].Quantity = lots[i].Quantity.Mul(ratio)
				lots[i].RemainingQuantity = lots[i].RemainingQuantity.Mul(ratio)
				lots[i].UnitPrice = lots[i].UnitPrice.Div(ratio)
			}
		}
	}

	result := CostBasisResult{
		CostBasis:             decimal.Zero,
		Quantity:              decimal.Zero,
		Lots:                  make([]domain.Lot, 0, len(lots)-head),
		UnmatchedSellQuantity: unmatched,
	}

	for _, lot := range lots[head:] {
		if !lot.RemainingQuantity.IsPositive() {
			continue
		}
		result.Lots = append(result.Lots, lot)
		result.CostBasis = result.CostBasis.Add(lot.CostBasis())
		result.Quantity = result.Quantity.Add(lot.RemainingQuantity)
	}
	result.CostBasis = result.CostBasis.Round(costBasisPrecision)

	return result
}

// SnapshotAsOf returns the most recent non-deleted snapshot dated on or before asOf,
// carrying the last known balance forward. Returns nil when none qualifies.
func SnapshotAsOf(snapshots []*domain.Snapshot, asOf time.Time) *domain.Snapshot {
	var latest *domain.Snapshot
	for _, s := range snapshots {
		if s == nil || s.IsDeleted || s.Date.After(asOf) {
			continue
		}
		if latest == nil || s.Date.After(latest.Date) {
			latest = s
		}
	}
	return latest
}
