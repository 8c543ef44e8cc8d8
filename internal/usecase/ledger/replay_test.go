package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func tx(date time.Time, action domain.Action, qty, price int64) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.New(),
		Date:      date,
		Action:    action,
		Quantity:  decimal.NewFromInt(qty),
		UnitPrice: decimal.NewFromInt(price),
	}
}

func TestCalculateQuantity_BuySellSplitDividend(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 10),
		tx(day(1), domain.ActionBuy, 10, 12),
		tx(day(2), domain.ActionSell, 5, 15),
		tx(day(3), domain.ActionDividend, 15, 1),
		tx(day(4), domain.ActionSplit, 2, 0),
		tx(day(5), domain.ActionBuy, 1, 8),
	}

	quantity := CalculateQuantity(txs, nil)

	// (10 + 10 - 5) * 2 + 1
	assert.True(t, quantity.Equal(decimal.NewFromInt(31)), "got %s", quantity)
}

func TestCalculateQuantity_SplitAppliesAtItsPosition(t *testing.T) {
	// The split doubles what was held at the time, not the later BUY
	txs := []*domain.Transaction{
		tx(day(5), domain.ActionBuy, 7, 10),
		tx(day(0), domain.ActionBuy, 3, 10),
		tx(day(2), domain.ActionSplit, 2, 0),
	}

	quantity := CalculateQuantity(txs, nil)

	assert.True(t, quantity.Equal(decimal.NewFromInt(13)), "got %s", quantity)
}

func TestCalculateQuantity_AsOfBound(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 10),
		tx(day(10), domain.ActionBuy, 10, 12),
		tx(day(20), domain.ActionSell, 4, 12),
	}

	asOf := day(10)
	assert.True(t, CalculateQuantity(txs, &asOf).Equal(decimal.NewFromInt(20)), "entries on the bound are included")

	before := day(9)
	assert.True(t, CalculateQuantity(txs, &before).Equal(decimal.NewFromInt(10)))
}

func TestCalculateQuantity_SkipsDeleted(t *testing.T) {
	deleted := tx(day(1), domain.ActionBuy, 100, 1)
	deleted.IsDeleted = true

	txs := []*domain.Transaction{tx(day(0), domain.ActionBuy, 10, 10), deleted}

	assert.True(t, CalculateQuantity(txs, nil).Equal(decimal.NewFromInt(10)))
}

func TestCalculateQuantity_OversellGoesNegative(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 5, 10),
		tx(day(1), domain.ActionSell, 8, 10),
	}

	assert.True(t, CalculateQuantity(txs, nil).Equal(decimal.NewFromInt(-3)))
}

func TestCalculateQuantity_Empty(t *testing.T) {
	assert.True(t, CalculateQuantity(nil, nil).IsZero())
}

func TestSortChronological_TiesKeepSequence(t *testing.T) {
	sell := tx(day(0), domain.ActionSell, 5, 10)
	sell.Seq = 2
	buy := tx(day(0), domain.ActionBuy, 5, 10)
	buy.Seq = 1

	sorted := SortChronological([]*domain.Transaction{sell, buy})

	require.Len(t, sorted, 2)
	assert.Equal(t, domain.ActionBuy, sorted[0].Action)
	assert.Equal(t, domain.ActionSell, sorted[1].Action)
}

func TestCalculateCostBasis_FIFOConsumesOldestFirst(t *testing.T) {
	// BUY 10@5, BUY 10@7, SELL 12 -> lot 1 gone, 8 left of lot 2
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 5),
		tx(day(1), domain.ActionBuy, 10, 7),
		tx(day(2), domain.ActionSell, 12, 9),
	}

	result := CalculateCostBasis(txs, nil)

	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(56)), "got %s", result.CostBasis)
	assert.True(t, result.Quantity.Equal(decimal.NewFromInt(8)))
	require.Len(t, result.Lots, 1)
	assert.True(t, result.Lots[0].UnitPrice.Equal(decimal.NewFromInt(7)))
	assert.True(t, result.Lots[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.Lots[0].RemainingQuantity.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, day(1), result.Lots[0].Date)
	assert.True(t, result.UnmatchedSellQuantity.IsZero())
}

func TestCalculateCostBasis_SplitAdjustsPriceAndQuantity(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 100, 10),
		tx(day(1), domain.ActionSplit, 2, 0),
	}

	result := CalculateCostBasis(txs, nil)

	require.Len(t, result.Lots, 1)
	assert.True(t, result.Lots[0].Quantity.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Lots[0].RemainingQuantity.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Lots[0].UnitPrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(1000)), "got %s", result.CostBasis)
}

func TestCalculateCostBasis_SplitAfterPartialSell(t *testing.T) {
	// BUY 10@6, BUY 10@9, SELL 15, SPLIT 3 -> 15 shares of lot 2 at 3
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 6),
		tx(day(1), domain.ActionBuy, 10, 9),
		tx(day(2), domain.ActionSell, 15, 12),
		tx(day(3), domain.ActionSplit, 3, 0),
		tx(day(4), domain.ActionSell, 3, 5),
	}

	result := CalculateCostBasis(txs, nil)

	require.Len(t, result.Lots, 1)
	assert.True(t, result.Lots[0].Quantity.Equal(decimal.NewFromInt(30)))
	assert.True(t, result.Lots[0].RemainingQuantity.Equal(decimal.NewFromInt(12)))
	assert.True(t, result.Lots[0].UnitPrice.Equal(decimal.NewFromInt(3)))
	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(36)), "got %s", result.CostBasis)
	assert.True(t, result.Quantity.Equal(CalculateQuantity(txs, nil)))
}

func TestCalculateCostBasis_NonTerminatingSplitRatio(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 100, 10),
		tx(day(1), domain.ActionSplit, 3, 0),
	}

	result := CalculateCostBasis(txs, nil)

	assert.True(t, result.Quantity.Equal(decimal.NewFromInt(300)))
	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(1000)), "got %s", result.CostBasis)
}

func TestCalculateCostBasis_OversellStopsAtAvailableLots(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 5, 10),
		tx(day(1), domain.ActionSell, 8, 12),
		tx(day(2), domain.ActionBuy, 4, 20),
	}

	result := CalculateCostBasis(txs, nil)

	// The excess 3 is absorbed; the later BUY is untouched
	assert.True(t, result.UnmatchedSellQuantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, result.Quantity.Equal(decimal.NewFromInt(4)))
	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(80)))
	for _, lot := range result.Lots {
		assert.False(t, lot.RemainingQuantity.IsNegative())
	}
}

func TestCalculateCostBasis_DividendIgnored(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 10),
		tx(day(1), domain.ActionDividend, 10, 2),
	}

	result := CalculateCostBasis(txs, nil)

	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(100)))
}

func TestCalculateCostBasis_ThreeBuysScenario(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 10),
		tx(day(1), domain.ActionBuy, 10, 12),
	}

	result := CalculateCostBasis(txs, nil)

	assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(220)))
	assert.True(t, result.Quantity.Equal(decimal.NewFromInt(20)))
	assert.Len(t, result.Lots, 2)
}

func TestCalculateCostBasis_FullySoldHasNoLots(t *testing.T) {
	txs := []*domain.Transaction{
		tx(day(0), domain.ActionBuy, 10, 10),
		tx(day(1), domain.ActionSell, 10, 12),
	}

	result := CalculateCostBasis(txs, nil)

	assert.Empty(t, result.Lots)
	assert.True(t, result.CostBasis.IsZero())
	assert.True(t, result.Quantity.IsZero())
}

func TestSnapshotAsOf_CarriesForward(t *testing.T) {
	jan := &domain.Snapshot{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Balance: decimal.NewFromInt(100)}
	mar := &domain.Snapshot{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Balance: decimal.NewFromInt(300)}
	deleted := &domain.Snapshot{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Balance: decimal.NewFromInt(999), IsDeleted: true}
	snapshots := []*domain.Snapshot{mar, jan, deleted}

	assert.Nil(t, SnapshotAsOf(snapshots, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, jan, SnapshotAsOf(snapshots, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, mar, SnapshotAsOf(snapshots, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, mar, SnapshotAsOf(snapshots, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestReplay_NonPositiveSplitRatioSkippedByBothFolds(t *testing.T) {
	for _, ratio := range []int64{0, -2} {
		txs := []*domain.Transaction{
			tx(day(0), domain.ActionBuy, 10, 10),
			tx(day(1), domain.ActionSplit, ratio, 0),
			tx(day(2), domain.ActionSell, 4, 12),
		}

		quantity := CalculateQuantity(txs, nil)
		result := CalculateCostBasis(txs, nil)

		assert.True(t, quantity.Equal(decimal.NewFromInt(6)), "ratio %d: got %s", ratio, quantity)
		assert.True(t, result.Quantity.Equal(quantity), "ratio %d: cost basis quantity %s", ratio, result.Quantity)
		assert.True(t, result.CostBasis.Equal(decimal.NewFromInt(60)), "ratio %d: got %s", ratio, result.CostBasis)
	}
}
