package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/adapter/repository/memory"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/loader"
)

const userID = "user-1"

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// MockSnapshotRepository is a mock implementation of domain.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Latest(ctx context.Context, holdingID uuid.UUID, asOf *time.Time) (*domain.Snapshot, error) {
	args := m.Called(ctx, holdingID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) ListByHolding(ctx context.Context, holdingID uuid.UUID) ([]*domain.Snapshot, error) {
	args := m.Called(ctx, holdingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Snapshot), args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(store *memory.Store, snapshots domain.SnapshotRepository) *HistoryService {
	if snapshots == nil {
		snapshots = store.Snapshots()
	}
	ld := loader.NewLoader(store, snapshots, store, loader.Settings{GatewayTimeout: time.Second, Concurrency: 4}, zerolog.Nop())
	return NewHistoryService(store, store, ld, Settings{DisplayCurrency: "AUD"}, zerolog.Nop())
}

func addHolding(t *testing.T, store *memory.Store, typ domain.HoldingType, name, ccy string, symbol *string) *domain.Holding {
	t.Helper()
	h := &domain.Holding{UserID: userID, Name: name, Type: typ, Currency: ccy, Symbol: symbol, IsActive: true}
	require.NoError(t, store.AddHolding(h))
	return h
}

func TestMonthEnds(t *testing.T) {
	ends := MonthEnds(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), 4)

	require.Len(t, ends, 4)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 999999999, time.UTC), ends[0])
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), ends[1])
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC), ends[2])
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), ends[3])
}

func TestMonthEnds_CrossesYearBoundary(t *testing.T) {
	ends := MonthEnds(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), 13)

	require.Len(t, ends, 13)
	assert.Equal(t, time.January, ends[0].Month())
	assert.Equal(t, 2023, ends[0].Year())
	assert.Equal(t, time.January, ends[12].Month())
	assert.Equal(t, 2024, ends[12].Year())
	for i := 1; i < len(ends); i++ {
		assert.True(t, ends[i].After(ends[i-1]))
	}
}

func TestCalculateHistoricalNetWorth_SnapshotCarryForward(t *testing.T) {
	store := memory.NewStore()
	super := addHolding(t, store, domain.HoldingTypeSuper, "Super", "AUD", nil)
	require.NoError(t, store.AddSnapshot(&domain.Snapshot{
		HoldingID: super.ID, Date: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), Balance: dec("85000"), Currency: "AUD",
	}))

	result, err := newService(store, nil).CalculateHistoricalNetWorth(context.Background(), userID, Options{Months: 12, Now: now})

	require.NoError(t, err)
	require.Len(t, result.History, 12)
	for _, point := range result.History {
		if point.Date.Before(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)) {
			assert.True(t, point.NetWorth.IsZero(), "before first snapshot at %s", point.Date)
			continue
		}
		assert.True(t, point.NetWorth.Equal(dec("85000")), "carried forward at %s", point.Date)
	}
	assert.Equal(t, time.June, result.History[11].Date.Month())
	assert.Equal(t, "AUD", result.DisplayCurrency)
	assert.Equal(t, now, result.GeneratedAt)
}

func TestCalculateHistoricalNetWorth_TradeableUsesQuantityAtMonthEnd(t *testing.T) {
	store := memory.NewStore()
	symbol := "VAS"
	etf := addHolding(t, store, domain.HoldingTypeETF, "Vanguard", "AUD", &symbol)
	require.NoError(t, store.AddTransaction(&domain.Transaction{
		HoldingID: etf.ID, Date: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), Action: domain.ActionBuy, Quantity: dec("10"), UnitPrice: dec("80"),
	}))
	require.NoError(t, store.AddTransaction(&domain.Transaction{
		HoldingID: etf.ID, Date: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), Action: domain.ActionBuy, Quantity: dec("5"), UnitPrice: dec("85"),
	}))
	store.SetPrice(&domain.CachedPrice{Symbol: "VAS", Price: dec("100"), Currency: "AUD", FetchedAt: now})

	result, err := newService(store, nil).CalculateHistoricalNetWorth(context.Background(), userID, Options{Months: 4, Now: now})

	require.NoError(t, err)
	require.Len(t, result.History, 4)
	// Today's price applies to every point
	want := []string{"0", "1000", "1500", "1500"}
	for i, point := range result.History {
		assert.True(t, point.TotalAssets.Equal(dec(want[i])), "month %s: got %s", point.Date.Month(), point.TotalAssets)
	}
}

func TestCalculateHistoricalNetWorth_DebtAndConversion(t *testing.T) {
	store := memory.NewStore()
	cash := addHolding(t, store, domain.HoldingTypeCash, "USD Savings", "USD", nil)
	loan := addHolding(t, store, domain.HoldingTypeDebt, "Mortgage", "AUD", nil)
	require.NoError(t, store.AddSnapshot(&domain.Snapshot{HoldingID: cash.ID, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Balance: dec("1000"), Currency: "USD"}))
	require.NoError(t, store.AddSnapshot(&domain.Snapshot{HoldingID: loan.ID, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Balance: dec("400"), Currency: "AUD"}))
	require.NoError(t, store.AddSnapshot(&domain.Snapshot{HoldingID: loan.ID, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Balance: dec("300"), Currency: "AUD"}))
	store.SetRate("USD", "AUD", dec("1.5"))

	result, err := newService(store, nil).CalculateHistoricalNetWorth(context.Background(), userID, Options{Months: 2, Now: now})

	require.NoError(t, err)
	require.Len(t, result.History, 2)
	assert.True(t, result.History[0].TotalAssets.Equal(dec("1500")))
	assert.True(t, result.History[0].TotalDebt.Equal(dec("400")))
	assert.True(t, result.History[0].NetWorth.Equal(dec("1100")))
	assert.True(t, result.History[1].TotalDebt.Equal(dec("300")))
	assert.True(t, result.History[1].NetWorth.Equal(dec("1200")))
}

func TestCalculateHistoricalNetWorth_Months(t *testing.T) {
	store := memory.NewStore()

	tests := []struct {
		name    string
		months  int
		want    int
		wantErr bool
	}{
		{name: "Default window", months: 0, want: DefaultMonths},
		{name: "Single month", months: 1, want: 1},
		{name: "Negative", months: -3, wantErr: true},
		{name: "Too many", months: MaxMonths + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newService(store, nil).CalculateHistoricalNetWorth(context.Background(), userID, Options{Months: tt.months, Now: now})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRequest)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.History, tt.want)
		})
	}
}

func TestCalculateHistoricalNetWorth_SnapshotRepoError(t *testing.T) {
	store := memory.NewStore()
	cash := addHolding(t, store, domain.HoldingTypeCash, "Cash", "AUD", nil)

	snapshots := new(MockSnapshotRepository)
	snapshots.On("ListByHolding", mock.Anything, cash.ID).Return(nil, errors.New("db error"))

	result, err := newService(store, snapshots).CalculateHistoricalNetWorth(context.Background(), userID, Options{Months: 3, Now: now})

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list snapshots")
	snapshots.AssertExpectations(t)
}

func TestCalculateHistoricalNetWorth_MissingRate(t *testing.T) {
	store := memory.NewStore()
	cash := addHolding(t, store, domain.HoldingTypeCash, "Euro", "EUR", nil)
	require.NoError(t, store.AddSnapshot(&domain.Snapshot{HoldingID: cash.ID, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Balance: dec("10"), Currency: "EUR"}))

	_, err := newService(store, nil).CalculateHistoricalNetWorth(context.Background(), userID, Options{Months: 3, Now: now})

	assert.ErrorIs(t, err, domain.ErrMissingRate)
}
