package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// LedgerService answers per-holding quantity and cost basis questions from the stored ledger
type LedgerService struct {
	HoldingRepo     domain.HoldingRepository
	TransactionRepo domain.TransactionRepository
	logger          zerolog.Logger
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(
	holdingRepo domain.HoldingRepository,
	transactionRepo domain.TransactionRepository,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		HoldingRepo:     holdingRepo,
		TransactionRepo: transactionRepo,
		logger:          logger.With().Str("component", "ledger").Logger(),
	}
}

// CalculateQuantityHeld returns the current share/unit count of a holding
func (s *LedgerService) CalculateQuantityHeld(ctx context.Context, holdingID uuid.UUID) (decimal.Decimal, error) {
	txs, err := s.loadLedger(ctx, holdingID)
	if err != nil {
		return decimal.Zero, err
	}

	return CalculateQuantity(txs, nil), nil
}

// CalculateCostBasis returns the remaining FIFO cost basis, quantity and open lots of a holding
func (s *LedgerService) CalculateCostBasis(ctx context.Context, holdingID uuid.UUID) (*CostBasisResult, error) {
	txs, err := s.loadLedger(ctx, holdingID)
	if err != nil {
		return nil, err
	}

	result := CalculateCostBasis(txs, nil)
	if result.UnmatchedSellQuantity.IsPositive() {
		s.logger.Warn().
			Str("holding_id", holdingID.String()).
			Str("unmatched_quantity", result.UnmatchedSellQuantity.String()).
			Msg("SELL exceeds available lots, cost basis covers remaining lots only")
	}

	return &result, nil
}

// loadLedger verifies the holding exists, then fetches its transactions
func (s *LedgerService) loadLedger(ctx context.Context, holdingID uuid.UUID) ([]*domain.Transaction, error) {
	// Verify holding exists (we don't need to use the holding, just verify it exists)
	if _, err := s.HoldingRepo.GetByID(ctx, holdingID); err != nil {
		return nil, err
	}

	txs, err := s.TransactionRepo.ListByHolding(ctx, holdingID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}
