package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// ListByHolding retrieves non-deleted transactions dated on or before asOf (all when nil),
// ordered by date then insertion sequence
func (r *transactionRepository) ListByHolding(ctx context.Context, holdingID uuid.UUID, asOf *time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT id, seq, holding_id, date, action, quantity, unit_price, fees
		FROM transactions
		WHERE holding_id = $1 AND NOT is_deleted AND ($2::timestamptz IS NULL OR date <= $2)
		ORDER BY date ASC, seq ASC
	`

	var bound interface{}
	if asOf != nil {
		bound = *asOf
	}

	rows, err := r.db.QueryContext(ctx, query, holdingID, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*domain.Transaction, 0)
	for rows.Next() {
		var tx domain.Transaction
		var action, quantityStr, unitPriceStr, feesStr string

		err := rows.Scan(
			&tx.ID,
			&tx.Seq,
			&tx.HoldingID,
			&tx.Date,
			&action,
			&quantityStr,
			&unitPriceStr,
			&feesStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Action = domain.Action(action)

		// Parse NUMERIC columns
		if tx.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if tx.UnitPrice, err = decimal.NewFromString(unitPriceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}
		if tx.Fees, err = decimal.NewFromString(feesStr); err != nil {
			return nil, fmt.Errorf("failed to parse fees: %w", err)
		}

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
