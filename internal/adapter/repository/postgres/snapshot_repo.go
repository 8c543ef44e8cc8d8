package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Latest retrieves the most recent non-deleted snapshot on or before asOf (any date when nil).
// Returns nil without error when the holding has no such snapshot.
func (r *snapshotRepository) Latest(ctx context.Context, holdingID uuid.UUID, asOf *time.Time) (*domain.Snapshot, error) {
	query := `
		SELECT id, holding_id, date, balance, currency
		FROM snapshots
		WHERE holding_id = $1 AND NOT is_deleted AND ($2::timestamptz IS NULL OR date <= $2)
		ORDER BY date DESC
		LIMIT 1
	`

	var bound interface{}
	if asOf != nil {
		bound = *asOf
	}

	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, holdingID, bound))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return snapshot, nil
}

// ListByHolding retrieves all non-deleted snapshots of a holding, oldest first
func (r *snapshotRepository) ListByHolding(ctx context.Context, holdingID uuid.UUID) ([]*domain.Snapshot, error) {
	query := `
		SELECT id, holding_id, date, balance, currency
		FROM snapshots
		WHERE holding_id = $1 AND NOT is_deleted
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*domain.Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

func scanSnapshot(row rowScanner) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	var balanceStr string

	err := row.Scan(
		&snapshot.ID,
		&snapshot.HoldingID,
		&snapshot.Date,
		&balanceStr,
		&snapshot.Currency,
	)
	if err != nil {
		return nil, err
	}

	// Parse balance (NUMERIC)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	snapshot.Balance = balance
	snapshot.Date = snapshot.Date.UTC()

	return &snapshot, nil
}
