package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// GetByID retrieves a non-deleted holding by its ID
func (r *holdingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Holding, error) {
	query := `
		SELECT id, user_id, name, type, currency, symbol, is_active, is_deleted
		FROM holdings
		WHERE id = $1 AND NOT is_deleted
	`

	holding, err := scanHolding(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("holding %s: %w", id, domain.ErrHoldingNotFound)
		}
		return nil, fmt.Errorf("failed to get holding by ID: %w", err)
	}

	return holding, nil
}

// ListActive retrieves the active, non-deleted holdings of a user
func (r *holdingRepository) ListActive(ctx context.Context, userID string) ([]*domain.Holding, error) {
	query := `
		SELECT id, user_id, name, type, currency, symbol, is_active, is_deleted
		FROM holdings
		WHERE user_id = $1 AND is_active AND NOT is_deleted
		ORDER BY name ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var holding domain.Holding
	var holdingType string
	var symbol sql.NullString

	err := row.Scan(
		&holding.ID,
		&holding.UserID,
		&holding.Name,
		&holdingType,
		&holding.Currency,
		&symbol,
		&holding.IsActive,
		&holding.IsDeleted,
	)
	if err != nil {
		return nil, err
	}

	holding.Type = domain.HoldingType(holdingType)
	// Parse symbol (nullable)
	if symbol.Valid {
		s := symbol.String
		holding.Symbol = &s
	}

	return &holding, nil
}
