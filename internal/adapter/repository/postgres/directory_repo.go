package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DirectoryRepository implements usecase.Directory over the reference tables
// owned by the back office. An unknown entity reads as inactive.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewDirectoryRepository creates a new DirectoryRepository.
func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) isActive(ctx context.Context, query, id string) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, query, id).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, err
	}

	return active, nil
}

// BranchActive reports whether a branch exists and is active.
func (r *DirectoryRepository) BranchActive(ctx context.Context, branchID string) (bool, error) {
	return r.isActive(ctx, `SELECT is_active FROM branches WHERE id = $1`, branchID)
}

// VaultActive reports whether a vault exists and is active.
func (r *DirectoryRepository) VaultActive(ctx context.Context, vaultID string) (bool, error) {
	return r.isActive(ctx, `SELECT is_active FROM vaults WHERE id = $1`, vaultID)
}

// CurrencyActive reports whether a currency is configured and active.
func (r *DirectoryRepository) CurrencyActive(ctx context.Context, currency string) (bool, error) {
	return r.isActive(ctx, `SELECT is_active FROM currencies WHERE code = $1`, currency)
}

// CustomerActive reports whether a customer exists and is active.
func (r *DirectoryRepository) CustomerActive(ctx context.Context, customerID string) (bool, error) {
	return r.isActive(ctx, `SELECT is_active FROM customers WHERE id = $1`, customerID)
}
