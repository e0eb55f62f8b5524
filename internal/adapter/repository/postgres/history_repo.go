package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// HistoryRepository implements usecase.HistoryRepository. The table is
// append-only; there is no update path.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Create appends a history entry inside tx.
func (r *HistoryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.HistoryEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO balance_history (
			id, holder_id, holder_type, currency, change_type, amount,
			balance_before, balance_after, reference_id, reference_type,
			performed_by, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.HolderID,
		string(entry.HolderType),
		entry.Currency,
		string(entry.ChangeType),
		decimalToNumeric(entry.Amount),
		decimalToNumeric(entry.BalanceBefore),
		decimalToNumeric(entry.BalanceAfter),
		entry.ReferenceID,
		entry.ReferenceType,
		entry.PerformedBy,
		entry.Notes,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// ListByHolder retrieves the mutation trail for one (holder, currency) pair,
// newest first.
func (r *HistoryRepository) ListByHolder(ctx context.Context, holderID, currency string, limit, offset int) ([]*domain.HistoryEntry, error) {
	query := `
		SELECT id, holder_id, holder_type, currency, change_type, amount,
		       balance_before, balance_after, reference_id, reference_type,
		       performed_by, notes, created_at
		FROM balance_history
		WHERE holder_id = $1 AND currency = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, holderID, currency, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		var (
			e          domain.HistoryEntry
			holderType string
			changeType string
			amount     pgtype.Numeric
			before     pgtype.Numeric
			after      pgtype.Numeric
			createdAt  pgtype.Timestamptz
		)

		err := rows.Scan(&e.ID, &e.HolderID, &holderType, &e.Currency, &changeType,
			&amount, &before, &after, &e.ReferenceID, &e.ReferenceType,
			&e.PerformedBy, &e.Notes, &createdAt)
		if err != nil {
			return nil, err
		}

		e.HolderType = domain.HolderType(holderType)
		e.ChangeType = domain.ChangeType(changeType)
		e.Amount = numericToDecimal(amount)
		e.BalanceBefore = numericToDecimal(before)
		e.BalanceAfter = numericToDecimal(after)
		e.CreatedAt = createdAt.Time

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
