package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	pool *pgxpool.Pool
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(pool *pgxpool.Pool) *BalanceRepository {
	return &BalanceRepository{pool: pool}
}

const balanceColumns = `
	holder_id, holder_type, currency, balance, reserved_balance,
	minimum_threshold, maximum_threshold, version, last_updated_at, created_at`

// Create inserts a new balance row.
func (r *BalanceRepository) Create(ctx context.Context, balance *domain.Balance) error {
	query := `
		INSERT INTO balances (` + balanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		balance.HolderID,
		string(balance.HolderType),
		balance.Currency,
		decimalToNumeric(balance.Balance),
		decimalToNumeric(balance.ReservedBalance),
		decimalPtrToNumeric(balance.MinimumThreshold),
		decimalPtrToNumeric(balance.MaximumThreshold),
		balance.Version,
		timeToPgTimestamptz(balance.LastUpdatedAt),
		timeToPgTimestamptz(balance.CreatedAt),
	)

	return err
}

// Get retrieves a balance row by (holder, currency).
func (r *BalanceRepository) Get(ctx context.Context, holderID, currency string) (*domain.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE holder_id = $1 AND currency = $2`

	return scanBalance(r.pool.QueryRow(ctx, query, holderID, currency))
}

// GetForUpdate retrieves a balance row with a FOR UPDATE lock.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, holderID, currency string) (*domain.Balance, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + balanceColumns + ` FROM balances WHERE holder_id = $1 AND currency = $2 FOR UPDATE`

	return scanBalance(pgxTx.QueryRow(ctx, query, holderID, currency))
}

// Update writes a mutated balance row inside tx.
func (r *BalanceRepository) Update(ctx context.Context, tx usecase.Transaction, balance *domain.Balance) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE balances
		SET balance = $3, reserved_balance = $4, version = $5, last_updated_at = $6
		WHERE holder_id = $1 AND currency = $2
	`

	tag, err := pgxTx.Exec(ctx, query,
		balance.HolderID,
		balance.Currency,
		decimalToNumeric(balance.Balance),
		decimalToNumeric(balance.ReservedBalance),
		balance.Version,
		timeToPgTimestamptz(balance.LastUpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBalanceNotFound
	}

	return nil
}

// ListByHolder retrieves all currency balances for one holder.
func (r *BalanceRepository) ListByHolder(ctx context.Context, holderID string) ([]*domain.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE holder_id = $1 ORDER BY currency`

	rows, err := r.pool.Query(ctx, query, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []*domain.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}

func scanBalance(row pgx.Row) (*domain.Balance, error) {
	var (
		b          domain.Balance
		holderType string
		bal        pgtype.Numeric
		reserved   pgtype.Numeric
		minT       pgtype.Numeric
		maxT       pgtype.Numeric
		lastAt     pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
	)

	err := row.Scan(&b.HolderID, &holderType, &b.Currency, &bal, &reserved,
		&minT, &maxT, &b.Version, &lastAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBalanceNotFound
		}

		return nil, err
	}

	b.HolderType = domain.HolderType(holderType)
	b.Balance = numericToDecimal(bal)
	b.ReservedBalance = numericToDecimal(reserved)
	b.MinimumThreshold = numericToDecimalPtr(minT)
	b.MaximumThreshold = numericToDecimalPtr(maxT)
	b.LastUpdatedAt = lastAt.Time
	b.CreatedAt = createdAt.Time

	return &b, nil
}
