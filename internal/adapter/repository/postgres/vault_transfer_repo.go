package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// VaultTransferRepository implements usecase.VaultTransferRepository.
type VaultTransferRepository struct {
	pool *pgxpool.Pool
}

// NewVaultTransferRepository creates a new VaultTransferRepository.
func NewVaultTransferRepository(pool *pgxpool.Pool) *VaultTransferRepository {
	return &VaultTransferRepository{pool: pool}
}

const vaultTransferColumns = `
	id, number, from_vault_id, from_branch_id, to_vault_id, to_branch_id,
	currency, amount, type, status, initiated_by, approved_by, received_by,
	initiated_at, approved_at, completed_at, cancelled_at, notes,
	rejection_reason`

// Create inserts a vault transfer inside tx.
func (r *VaultTransferRepository) Create(ctx context.Context, tx usecase.Transaction, vt *domain.VaultTransfer) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO vault_transfers (` + vaultTransferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19)
	`

	_, err := pgxTx.Exec(ctx, query,
		vt.ID, vt.Number, vt.FromVaultID, vt.FromBranchID, vt.ToVaultID,
		vt.ToBranchID, vt.Currency, decimalToNumeric(vt.Amount),
		string(vt.Type), string(vt.Status), vt.InitiatedBy, vt.ApprovedBy,
		vt.ReceivedBy, timeToPgTimestamptz(vt.InitiatedAt),
		timePtrToPgTimestamptz(vt.ApprovedAt),
		timePtrToPgTimestamptz(vt.CompletedAt),
		timePtrToPgTimestamptz(vt.CancelledAt),
		vt.Notes, vt.RejectionReason,
	)

	return err
}

// Update rewrites the workflow fields of a vault transfer inside tx.
func (r *VaultTransferRepository) Update(ctx context.Context, tx usecase.Transaction, vt *domain.VaultTransfer) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE vault_transfers SET
			status = $2, approved_by = $3, received_by = $4, approved_at = $5,
			completed_at = $6, cancelled_at = $7, rejection_reason = $8
		WHERE id = $1
	`

	tag, err := pgxTx.Exec(ctx, query,
		vt.ID, string(vt.Status), vt.ApprovedBy, vt.ReceivedBy,
		timePtrToPgTimestamptz(vt.ApprovedAt),
		timePtrToPgTimestamptz(vt.CompletedAt),
		timePtrToPgTimestamptz(vt.CancelledAt),
		vt.RejectionReason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVaultTransferNotFound
	}

	return nil
}

// GetByID retrieves a vault transfer by ID.
func (r *VaultTransferRepository) GetByID(ctx context.Context, id string) (*domain.VaultTransfer, error) {
	query := `SELECT ` + vaultTransferColumns + ` FROM vault_transfers WHERE id = $1`

	return scanVaultTransfer(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves a vault transfer with a FOR UPDATE lock.
func (r *VaultTransferRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.VaultTransfer, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + vaultTransferColumns + ` FROM vault_transfers WHERE id = $1 FOR UPDATE`

	return scanVaultTransfer(pgxTx.QueryRow(ctx, query, id))
}

// NextNumber computes the next date-scoped sequence number for VTR numbers,
// serialized per day through the same advisory lock scheme as transactions.
func (r *VaultTransferRepository) NextNumber(ctx context.Context, tx usecase.Transaction, date time.Time) (string, error) {
	pgxTx := tx.(*Tx).PgxTx()

	prefix := domain.VaultTransferNumberPrefix
	datePrefix := domain.NumberDatePrefix(prefix, date)
	if err := lockNumberScope(ctx, pgxTx, datePrefix); err != nil {
		return "", err
	}

	query := `
		SELECT number FROM vault_transfers
		WHERE number LIKE $1 || '%'
		ORDER BY number DESC
		LIMIT 1
	`

	var last string
	err := pgxTx.QueryRow(ctx, query, datePrefix).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FormatNumber(prefix, date, 1), nil
		}

		return "", err
	}

	seq, err := domain.SequenceFromNumber(last)
	if err != nil {
		return "", err
	}

	return domain.FormatNumber(prefix, date, seq+1), nil
}

// List retrieves vault transfers, optionally filtered by status, newest
// first.
func (r *VaultTransferRepository) List(ctx context.Context, status domain.VaultTransferStatus, limit, offset int) ([]*domain.VaultTransfer, error) {
	query := `
		SELECT ` + vaultTransferColumns + ` FROM vault_transfers
		WHERE ($1 = '' OR status = $1)
		ORDER BY initiated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*domain.VaultTransfer
	for rows.Next() {
		vt, err := scanVaultTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, vt)
	}

	return transfers, rows.Err()
}

func scanVaultTransfer(row pgx.Row) (*domain.VaultTransfer, error) {
	var (
		vt                                 domain.VaultTransfer
		typ, status                        string
		amount                             pgtype.Numeric
		initiatedAt                        pgtype.Timestamptz
		approvedAt, completedAt, cancelled pgtype.Timestamptz
	)

	err := row.Scan(
		&vt.ID, &vt.Number, &vt.FromVaultID, &vt.FromBranchID, &vt.ToVaultID,
		&vt.ToBranchID, &vt.Currency, &amount, &typ, &status, &vt.InitiatedBy,
		&vt.ApprovedBy, &vt.ReceivedBy, &initiatedAt, &approvedAt,
		&completedAt, &cancelled, &vt.Notes, &vt.RejectionReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVaultTransferNotFound
		}

		return nil, err
	}

	vt.Type = domain.VaultTransferType(typ)
	vt.Status = domain.VaultTransferStatus(status)
	vt.Amount = numericToDecimal(amount)
	vt.InitiatedAt = initiatedAt.Time
	vt.ApprovedAt = pgTimestamptzToTimePtr(approvedAt)
	vt.CompletedAt = pgTimestamptzToTimePtr(completedAt)
	vt.CancelledAt = pgTimestamptzToTimePtr(cancelled)

	return &vt, nil
}
