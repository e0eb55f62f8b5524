package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository over a
// single table holding all four transaction kinds. Detail columns are
// meaningful only for the row's type.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `
	id, number, type, status, amount, currency, branch_id, user_id,
	customer_id, reference_number, notes,
	income_category, income_source,
	expense_category, expense_payee, expense_approval_required,
	expense_approved_by, expense_approved_at,
	exchange_from_currency, exchange_to_currency, exchange_from_amount,
	exchange_to_amount, exchange_rate_used, exchange_commission_pct,
	exchange_commission_amount,
	transfer_from_branch_id, transfer_to_branch_id, transfer_vault_id,
	transfer_direction, transfer_received_by, transfer_received_at,
	transaction_at, completed_at, cancelled_at, cancelled_by, cancel_reason,
	created_at, updated_at`

// Create inserts a transaction inside tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38)
	`

	_, err := pgxTx.Exec(ctx, query, transactionArgs(t)...)

	return err
}

// Update rewrites a transaction row inside tx.
func (r *TransactionRepository) Update(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE transactions SET
			status = $2, notes = $3,
			expense_approved_by = $4, expense_approved_at = $5,
			transfer_received_by = $6, transfer_received_at = $7,
			completed_at = $8, cancelled_at = $9, cancelled_by = $10,
			cancel_reason = $11, updated_at = $12
		WHERE id = $1
	`

	var (
		approvedBy string
		approvedAt pgtype.Timestamptz
		receivedBy string
		receivedAt pgtype.Timestamptz
	)
	if t.Expense != nil {
		approvedBy = t.Expense.ApprovedBy
		approvedAt = timePtrToPgTimestamptz(t.Expense.ApprovedAt)
	}
	if t.Transfer != nil {
		receivedBy = t.Transfer.ReceivedBy
		receivedAt = timePtrToPgTimestamptz(t.Transfer.ReceivedAt)
	}

	tag, err := pgxTx.Exec(ctx, query,
		t.ID,
		string(t.Status),
		t.Notes,
		approvedBy,
		approvedAt,
		receivedBy,
		receivedAt,
		timePtrToPgTimestamptz(t.CompletedAt),
		timePtrToPgTimestamptz(t.CancelledAt),
		t.CancelledBy,
		t.CancelReason,
		timeToPgTimestamptz(t.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves a transaction by ID with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	return scanTransaction(pgxTx.QueryRow(ctx, query, id))
}

// NextNumber computes the next date-scoped sequence number. An advisory
// lock on the prefix+date scope holds concurrent creations back until this
// transaction commits, so no two can share a sequence.
func (r *TransactionRepository) NextNumber(ctx context.Context, tx usecase.Transaction, prefix string, date time.Time) (string, error) {
	pgxTx := tx.(*Tx).PgxTx()

	datePrefix := domain.NumberDatePrefix(prefix, date)
	if err := lockNumberScope(ctx, pgxTx, datePrefix); err != nil {
		return "", err
	}

	query := `
		SELECT number FROM transactions
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

// SumCompletedByBranchSince sums completed transaction amounts for a branch
// inside the rolling window.
func (r *TransactionRepository) SumCompletedByBranchSince(ctx context.Context, branchID string, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE branch_id = $1 AND status = 'completed' AND completed_at > $2
	`

	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, query, branchID, timeToPgTimestamptz(since)).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// CountCompletedExchangesByCustomerSince counts a customer's completed
// exchanges inside the rolling window.
func (r *TransactionRepository) CountCompletedExchangesByCustomerSince(ctx context.Context, customerID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE customer_id = $1 AND type = 'exchange' AND status = 'completed'
		  AND completed_at > $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, customerID, timeToPgTimestamptz(since)).Scan(&count)

	return count, err
}

// FindByReference retrieves the transaction carrying an external reference.
func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_number = $1 LIMIT 1`

	return scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// FindSimilarSince probes for a near-duplicate: same branch, amount and
// currency created inside the window, cancellations excluded.
func (r *TransactionRepository) FindSimilarSince(ctx context.Context, branchID string, amount decimal.Decimal, currency string, since time.Time) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE branch_id = $1 AND amount = $2 AND currency = $3
		  AND status <> 'cancelled' AND created_at > $4
		LIMIT 1
	`

	return scanTransaction(r.pool.QueryRow(ctx, query,
		branchID, decimalToNumeric(amount), currency, timeToPgTimestamptz(since)))
}

// ListByBranch retrieves a branch's transactions, newest first.
func (r *TransactionRepository) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE branch_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, branchID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

func transactionArgs(t *domain.Transaction) []any {
	var (
		incomeCategory, incomeSource                   string
		expenseCategory, expensePayee                  string
		expenseApprovalRequired                        bool
		expenseApprovedBy                              string
		expenseApprovedAt                              pgtype.Timestamptz
		exFromCurrency, exToCurrency                   string
		exFromAmount, exToAmount, exRate               pgtype.Numeric
		exCommissionPct, exCommissionAmount            pgtype.Numeric
		trFromBranch, trToBranch, trVault, trDirection string
		trReceivedBy                                   string
		trReceivedAt                                   pgtype.Timestamptz
	)

	switch {
	case t.Income != nil:
		incomeCategory = t.Income.Category
		incomeSource = t.Income.Source
	case t.Expense != nil:
		expenseCategory = t.Expense.Category
		expensePayee = t.Expense.Payee
		expenseApprovalRequired = t.Expense.ApprovalRequired
		expenseApprovedBy = t.Expense.ApprovedBy
		expenseApprovedAt = timePtrToPgTimestamptz(t.Expense.ApprovedAt)
	case t.Exchange != nil:
		exFromCurrency = t.Exchange.FromCurrency
		exToCurrency = t.Exchange.ToCurrency
		exFromAmount = decimalToNumeric(t.Exchange.FromAmount)
		exToAmount = decimalToNumeric(t.Exchange.ToAmount)
		exRate = decimalToNumeric(t.Exchange.RateUsed)
		exCommissionPct = decimalToNumeric(t.Exchange.CommissionPercentage)
		exCommissionAmount = decimalToNumeric(t.Exchange.CommissionAmount)
	case t.Transfer != nil:
		trFromBranch = t.Transfer.FromBranchID
		trToBranch = t.Transfer.ToBranchID
		trVault = t.Transfer.VaultID
		trDirection = string(t.Transfer.Direction)
		trReceivedBy = t.Transfer.ReceivedBy
		trReceivedAt = timePtrToPgTimestamptz(t.Transfer.ReceivedAt)
	}

	return []any{
		t.ID, t.Number, string(t.Type), string(t.Status),
		decimalToNumeric(t.Amount), t.Currency, t.BranchID, t.UserID,
		t.CustomerID, t.ReferenceNumber, t.Notes,
		incomeCategory, incomeSource,
		expenseCategory, expensePayee, expenseApprovalRequired,
		expenseApprovedBy, expenseApprovedAt,
		exFromCurrency, exToCurrency, exFromAmount,
		exToAmount, exRate, exCommissionPct,
		exCommissionAmount,
		trFromBranch, trToBranch, trVault,
		trDirection, trReceivedBy, trReceivedAt,
		timeToPgTimestamptz(t.TransactionAt),
		timePtrToPgTimestamptz(t.CompletedAt),
		timePtrToPgTimestamptz(t.CancelledAt),
		t.CancelledBy, t.CancelReason,
		timeToPgTimestamptz(t.CreatedAt),
		timeToPgTimestamptz(t.UpdatedAt),
	}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                                              domain.Transaction
		typ, status                                    string
		amount                                         pgtype.Numeric
		incomeCategory, incomeSource                   string
		expenseCategory, expensePayee                  string
		expenseApprovalRequired                        bool
		expenseApprovedBy                              string
		expenseApprovedAt                              pgtype.Timestamptz
		exFromCurrency, exToCurrency                   string
		exFromAmount, exToAmount, exRate               pgtype.Numeric
		exCommissionPct, exCommissionAmount            pgtype.Numeric
		trFromBranch, trToBranch, trVault, trDirection string
		trReceivedBy                                   string
		trReceivedAt                                   pgtype.Timestamptz
		transactionAt, completedAt, cancelledAt        pgtype.Timestamptz
		createdAt, updatedAt                           pgtype.Timestamptz
	)

	err := row.Scan(
		&t.ID, &t.Number, &typ, &status, &amount, &t.Currency, &t.BranchID,
		&t.UserID, &t.CustomerID, &t.ReferenceNumber, &t.Notes,
		&incomeCategory, &incomeSource,
		&expenseCategory, &expensePayee, &expenseApprovalRequired,
		&expenseApprovedBy, &expenseApprovedAt,
		&exFromCurrency, &exToCurrency, &exFromAmount,
		&exToAmount, &exRate, &exCommissionPct,
		&exCommissionAmount,
		&trFromBranch, &trToBranch, &trVault,
		&trDirection, &trReceivedBy, &trReceivedAt,
		&transactionAt, &completedAt, &cancelledAt, &t.CancelledBy,
		&t.CancelReason, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	t.Amount = numericToDecimal(amount)
	t.TransactionAt = transactionAt.Time
	t.CompletedAt = pgTimestamptzToTimePtr(completedAt)
	t.CancelledAt = pgTimestamptzToTimePtr(cancelledAt)
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time

	switch t.Type {
	case domain.TransactionTypeIncome:
		t.Income = &domain.IncomeDetails{
			Category: incomeCategory,
			Source:   incomeSource,
		}
	case domain.TransactionTypeExpense:
		t.Expense = &domain.ExpenseDetails{
			Category:         expenseCategory,
			Payee:            expensePayee,
			ApprovalRequired: expenseApprovalRequired,
			ApprovedBy:       expenseApprovedBy,
			ApprovedAt:       pgTimestamptzToTimePtr(expenseApprovedAt),
		}
	case domain.TransactionTypeExchange:
		t.Exchange = &domain.ExchangeDetails{
			FromCurrency:         exFromCurrency,
			ToCurrency:           exToCurrency,
			FromAmount:           numericToDecimal(exFromAmount),
			ToAmount:             numericToDecimal(exToAmount),
			RateUsed:             numericToDecimal(exRate),
			CommissionPercentage: numericToDecimal(exCommissionPct),
			CommissionAmount:     numericToDecimal(exCommissionAmount),
		}
	case domain.TransactionTypeTransfer:
		t.Transfer = &domain.TransferDetails{
			FromBranchID: trFromBranch,
			ToBranchID:   trToBranch,
			VaultID:      trVault,
			Direction:    domain.TransferDirection(trDirection),
			ReceivedBy:   trReceivedBy,
			ReceivedAt:   pgTimestamptzToTimePtr(trReceivedAt),
		}
	}

	return &t, nil
}
