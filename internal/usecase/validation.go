package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// Limits holds the configurable validation ceilings.
type Limits struct {
	// MaxTransactionAmount caps a single transaction per currency unit.
	MaxTransactionAmount decimal.Decimal
	// MaxDailyBranchAmount caps the rolling 24h completed sum per branch.
	MaxDailyBranchAmount decimal.Decimal
	// MaxCustomerDailyExchanges caps exchange count per customer per 24h.
	MaxCustomerDailyExchanges int
	// RateStalenessWindow is how old a rate may be before it is rejected.
	RateStalenessWindow time.Duration
}

// DefaultLimits returns the stock ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxTransactionAmount:      decimal.NewFromInt(1_000_000),
		MaxDailyBranchAmount:      decimal.NewFromInt(5_000_000),
		MaxCustomerDailyExchanges: 10,
		RateStalenessWindow:       24 * time.Hour,
	}
}

// ValidationService runs the pre-creation checks for transactions. Checks run
// in a fixed order and the first failure wins; later checks are skipped.
type ValidationService struct {
	directory       Directory
	rates           RateSource
	balanceRepo     BalanceRepository
	transactionRepo TransactionRepository
	limits          Limits
	metrics         *metrics.Metrics
}

func NewValidationService(
	directory Directory,
	rates RateSource,
	balanceRepo BalanceRepository,
	transactionRepo TransactionRepository,
	limits Limits,
	metrics *metrics.Metrics,
) *ValidationService {
	return &ValidationService{
		directory:       directory,
		rates:           rates,
		balanceRepo:     balanceRepo,
		transactionRepo: transactionRepo,
		limits:          limits,
		metrics:         metrics,
	}
}

// ValidateTransactionInput is what the pipeline needs to know about a
// transaction before it exists.
type ValidateTransactionInput struct {
	Type       domain.TransactionType
	BranchID   string
	CustomerID string
	// Currency and Amount are the face value of the transaction; limits and
	// duplicate probes run against them.
	Currency string
	Amount   decimal.Decimal
	// ToCurrency is set for exchanges only.
	ToCurrency string
	Reference  string
	// DebitCurrency and DebitAmount describe what will leave the branch on
	// completion. A zero DebitAmount skips the balance check; pure inflows
	// cannot overdraw.
	DebitCurrency string
	DebitAmount   decimal.Decimal
	// Counterparty of a transfer, when there is one.
	ToBranchID string
	VaultID    string
}

func (s *ValidationService) fail(err error) error {
	s.metrics.ValidationFailures.WithLabelValues(domain.ErrorCode(err)).Inc()
	return err
}

// ValidateTransaction runs the full ordered pipeline. It uses current reads
// only; the authoritative balance check is repeated under lock at completion.
func (s *ValidationService) ValidateTransaction(ctx context.Context, input ValidateTransactionInput) error {
	if err := s.checkEntities(ctx, input); err != nil {
		return s.fail(err)
	}

	if input.Type == domain.TransactionTypeExchange {
		if err := s.checkRateFreshness(ctx, input.Currency, input.ToCurrency); err != nil {
			return s.fail(err)
		}
	}

	if input.DebitAmount.IsPositive() {
		if err := s.checkAvailableBalance(ctx, input.BranchID, input.DebitCurrency, input.DebitAmount); err != nil {
			return s.fail(err)
		}
	}

	if err := s.checkLimits(ctx, input); err != nil {
		return s.fail(err)
	}

	if input.Type == domain.TransactionTypeExchange && input.CustomerID != "" {
		if err := s.checkCustomerExchangeCount(ctx, input.CustomerID); err != nil {
			return s.fail(err)
		}
	}

	if err := s.checkDuplicates(ctx, input); err != nil {
		return s.fail(err)
	}

	return nil
}

func (s *ValidationService) checkEntities(ctx context.Context, input ValidateTransactionInput) error {
	active, err := s.directory.BranchActive(ctx, input.BranchID)
	if err != nil {
		return err
	}
	if !active {
		return domain.ErrBranchInactive
	}

	currencies := []string{input.Currency}
	if input.ToCurrency != "" {
		currencies = append(currencies, input.ToCurrency)
	}
	for _, c := range currencies {
		active, err := s.directory.CurrencyActive(ctx, c)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf("%w: %s", domain.ErrCurrencyInactive, c)
		}
	}

	if input.CustomerID != "" {
		active, err := s.directory.CustomerActive(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrCustomerInactive
		}
	}

	if input.ToBranchID != "" {
		active, err := s.directory.BranchActive(ctx, input.ToBranchID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrBranchInactive
		}
	}

	if input.VaultID != "" {
		active, err := s.directory.VaultActive(ctx, input.VaultID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrInvalidDestination
		}
	}

	return nil
}

func (s *ValidationService) checkRateFreshness(ctx context.Context, from, to string) error {
	rate, err := s.rates.Latest(ctx, from, to)
	if err != nil {
		return err
	}
	if rate.IsStale(time.Now().UTC(), s.limits.RateStalenessWindow) {
		return fmt.Errorf("%w: %s/%s is %s old", domain.ErrStaleRate, from, to, rate.Age(time.Now().UTC()).Round(time.Minute))
	}
	return nil
}

func (s *ValidationService) checkAvailableBalance(ctx context.Context, branchID, currency string, amount decimal.Decimal) error {
	balance, err := s.balanceRepo.Get(ctx, branchID, currency)
	if err != nil {
		return err
	}
	if balance.Available().LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (s *ValidationService) checkLimits(ctx context.Context, input ValidateTransactionInput) error {
	if input.Amount.GreaterThan(s.limits.MaxTransactionAmount) {
		return fmt.Errorf("%w: amount %s exceeds per-transaction limit %s",
			domain.ErrLimitExceeded, input.Amount, s.limits.MaxTransactionAmount)
	}

	since := time.Now().UTC().Add(-DailyLimitWindow)
	sum, err := s.transactionRepo.SumCompletedByBranchSince(ctx, input.BranchID, since)
	if err != nil {
		return err
	}
	if sum.Add(input.Amount).GreaterThan(s.limits.MaxDailyBranchAmount) {
		return fmt.Errorf("%w: branch 24h volume %s plus %s exceeds limit %s",
			domain.ErrLimitExceeded, sum, input.Amount, s.limits.MaxDailyBranchAmount)
	}

	return nil
}

func (s *ValidationService) checkCustomerExchangeCount(ctx context.Context, customerID string) error {
	since := time.Now().UTC().Add(-DailyLimitWindow)
	count, err := s.transactionRepo.CountCompletedExchangesByCustomerSince(ctx, customerID, since)
	if err != nil {
		return err
	}
	if count >= s.limits.MaxCustomerDailyExchanges {
		return fmt.Errorf("%w: customer reached %d exchanges in 24h", domain.ErrLimitExceeded, count)
	}
	return nil
}

func (s *ValidationService) checkDuplicates(ctx context.Context, input ValidateTransactionInput) error {
	if input.Reference != "" {
		existing, err := s.transactionRepo.FindByReference(ctx, input.Reference)
		if err != nil && err != domain.ErrTransactionNotFound {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: reference %q already used by %s",
				domain.ErrDuplicateTransaction, input.Reference, existing.Number)
		}
	}

	since := time.Now().UTC().Add(-DuplicateWindow)
	similar, err := s.transactionRepo.FindSimilarSince(ctx, input.BranchID, input.Amount, input.Currency, since)
	if err != nil && err != domain.ErrTransactionNotFound {
		return err
	}
	if similar != nil {
		return fmt.Errorf("%w: matches %s created %s",
			domain.ErrDuplicateTransaction, similar.Number, similar.CreatedAt.Format(time.RFC3339))
	}

	return nil
}
