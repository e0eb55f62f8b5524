package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
	"github.com/iho/fxledger/internal/usecase"
	"github.com/iho/fxledger/internal/usecase/mocks"
)

// Shared across the package: promauto registers on the default registry and
// must run once per test binary.
var testMetrics = metrics.New()

type balanceFixture struct {
	uc      *usecase.BalanceUseCase
	balRepo *mocks.MockBalanceRepository
	history *mocks.MockHistoryRepository
}

func newBalanceFixture() *balanceFixture {
	balRepo := mocks.NewMockBalanceRepository()
	history := mocks.NewMockHistoryRepository()
	uc := usecase.NewBalanceUseCase(
		&mocks.MockTransactionManager{},
		balRepo,
		history,
		&mocks.MockRetrier{},
		&mocks.MockIDGenerator{},
		testMetrics,
	)
	return &balanceFixture{uc: uc, balRepo: balRepo, history: history}
}

func seedBalance(f *balanceFixture, holderID, currency string, amount int64) {
	f.balRepo.Seed(&domain.Balance{
		HolderID:   holderID,
		HolderType: domain.HolderTypeBranch,
		Currency:   currency,
		Balance:    decimal.NewFromInt(amount),
		CreatedAt:  time.Now().UTC(),
	})
}

func TestBalanceUseCase_Apply(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-1", "USD", 1000)

	result, err := f.uc.Apply(context.Background(), usecase.MutationInput{
		HolderID:    "branch-1",
		HolderType:  domain.HolderTypeBranch,
		Currency:    "USD",
		Delta:       decimal.NewFromInt(-250),
		ChangeType:  domain.ChangeTypeTransaction,
		ReferenceID: "txn-1",
		PerformedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Balance.Balance.Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected balance 750, got %s", result.Balance.Balance)
	}
	if result.Balance.Version != 1 {
		t.Errorf("expected version 1, got %d", result.Balance.Version)
	}

	entries := f.history.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.BalanceBefore.Equal(decimal.NewFromInt(1000)) || !e.BalanceAfter.Equal(decimal.NewFromInt(750)) {
		t.Errorf("history before/after mismatch: %s -> %s", e.BalanceBefore, e.BalanceAfter)
	}
	if e.ReferenceID != "txn-1" || e.PerformedBy != "user-1" {
		t.Errorf("history attribution mismatch: %+v", e)
	}
}

func TestBalanceUseCase_ApplyInsufficient(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-1", "USD", 100)

	_, err := f.uc.Apply(context.Background(), usecase.MutationInput{
		HolderID:   "branch-1",
		Currency:   "USD",
		Delta:      decimal.NewFromInt(-101),
		ChangeType: domain.ChangeTypeTransaction,
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Nothing written on failure.
	if len(f.history.Entries()) != 0 {
		t.Error("failed mutation must not write history")
	}
	b, _ := f.uc.Get(context.Background(), "branch-1", "USD")
	if !b.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance must be unchanged, got %s", b.Balance)
	}
}

func TestBalanceUseCase_ConcurrentApplies(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-1", "USD", 1000)

	// Emulates FOR UPDATE: the row stays locked from the locked read until
	// the write lands, so mutations serialize like they do in postgres.
	var rowMu sync.Mutex
	f.balRepo.GetForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, holderID, currency string) (*domain.Balance, error) {
		rowMu.Lock()
		b, err := f.balRepo.Get(ctx, holderID, currency)
		if err != nil {
			rowMu.Unlock()
			return nil, err
		}
		return b, nil
	}
	f.balRepo.UpdateFunc = func(ctx context.Context, tx usecase.Transaction, balance *domain.Balance) error {
		f.balRepo.Seed(balance)
		rowMu.Unlock()
		return nil
	}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Apply(context.Background(), usecase.MutationInput{
				HolderID:    "branch-1",
				HolderType:  domain.HolderTypeBranch,
				Currency:    "USD",
				Delta:       decimal.NewFromInt(-100),
				ChangeType:  domain.ChangeTypeTransaction,
				PerformedBy: "user-1",
			})
			if err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	b, _ := f.uc.Get(context.Background(), "branch-1", "USD")
	if !b.Balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("final balance %s, want 200", b.Balance)
	}
	if got := len(f.history.Entries()); got != workers {
		t.Fatalf("history entries %d, want %d", got, workers)
	}
}

func TestBalanceUseCase_ApplyZeroDelta(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-1", "USD", 100)

	_, err := f.uc.Apply(context.Background(), usecase.MutationInput{
		HolderID: "branch-1",
		Currency: "USD",
		Delta:    decimal.Zero,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBalanceUseCase_ApplyPairConservation(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-a", "USD", 4000)
	seedBalance(f, "branch-b", "USD", 4000)

	amount := decimal.NewFromInt(1500)
	debit := usecase.MutationInput{
		HolderID:   "branch-b",
		HolderType: domain.HolderTypeBranch,
		Currency:   "USD",
		Delta:      amount.Neg(),
		ChangeType: domain.ChangeTypeTransfer,
	}
	credit := usecase.MutationInput{
		HolderID:   "branch-a",
		HolderType: domain.HolderTypeBranch,
		Currency:   "USD",
		Delta:      amount,
		ChangeType: domain.ChangeTypeTransfer,
	}

	debitRes, creditRes, err := f.uc.ApplyPair(context.Background(), debit, credit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debitRes.Balance.Balance.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("debit side: expected 2500, got %s", debitRes.Balance.Balance)
	}
	if !creditRes.Balance.Balance.Equal(decimal.NewFromInt(5500)) {
		t.Errorf("credit side: expected 5500, got %s", creditRes.Balance.Balance)
	}

	total := debitRes.Balance.Balance.Add(creditRes.Balance.Balance)
	if !total.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("conservation violated: total %s", total)
	}

	// Rows locked in lexicographic order regardless of argument order.
	want := []string{"branch-a/USD", "branch-b/USD"}
	if len(f.balRepo.LockOrder) != 2 || f.balRepo.LockOrder[0] != want[0] || f.balRepo.LockOrder[1] != want[1] {
		t.Errorf("lock order %v, want %v", f.balRepo.LockOrder, want)
	}
}

func TestBalanceUseCase_ApplyPairFailureLeavesBothUntouched(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-a", "USD", 100)
	seedBalance(f, "branch-b", "USD", 100)

	_, _, err := f.uc.ApplyPair(context.Background(),
		usecase.MutationInput{HolderID: "branch-a", Currency: "USD", Delta: decimal.NewFromInt(-500), ChangeType: domain.ChangeTypeTransfer},
		usecase.MutationInput{HolderID: "branch-b", Currency: "USD", Delta: decimal.NewFromInt(500), ChangeType: domain.ChangeTypeTransfer},
	)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(f.history.Entries()) != 0 {
		t.Error("failed pair must not write history")
	}
}

func TestBalanceUseCase_ReserveReleaseCommit(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-1", "USD", 1000)
	ctx := context.Background()

	b, err := f.uc.Reserve(ctx, "branch-1", "USD", decimal.NewFromInt(300), "user-1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !b.Available().Equal(decimal.NewFromInt(700)) {
		t.Errorf("available after reserve: %s", b.Available())
	}

	// Cannot reserve more than available.
	if _, err := f.uc.Reserve(ctx, "branch-1", "USD", decimal.NewFromInt(701), "user-1"); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("over-reserve: expected ErrInsufficientBalance, got %v", err)
	}

	b, err = f.uc.Release(ctx, "branch-1", "USD", decimal.NewFromInt(100), "user-1")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !b.ReservedBalance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("reserved after release: %s", b.ReservedBalance)
	}

	// Cannot release more than reserved.
	if _, err := f.uc.Release(ctx, "branch-1", "USD", decimal.NewFromInt(201), "user-1"); !errors.Is(err, domain.ErrReservedReleaseAmount) {
		t.Errorf("over-release: expected ErrReservedReleaseAmount, got %v", err)
	}

	res, err := f.uc.CommitReserved(ctx, usecase.MutationInput{
		HolderID:   "branch-1",
		Currency:   "USD",
		Delta:      decimal.NewFromInt(200),
		ChangeType: domain.ChangeTypeTransaction,
	})
	if err != nil {
		t.Fatalf("commit reserved: %v", err)
	}
	if !res.Balance.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("balance after commit: %s", res.Balance.Balance)
	}
	if !res.Balance.ReservedBalance.IsZero() {
		t.Errorf("reserved after commit: %s", res.Balance.ReservedBalance)
	}
	// Available is unchanged by committing a reservation.
	if !res.Balance.Available().Equal(decimal.NewFromInt(800)) {
		t.Errorf("available after commit: %s", res.Balance.Available())
	}
}

func TestBalanceUseCase_Reconcile(t *testing.T) {
	f := newBalanceFixture()
	seedBalance(f, "branch-1", "USD", 1000)
	ctx := context.Background()

	res, err := f.uc.Reconcile(ctx, "branch-1", "USD", decimal.NewFromInt(950), "auditor-1", "cash count short")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !res.Balance.Balance.Equal(decimal.NewFromInt(950)) {
		t.Errorf("balance after reconcile: %s", res.Balance.Balance)
	}

	entries := f.history.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ChangeType != domain.ChangeTypeReconciliation {
		t.Errorf("change type %s", entries[0].ChangeType)
	}
	if !entries[0].Amount.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("reconcile delta %s", entries[0].Amount)
	}

	// A matching count still leaves an audit record.
	_, err = f.uc.Reconcile(ctx, "branch-1", "USD", decimal.NewFromInt(950), "auditor-1", "recount")
	if err != nil {
		t.Fatalf("no-diff reconcile: %v", err)
	}
	if len(f.history.Entries()) != 2 {
		t.Errorf("expected 2 entries, got %d", len(f.history.Entries()))
	}
}

func TestBalanceUseCase_ThresholdWarnings(t *testing.T) {
	f := newBalanceFixture()
	min := decimal.NewFromInt(500)
	f.balRepo.Seed(&domain.Balance{
		HolderID:         "branch-1",
		HolderType:       domain.HolderTypeBranch,
		Currency:         "USD",
		Balance:          decimal.NewFromInt(600),
		MinimumThreshold: &min,
	})

	res, err := f.uc.Apply(context.Background(), usecase.MutationInput{
		HolderID:   "branch-1",
		Currency:   "USD",
		Delta:      decimal.NewFromInt(-200),
		ChangeType: domain.ChangeTypeTransaction,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != "below_minimum" {
		t.Errorf("expected below_minimum warning, got %+v", res.Warnings)
	}
}
