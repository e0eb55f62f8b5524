package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/usecase"
	"github.com/iho/fxledger/internal/usecase/mocks"
)

type vaultFixture struct {
	uc        *usecase.VaultTransferUseCase
	balances  *usecase.BalanceUseCase
	balRepo   *mocks.MockBalanceRepository
	vtRepo    *mocks.MockVaultTransferRepository
	directory *mocks.MockDirectory
}

func newVaultFixture(threshold int64) *vaultFixture {
	balRepo := mocks.NewMockBalanceRepository()
	history := mocks.NewMockHistoryRepository()
	vtRepo := mocks.NewMockVaultTransferRepository()
	directory := mocks.NewMockDirectory()
	txManager := &mocks.MockTransactionManager{}
	retrier := &mocks.MockRetrier{}
	idGen := &mocks.MockIDGenerator{}

	balances := usecase.NewBalanceUseCase(txManager, balRepo, history, retrier, idGen, testMetrics)
	uc := usecase.NewVaultTransferUseCase(txManager, vtRepo, balances, directory, retrier, idGen,
		decimal.NewFromInt(threshold), testMetrics)

	return &vaultFixture{uc: uc, balances: balances, balRepo: balRepo, vtRepo: vtRepo, directory: directory}
}

func (f *vaultFixture) seedBalance(holderID string, kind domain.HolderType, currency string, amount int64) {
	f.balRepo.Seed(&domain.Balance{
		HolderID:   holderID,
		HolderType: kind,
		Currency:   currency,
		Balance:    decimal.NewFromInt(amount),
		CreatedAt:  time.Now().UTC(),
	})
}

func TestVaultTransferUseCase_ApprovalWorkflow(t *testing.T) {
	f := newVaultFixture(10000)
	f.seedBalance("vault-1", domain.HolderTypeVault, "USD", 50000)
	f.seedBalance("vault-2", domain.HolderTypeVault, "USD", 50000)
	ctx := context.Background()

	vt, err := f.uc.Initiate(ctx, usecase.InitiateVaultTransferInput{
		FromVaultID: "vault-1",
		ToVaultID:   "vault-2",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(10000),
		InitiatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	// At the threshold approval is required.
	if vt.Status != domain.VaultTransferPending {
		t.Fatalf("expected pending, got %s", vt.Status)
	}
	if !strings.HasPrefix(vt.Number, "VTR-") {
		t.Errorf("number %q", vt.Number)
	}

	// Completing before approval is illegal.
	if _, err := f.uc.Complete(ctx, vt.ID, "user-2"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("premature complete: expected ErrInvalidStateTransition, got %v", err)
	}

	vt, err = f.uc.Approve(ctx, vt.ID, "manager-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if vt.Status != domain.VaultTransferInTransit || vt.ApprovedBy != "manager-1" {
		t.Errorf("approval not recorded: %+v", vt)
	}

	vt, err = f.uc.Complete(ctx, vt.ID, "user-2")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if vt.Status != domain.VaultTransferCompleted || vt.ReceivedBy != "user-2" {
		t.Errorf("completion not recorded: %+v", vt)
	}

	from, _ := f.balances.Get(ctx, "vault-1", "USD")
	to, _ := f.balances.Get(ctx, "vault-2", "USD")
	if !from.Balance.Equal(decimal.NewFromInt(40000)) || !to.Balance.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("balances after transfer: from=%s to=%s", from.Balance, to.Balance)
	}
	if !from.Balance.Add(to.Balance).Equal(decimal.NewFromInt(100000)) {
		t.Error("conservation violated")
	}

	// Completing twice must fail and not move money again.
	if _, err := f.uc.Complete(ctx, vt.ID, "user-2"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("double complete: expected ErrInvalidStateTransition, got %v", err)
	}
	from, _ = f.balances.Get(ctx, "vault-1", "USD")
	if !from.Balance.Equal(decimal.NewFromInt(40000)) {
		t.Errorf("double completion moved money: %s", from.Balance)
	}
}

func TestVaultTransferUseCase_AutoApproveBelowThreshold(t *testing.T) {
	f := newVaultFixture(10000)
	f.seedBalance("vault-1", domain.HolderTypeVault, "USD", 50000)
	f.seedBalance("branch-1", domain.HolderTypeBranch, "USD", 0)
	ctx := context.Background()

	vt, err := f.uc.Initiate(ctx, usecase.InitiateVaultTransferInput{
		FromVaultID: "vault-1",
		ToBranchID:  "branch-1",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(9999),
		InitiatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if vt.Status != domain.VaultTransferInTransit {
		t.Fatalf("expected in_transit, got %s", vt.Status)
	}
	if vt.Type != domain.VaultToBranch {
		t.Errorf("type %s", vt.Type)
	}

	if _, err := f.uc.Complete(ctx, vt.ID, "teller-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	b, _ := f.balances.Get(ctx, "branch-1", "USD")
	if !b.Balance.Equal(decimal.NewFromInt(9999)) {
		t.Errorf("branch balance %s", b.Balance)
	}
}

func TestVaultTransferUseCase_BranchToVault(t *testing.T) {
	f := newVaultFixture(10000)
	f.seedBalance("branch-1", domain.HolderTypeBranch, "USD", 8000)
	f.seedBalance("vault-1", domain.HolderTypeVault, "USD", 0)
	ctx := context.Background()

	vt, err := f.uc.Initiate(ctx, usecase.InitiateVaultTransferInput{
		FromBranchID: "branch-1",
		ToVaultID:    "vault-1",
		Currency:     "USD",
		Amount:       decimal.NewFromInt(5000),
		InitiatedBy:  "user-1",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if vt.Type != domain.BranchToVault {
		t.Errorf("type %s", vt.Type)
	}

	if _, err := f.uc.Complete(ctx, vt.ID, "custodian-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	b, _ := f.balances.Get(ctx, "branch-1", "USD")
	v, _ := f.balances.Get(ctx, "vault-1", "USD")
	if !b.Balance.Equal(decimal.NewFromInt(3000)) || !v.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("balances: branch=%s vault=%s", b.Balance, v.Balance)
	}
}

func TestVaultTransferUseCase_RejectAndCancel(t *testing.T) {
	f := newVaultFixture(1000)
	f.seedBalance("vault-1", domain.HolderTypeVault, "USD", 50000)
	f.seedBalance("vault-2", domain.HolderTypeVault, "USD", 0)
	ctx := context.Background()

	vt, err := f.uc.Initiate(ctx, usecase.InitiateVaultTransferInput{
		FromVaultID: "vault-1",
		ToVaultID:   "vault-2",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(2000),
		InitiatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	vt, err = f.uc.Reject(ctx, vt.ID, "unjustified movement")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if vt.Status != domain.VaultTransferRejected || vt.RejectionReason == "" {
		t.Errorf("rejection not recorded: %+v", vt)
	}

	// Rejection is terminal.
	if _, err := f.uc.Approve(ctx, vt.ID, "manager-1"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("approve after reject: expected ErrInvalidStateTransition, got %v", err)
	}

	// A second pending transfer can be cancelled without any reversal.
	vt2, err := f.uc.Initiate(ctx, usecase.InitiateVaultTransferInput{
		FromVaultID: "vault-1",
		ToVaultID:   "vault-2",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(3000),
		InitiatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("initiate second: %v", err)
	}
	if _, err := f.uc.Cancel(ctx, vt2.ID, "no longer needed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	b, _ := f.balances.Get(ctx, "vault-1", "USD")
	if !b.Balance.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("rejected/cancelled transfers moved money: %s", b.Balance)
	}
}

func TestVaultTransferUseCase_InsufficientSource(t *testing.T) {
	f := newVaultFixture(10000)
	f.seedBalance("vault-1", domain.HolderTypeVault, "USD", 100)
	f.seedBalance("vault-2", domain.HolderTypeVault, "USD", 0)

	_, err := f.uc.Initiate(context.Background(), usecase.InitiateVaultTransferInput{
		FromVaultID: "vault-1",
		ToVaultID:   "vault-2",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(200),
		InitiatedBy: "user-1",
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestVaultTransferUseCase_InactiveEndpoint(t *testing.T) {
	f := newVaultFixture(10000)
	f.seedBalance("vault-1", domain.HolderTypeVault, "USD", 50000)
	f.directory.Deactivate("vault-2")

	_, err := f.uc.Initiate(context.Background(), usecase.InitiateVaultTransferInput{
		FromVaultID: "vault-1",
		ToVaultID:   "vault-2",
		Currency:    "USD",
		Amount:      decimal.NewFromInt(100),
		InitiatedBy: "user-1",
	})
	if !errors.Is(err, domain.ErrInvalidDestination) {
		t.Fatalf("expected ErrInvalidDestination, got %v", err)
	}
}
