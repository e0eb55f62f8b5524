package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// VaultTransferUseCase drives the vault movement workflow: initiate, approve
// or reject, transit, complete. Balances move once, when the transfer
// completes, in the same store transaction as the final status write.
type VaultTransferUseCase struct {
	txManager         TransactionManager
	vaultTransferRepo VaultTransferRepository
	balances          *BalanceUseCase
	directory         Directory
	retrier           Retrier
	idGen             IDGenerator
	approvalThreshold decimal.Decimal
	metrics           *metrics.Metrics
}

func NewVaultTransferUseCase(
	txManager TransactionManager,
	vaultTransferRepo VaultTransferRepository,
	balances *BalanceUseCase,
	directory Directory,
	retrier Retrier,
	idGen IDGenerator,
	approvalThreshold decimal.Decimal,
	metrics *metrics.Metrics,
) *VaultTransferUseCase {
	return &VaultTransferUseCase{
		txManager:         txManager,
		vaultTransferRepo: vaultTransferRepo,
		balances:          balances,
		directory:         directory,
		retrier:           retrier,
		idGen:             idGen,
		approvalThreshold: approvalThreshold,
		metrics:           metrics,
	}
}

// InitiateVaultTransferInput carries the payload for a new vault transfer.
// Exactly one source and one destination field must be set.
type InitiateVaultTransferInput struct {
	FromVaultID  string
	FromBranchID string
	ToVaultID    string
	ToBranchID   string
	Currency     string
	Amount       decimal.Decimal
	InitiatedBy  string
	Notes        string
}

// Initiate records a new transfer. Amounts at or above the approval
// threshold stay pending for a manager; smaller ones are approved on the
// spot and move straight to in_transit.
func (uc *VaultTransferUseCase) Initiate(ctx context.Context, input InitiateVaultTransferInput) (*domain.VaultTransfer, error) {
	if err := domain.ValidateCurrencyCode(input.Currency); err != nil {
		return nil, err
	}
	if err := domain.ValidateNotes(input.Notes); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	vt := &domain.VaultTransfer{
		ID:           uc.idGen.Generate(),
		FromVaultID:  input.FromVaultID,
		FromBranchID: input.FromBranchID,
		ToVaultID:    input.ToVaultID,
		ToBranchID:   input.ToBranchID,
		Currency:     input.Currency,
		Amount:       input.Amount,
		Status:       domain.VaultTransferPending,
		InitiatedBy:  input.InitiatedBy,
		InitiatedAt:  now,
		Notes:        input.Notes,
	}
	vt.Type = vaultTransferType(vt)

	if err := vt.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkEndpoints(ctx, vt); err != nil {
		return nil, err
	}

	// The source must cover the amount now; the authoritative check repeats
	// under lock at completion.
	sourceID, _ := vt.Source()
	balance, err := uc.balances.Get(ctx, sourceID, vt.Currency)
	if err != nil {
		return nil, err
	}
	if balance.Available().LessThan(vt.Amount) {
		return nil, domain.ErrInsufficientBalance
	}

	autoApprove := !vt.RequiresApproval(uc.approvalThreshold)

	err = uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		number, err := uc.vaultTransferRepo.NextNumber(txCtx, tx, now)
		if err != nil {
			return err
		}
		vt.Number = number

		if autoApprove {
			if err := vt.Approve(input.InitiatedBy, now); err != nil {
				return err
			}
			if err := vt.MarkInTransit(); err != nil {
				return err
			}
		}

		if err := uc.vaultTransferRepo.Create(txCtx, tx, vt); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.VaultTransfersCreated.Inc()
	if autoApprove {
		uc.metrics.VaultTransfersApproved.Inc()
	}
	return vt, nil
}

func vaultTransferType(vt *domain.VaultTransfer) domain.VaultTransferType {
	switch {
	case vt.FromBranchID != "":
		return domain.BranchToVault
	case vt.ToBranchID != "":
		return domain.VaultToBranch
	default:
		return domain.VaultToVault
	}
}

func (uc *VaultTransferUseCase) checkEndpoints(ctx context.Context, vt *domain.VaultTransfer) error {
	if vt.FromVaultID != "" {
		active, err := uc.directory.VaultActive(ctx, vt.FromVaultID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrInvalidDestination
		}
	}
	if vt.FromBranchID != "" {
		active, err := uc.directory.BranchActive(ctx, vt.FromBranchID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrBranchInactive
		}
	}

	if vt.ToVaultID != "" {
		active, err := uc.directory.VaultActive(ctx, vt.ToVaultID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrInvalidDestination
		}
	}
	if vt.ToBranchID != "" {
		active, err := uc.directory.BranchActive(ctx, vt.ToBranchID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrBranchInactive
		}
	}
	return nil
}

// Approve records managerial approval and moves the transfer into transit.
func (uc *VaultTransferUseCase) Approve(ctx context.Context, id, approverID string) (*domain.VaultTransfer, error) {
	vt, err := uc.updateStatus(ctx, id, func(vt *domain.VaultTransfer, now time.Time) error {
		if err := vt.Approve(approverID, now); err != nil {
			return err
		}
		return vt.MarkInTransit()
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.VaultTransfersApproved.Inc()
	return vt, nil
}

// Reject ends a pending transfer.
func (uc *VaultTransferUseCase) Reject(ctx context.Context, id, reason string) (*domain.VaultTransfer, error) {
	vt, err := uc.updateStatus(ctx, id, func(vt *domain.VaultTransfer, now time.Time) error {
		return vt.Reject(reason, now)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.VaultTransfersRejected.Inc()
	return vt, nil
}

// Cancel ends a pending or approved transfer. Nothing has moved yet, so no
// reversal is needed.
func (uc *VaultTransferUseCase) Cancel(ctx context.Context, id, reason string) (*domain.VaultTransfer, error) {
	return uc.updateStatus(ctx, id, func(vt *domain.VaultTransfer, now time.Time) error {
		return vt.Cancel(reason, now)
	})
}

// Complete confirms receipt and moves the funds. The debit, the credit and
// the status write commit together or not at all.
func (uc *VaultTransferUseCase) Complete(ctx context.Context, id, receiverID string) (*domain.VaultTransfer, error) {
	var vt *domain.VaultTransfer
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		vt, err = uc.vaultTransferRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := vt.Complete(receiverID, now); err != nil {
			return err
		}

		sourceID, sourceKind := vt.Source()
		destID, destKind := vt.Destination()

		debit := MutationInput{
			HolderID:      sourceID,
			HolderType:    sourceKind,
			Currency:      vt.Currency,
			Delta:         vt.Amount.Neg(),
			ChangeType:    domain.ChangeTypeTransfer,
			ReferenceID:   vt.ID,
			ReferenceType: "vault_transfer",
			PerformedBy:   receiverID,
		}
		credit := debit
		credit.Delta = vt.Amount
		credit.HolderID = destID
		credit.HolderType = destKind

		if _, _, err := uc.balances.ApplyPairWithinTx(txCtx, tx, debit, credit); err != nil {
			return err
		}

		if err := uc.vaultTransferRepo.Update(txCtx, tx, vt); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.VaultTransfersCompleted.Inc()
	return vt, nil
}

func (uc *VaultTransferUseCase) updateStatus(ctx context.Context, id string, mutate func(*domain.VaultTransfer, time.Time) error) (*domain.VaultTransfer, error) {
	var vt *domain.VaultTransfer
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		vt, err = uc.vaultTransferRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		if err := mutate(vt, time.Now().UTC()); err != nil {
			return err
		}

		if err := uc.vaultTransferRepo.Update(txCtx, tx, vt); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}
	return vt, nil
}

// Get returns one vault transfer by ID.
func (uc *VaultTransferUseCase) Get(ctx context.Context, id string) (*domain.VaultTransfer, error) {
	return uc.vaultTransferRepo.GetByID(ctx, id)
}

// List returns vault transfers, optionally filtered by status.
func (uc *VaultTransferUseCase) List(ctx context.Context, status domain.VaultTransferStatus, limit, offset int) ([]*domain.VaultTransfer, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.vaultTransferRepo.List(ctx, status, limit, offset)
}
