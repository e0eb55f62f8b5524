package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VaultTransferType identifies the direction of a vault-network movement.
type VaultTransferType string

const (
	VaultToVault  VaultTransferType = "vault_to_vault"
	VaultToBranch VaultTransferType = "vault_to_branch"
	BranchToVault VaultTransferType = "branch_to_vault"
)

// VaultTransferStatus is the workflow state of a vault transfer.
type VaultTransferStatus string

const (
	VaultTransferPending   VaultTransferStatus = "pending"
	VaultTransferApproved  VaultTransferStatus = "approved"
	VaultTransferInTransit VaultTransferStatus = "in_transit"
	VaultTransferCompleted VaultTransferStatus = "completed"
	VaultTransferRejected  VaultTransferStatus = "rejected"
	VaultTransferCancelled VaultTransferStatus = "cancelled"
)

var vaultTransferTransitions = map[VaultTransferStatus]map[VaultTransferStatus]struct{}{
	VaultTransferPending: {
		VaultTransferApproved:  {},
		VaultTransferRejected:  {},
		VaultTransferCancelled: {},
	},
	VaultTransferApproved: {
		VaultTransferInTransit: {},
		VaultTransferCancelled: {},
	},
	VaultTransferInTransit: {
		VaultTransferCompleted: {},
	},
	VaultTransferCompleted: {},
	VaultTransferRejected:  {},
	VaultTransferCancelled: {},
}

// VaultTransfer moves money through the vault network. The source is
// exactly one of FromVaultID / FromBranchID and the destination exactly one
// of ToVaultID / ToBranchID. Balances are mutated only when the transfer
// completes.
type VaultTransfer struct {
	ID           string
	Number       string
	FromVaultID  string
	FromBranchID string
	ToVaultID    string
	ToBranchID   string
	Currency     string
	Amount       decimal.Decimal
	Type         VaultTransferType
	Status       VaultTransferStatus

	InitiatedBy string
	ApprovedBy  string
	ReceivedBy  string

	InitiatedAt     time.Time
	ApprovedAt      *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	Notes           string
	RejectionReason string
}

// Validate checks the structural invariants of a transfer request.
func (vt *VaultTransfer) Validate() error {
	if vt.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if (vt.FromVaultID != "") == (vt.FromBranchID != "") {
		return ErrInvalidDestination
	}
	hasVault := vt.ToVaultID != ""
	hasBranch := vt.ToBranchID != ""
	if hasVault == hasBranch {
		return ErrInvalidDestination
	}
	// A branch source must deliver into the vault network.
	if vt.FromBranchID != "" && vt.ToVaultID == "" {
		return ErrInvalidDestination
	}
	return nil
}

// Source returns the holder the funds leave.
func (vt *VaultTransfer) Source() (id string, kind HolderType) {
	if vt.FromBranchID != "" {
		return vt.FromBranchID, HolderTypeBranch
	}
	return vt.FromVaultID, HolderTypeVault
}

// Destination returns the holder the funds arrive at.
func (vt *VaultTransfer) Destination() (id string, kind HolderType) {
	if vt.ToBranchID != "" {
		return vt.ToBranchID, HolderTypeBranch
	}
	return vt.ToVaultID, HolderTypeVault
}

// RequiresApproval reports whether the amount is at or above the approval
// threshold.
func (vt *VaultTransfer) RequiresApproval(threshold decimal.Decimal) bool {
	return vt.Amount.GreaterThanOrEqual(threshold)
}

// IsTerminal reports whether the workflow has ended.
func (vt *VaultTransfer) IsTerminal() bool {
	switch vt.Status {
	case VaultTransferCompleted, VaultTransferRejected, VaultTransferCancelled:
		return true
	}
	return false
}

func (vt *VaultTransfer) transition(next VaultTransferStatus) error {
	nextStates, ok := vaultTransferTransitions[vt.Status]
	if ok {
		if _, ok = nextStates[next]; ok {
			vt.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, vt.Status, next)
}

// Approve records managerial approval of a pending transfer.
func (vt *VaultTransfer) Approve(approverID string, at time.Time) error {
	if err := vt.transition(VaultTransferApproved); err != nil {
		return err
	}
	vt.ApprovedBy = approverID
	vt.ApprovedAt = &at
	return nil
}

// Reject ends a pending transfer with a recorded reason.
func (vt *VaultTransfer) Reject(reason string, at time.Time) error {
	if err := vt.transition(VaultTransferRejected); err != nil {
		return err
	}
	vt.RejectionReason = reason
	vt.CancelledAt = &at
	return nil
}

// MarkInTransit moves an approved transfer into transit.
func (vt *VaultTransfer) MarkInTransit() error {
	return vt.transition(VaultTransferInTransit)
}

// Complete ends the workflow. The caller mutates both balances in the same
// store transaction as this transition.
func (vt *VaultTransfer) Complete(receiverID string, at time.Time) error {
	if err := vt.transition(VaultTransferCompleted); err != nil {
		return err
	}
	vt.ReceivedBy = receiverID
	vt.CompletedAt = &at
	return nil
}

// Cancel ends a pending or approved transfer before any funds moved.
func (vt *VaultTransfer) Cancel(reason string, at time.Time) error {
	if err := vt.transition(VaultTransferCancelled); err != nil {
		return err
	}
	vt.RejectionReason = reason
	vt.CancelledAt = &at
	return nil
}
