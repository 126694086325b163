package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	maxDescriptionLength = 500
	maxApproverLength    = 200

	transactionNumberPrefix = "TRX"
)

// FormatTransactionNumber renders a per-program sequence as the externally visible number
func FormatTransactionNumber(sequence int64) string {
	return fmt.Sprintf("%s-%06d", transactionNumberPrefix, sequence)
}

// Transaction is an itemized expenditure drawn against an allocation.
// It lives in the allocation's consistency boundary: every change to its
// amount or existence is followed by a reconciliation of the allocation.
type Transaction struct {
	shared.ProgramAggregateRoot
	AllocationID      uuid.UUID           `json:"allocation_id"`
	Sequence          int64               `json:"sequence"`
	TransactionNumber string              `json:"transaction_number"`
	Category          TransactionCategory `json:"category"`
	Amount            int64               `json:"amount"`
	TransactionDate   time.Time           `json:"transaction_date"`
	Description       string              `json:"description"`
	ApprovedBy        string              `json:"approved_by"`
	ApprovedAt        *time.Time          `json:"approved_at"`
	DeletedAt         *time.Time          `json:"-"`
}

// NewTransaction records an expenditure against allocation. The caller is
// responsible for checking the allocation accepts the amount.
func NewTransaction(
	allocation *Allocation,
	sequence int64,
	category TransactionCategory,
	amount int64,
	date time.Time,
	description string,
) (*Transaction, error) {
	if allocation == nil {
		return nil, shared.NewValidationError("INVALID_ALLOCATION", "Allocation is required")
	}
	if sequence <= 0 {
		return nil, shared.NewValidationError("INVALID_SEQUENCE", "Transaction sequence must be positive")
	}
	description = strings.TrimSpace(description)
	if err := validateTransactionFields(category, amount, date, description); err != nil {
		return nil, err
	}

	t := &Transaction{
		ProgramAggregateRoot: shared.NewProgramAggregateRoot(allocation.Scope()),
		AllocationID:         allocation.ID,
		Sequence:             sequence,
		TransactionNumber:    FormatTransactionNumber(sequence),
		Category:             category,
		Amount:               amount,
		TransactionDate:      date,
		Description:          description,
	}

	t.AddDomainEvent(NewTransactionRecordedEvent(t))
	return t, nil
}

func validateTransactionFields(category TransactionCategory, amount int64, date time.Time, description string) error {
	if !category.IsValid() {
		return shared.NewValidationError("INVALID_CATEGORY", fmt.Sprintf("Transaction category %q is not valid", category))
	}
	if amount <= 0 {
		return shared.NewValidationError("INVALID_AMOUNT", "Amount must be positive")
	}
	if date.IsZero() {
		return shared.NewValidationError("INVALID_DATE", "Transaction date is required")
	}
	if len(description) > maxDescriptionLength {
		return shared.NewValidationError("INVALID_DESCRIPTION",
			fmt.Sprintf("Description cannot exceed %d characters", maxDescriptionLength))
	}
	return nil
}

// TransactionChanges lists the fields to update; nil fields are left as they are
type TransactionChanges struct {
	Amount      *int64
	Category    *TransactionCategory
	Date        *time.Time
	Description *string
}

// ChangesAmount reports whether applying c to t would change its amount
func (c TransactionChanges) ChangesAmount(t *Transaction) bool {
	return c.Amount != nil && *c.Amount != t.Amount
}

// EnsureMutable returns IMMUTABLE_RECORD once the transaction is approved
func (t *Transaction) EnsureMutable() error {
	if t.IsApproved() {
		return shared.NewImmutableError("TRANSACTION_APPROVED",
			fmt.Sprintf("Transaction %s is approved and can no longer be changed", t.TransactionNumber))
	}
	if t.IsDeleted() {
		return shared.NewNotFoundError("TRANSACTION_DELETED", "Transaction not found")
	}
	return nil
}

// Update applies changes and returns the previous amount
func (t *Transaction) Update(changes TransactionChanges) (int64, error) {
	if err := t.EnsureMutable(); err != nil {
		return t.Amount, err
	}

	category, amount, date, description := t.Category, t.Amount, t.TransactionDate, t.Description
	if changes.Category != nil {
		category = *changes.Category
	}
	if changes.Amount != nil {
		amount = *changes.Amount
	}
	if changes.Date != nil {
		date = *changes.Date
	}
	if changes.Description != nil {
		description = strings.TrimSpace(*changes.Description)
	}
	if err := validateTransactionFields(category, amount, date, description); err != nil {
		return t.Amount, err
	}

	old := t.Amount
	t.Category = category
	t.Amount = amount
	t.TransactionDate = date
	t.Description = description
	t.Touch()
	return old, nil
}

// Approve records the approver. Approval is one-way and does not change ledger totals.
func (t *Transaction) Approve(approver string) error {
	if t.IsApproved() {
		return shared.NewImmutableError("TRANSACTION_APPROVED",
			fmt.Sprintf("Transaction %s is already approved", t.TransactionNumber))
	}
	if t.IsDeleted() {
		return shared.NewNotFoundError("TRANSACTION_DELETED", "Transaction not found")
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return shared.NewValidationError("INVALID_APPROVER", "Approver is required")
	}
	if len(approver) > maxApproverLength {
		return shared.NewValidationError("INVALID_APPROVER",
			fmt.Sprintf("Approver cannot exceed %d characters", maxApproverLength))
	}

	now := t.Touch()
	t.ApprovedBy = approver
	t.ApprovedAt = &now

	t.AddDomainEvent(NewTransactionApprovedEvent(t))
	return nil
}

// MarkDeleted soft-deletes the transaction so it drops out of every total
func (t *Transaction) MarkDeleted() error {
	if err := t.EnsureMutable(); err != nil {
		return err
	}

	now := t.Touch()
	t.DeletedAt = &now

	t.AddDomainEvent(NewTransactionDeletedEvent(t))
	return nil
}

func (t *Transaction) IsApproved() bool {
	return t.ApprovedAt != nil
}

func (t *Transaction) IsDeleted() bool {
	return t.DeletedAt != nil
}
