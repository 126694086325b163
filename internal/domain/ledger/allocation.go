package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	minFiscalYear        = 2000
	maxDecreeRefLength   = 100
	maxAdminReasonLength = 500
)

// Allocation is the aggregate root holding released funds for a program.
// SpentAmount and RemainingAmount are derived from the owned transactions
// and only change through Reconcile.
type Allocation struct {
	shared.ProgramAggregateRoot
	FundingRequestID *uuid.UUID         `json:"funding_request_id"` // nil for manual entries
	Source           FundingSource      `json:"source"`
	AllocatedAmount  int64              `json:"allocated_amount"`
	SpentAmount      int64              `json:"spent_amount"`
	RemainingAmount  int64              `json:"remaining_amount"`
	FiscalYear       int                `json:"fiscal_year"`
	DecreeReference  string             `json:"decree_reference"`
	Override         AllocationOverride `json:"-"`
	Status           AllocationStatus   `json:"status"`
	FreezeReason     string             `json:"freeze_reason"`
	FrozenAt         *time.Time         `json:"frozen_at"`
	CancelReason     string             `json:"cancel_reason"`
	CancelledAt      *time.Time         `json:"cancelled_at"`
	ExpiredAt        *time.Time         `json:"expired_at"`
}

// NewAllocation creates a manually entered allocation
func NewAllocation(scope shared.Scope, source FundingSource, amount int64, fiscalYear int, decreeRef string) (*Allocation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	a, err := newAllocation(scope, source, amount, fiscalYear, decreeRef)
	if err != nil {
		return nil, err
	}

	a.AddDomainEvent(NewAllocationCreatedEvent(a))
	return a, nil
}

// NewAllocationFromDisbursement builds the allocation released by a disbursed
// funding request. The allocated amount is the disbursed amount.
func NewAllocationFromDisbursement(request *funding.FundingRequest, source FundingSource, fiscalYear int) (*Allocation, error) {
	if request == nil || !request.IsDisbursed() {
		return nil, shared.NewInvalidStateError("REQUEST_NOT_DISBURSED", "Allocation can only be created from a disbursed funding request")
	}
	decreeRef := ""
	if request.Approval != nil {
		decreeRef = request.Approval.Number
	}
	a, err := newAllocation(request.Scope(), source, request.DisbursedAmount(), fiscalYear, decreeRef)
	if err != nil {
		return nil, err
	}
	requestID := request.ID
	a.FundingRequestID = &requestID

	a.AddDomainEvent(NewAllocationCreatedEvent(a))
	return a, nil
}

func newAllocation(scope shared.Scope, source FundingSource, amount int64, fiscalYear int, decreeRef string) (*Allocation, error) {
	if !source.IsValid() {
		return nil, shared.NewValidationError("INVALID_SOURCE", fmt.Sprintf("Funding source %q is not valid", source))
	}
	if amount <= 0 {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Allocated amount must be positive")
	}
	if fiscalYear < minFiscalYear || fiscalYear > 9999 {
		return nil, shared.NewValidationError("INVALID_FISCAL_YEAR", fmt.Sprintf("Fiscal year %d is not valid", fiscalYear))
	}
	decreeRef = strings.TrimSpace(decreeRef)
	if len(decreeRef) > maxDecreeRefLength {
		return nil, shared.NewValidationError("INVALID_DECREE_REFERENCE",
			fmt.Sprintf("Decree reference cannot exceed %d characters", maxDecreeRefLength))
	}

	a := &Allocation{
		ProgramAggregateRoot: shared.NewProgramAggregateRoot(scope),
		Source:               source,
		AllocatedAmount:      amount,
		SpentAmount:          0,
		RemainingAmount:      amount,
		FiscalYear:           fiscalYear,
		DecreeReference:      decreeRef,
	}
	a.Status = DeriveAllocationStatus(a.AllocatedAmount, a.SpentAmount, a.Override)
	return a, nil
}

// EnsureWritable returns INVALID_STATE when transactions are blocked
func (a *Allocation) EnsureWritable() error {
	if !a.Status.AcceptsTransactions() {
		return shared.NewInvalidStateError("ALLOCATION_NOT_WRITABLE",
			fmt.Sprintf("Allocation is %s and does not accept transactions", a.Status))
	}
	return nil
}

// EnsureCanSpend checks a new expenditure of amount against the current totals
func (a *Allocation) EnsureCanSpend(amount int64) error {
	return a.EnsureCanReplace(0, amount)
}

// EnsureCanReplace checks replacing an existing expenditure of oldAmount with newAmount
func (a *Allocation) EnsureCanReplace(oldAmount, newAmount int64) error {
	if err := a.EnsureWritable(); err != nil {
		return err
	}
	// amounts are non-negative, so the delta cannot wrap
	if newAmount-oldAmount > a.RemainingAmount {
		return shared.NewConservationError("OVERSPEND",
			fmt.Sprintf("Spending %d would exceed the remaining %d of allocation", newAmount-oldAmount, a.RemainingAmount))
	}
	return nil
}

// Reconcile sets the totals from the sum of live transactions and re-derives
// the status. It refuses a sum that breaks spent <= allocated.
func (a *Allocation) Reconcile(spent int64) error {
	if spent < 0 || spent > a.AllocatedAmount {
		return shared.NewConservationError("OVERSPEND",
			fmt.Sprintf("Transactions total %d against an allocation of %d", spent, a.AllocatedAmount))
	}

	before := a.Status
	a.SpentAmount = spent
	a.RemainingAmount = a.AllocatedAmount - spent
	a.Status = DeriveAllocationStatus(a.AllocatedAmount, a.SpentAmount, a.Override)
	a.Touch()

	if a.Status == AllocationStatusFullySpent && before != AllocationStatusFullySpent {
		a.AddDomainEvent(NewAllocationFullySpentEvent(a))
	}
	return nil
}

// Freeze suspends new transactions. Freezing a frozen allocation is a no-op.
func (a *Allocation) Freeze(reason string) error {
	if a.Override.IsFinal() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot freeze allocation in %s status", a.Status))
	}
	if a.Override == OverrideFrozen {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxAdminReasonLength {
		return shared.NewValidationError("INVALID_REASON",
			fmt.Sprintf("Freeze reason cannot exceed %d characters", maxAdminReasonLength))
	}

	now := a.Touch()
	a.setOverride(OverrideFrozen)
	a.FreezeReason = reason
	a.FrozenAt = &now

	a.AddDomainEvent(NewAllocationFrozenEvent(a))
	return nil
}

// Unfreeze lifts a freeze and returns to the spending-derived status
func (a *Allocation) Unfreeze() error {
	if a.Override != OverrideFrozen {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot unfreeze allocation in %s status", a.Status))
	}

	a.Touch()
	a.setOverride(OverrideNone)
	a.FreezeReason = ""
	a.FrozenAt = nil

	a.AddDomainEvent(NewAllocationUnfrozenEvent(a))
	return nil
}

// IsExpirable reports whether the fiscal year has closed with funds left
func (a *Allocation) IsExpirable(now time.Time) bool {
	return !a.Override.IsFinal() && a.RemainingAmount > 0 && a.FiscalYear < now.Year()
}

// Expire closes an allocation whose fiscal year has ended with funds remaining.
// A frozen allocation may expire.
func (a *Allocation) Expire(now time.Time) error {
	if a.Override.IsFinal() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot expire allocation in %s status", a.Status))
	}
	if a.RemainingAmount <= 0 {
		return shared.NewInvalidStateError("NOTHING_TO_EXPIRE", "Allocation has no remaining funds to expire")
	}
	if a.FiscalYear >= now.Year() {
		return shared.NewInvalidStateError("FISCAL_YEAR_OPEN",
			fmt.Sprintf("Fiscal year %d has not closed", a.FiscalYear))
	}

	at := a.Touch()
	a.setOverride(OverrideExpired)
	a.ExpiredAt = &at

	a.AddDomainEvent(NewAllocationExpiredEvent(a))
	return nil
}

// Cancel permanently withdraws the allocation from use
func (a *Allocation) Cancel(reason string) error {
	if a.Override.IsFinal() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel allocation in %s status", a.Status))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}
	if len(reason) > maxAdminReasonLength {
		return shared.NewValidationError("INVALID_REASON",
			fmt.Sprintf("Cancel reason cannot exceed %d characters", maxAdminReasonLength))
	}

	now := a.Touch()
	a.setOverride(OverrideCancelled)
	a.CancelReason = reason
	a.CancelledAt = &now

	a.AddDomainEvent(NewAllocationCancelledEvent(a))
	return nil
}

// EnsureDeletable allows deletion only when no transaction was ever recorded
// against the allocation, including soft-deleted ones.
func (a *Allocation) EnsureDeletable(transactionCount int64) error {
	if transactionCount > 0 {
		return shared.NewInvalidStateError("ALLOCATION_HAS_TRANSACTIONS",
			fmt.Sprintf("Allocation has %d transactions and cannot be deleted", transactionCount))
	}
	return nil
}

func (a *Allocation) setOverride(o AllocationOverride) {
	a.Override = o
	a.Status = DeriveAllocationStatus(a.AllocatedAmount, a.SpentAmount, a.Override)
}

// IsBalanced reports whether spent + remaining == allocated
func (a *Allocation) IsBalanced() bool {
	return a.SpentAmount+a.RemainingAmount == a.AllocatedAmount &&
		a.SpentAmount >= 0 && a.SpentAmount <= a.AllocatedAmount
}
