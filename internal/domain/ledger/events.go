package ledger

import (
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateTypeAllocation  = "Allocation"
	AggregateTypeTransaction = "Transaction"

	EventTypeAllocationCreated    = "AllocationCreated"
	EventTypeAllocationFrozen     = "AllocationFrozen"
	EventTypeAllocationUnfrozen   = "AllocationUnfrozen"
	EventTypeAllocationExpired    = "AllocationExpired"
	EventTypeAllocationCancelled  = "AllocationCancelled"
	EventTypeAllocationFullySpent = "AllocationFullySpent"

	EventTypeTransactionRecorded = "TransactionRecorded"
	EventTypeTransactionApproved = "TransactionApproved"
	EventTypeTransactionDeleted  = "TransactionDeleted"
)

// AllocationEvent carries the allocation totals at the time of the event.
// The event type tells created, frozen, expired and the other changes apart.
type AllocationEvent struct {
	shared.BaseDomainEvent
	AllocationID     uuid.UUID        `json:"allocation_id"`
	FundingRequestID *uuid.UUID       `json:"funding_request_id,omitempty"`
	Source           FundingSource    `json:"source"`
	FiscalYear       int              `json:"fiscal_year"`
	AllocatedAmount  int64            `json:"allocated_amount"`
	SpentAmount      int64            `json:"spent_amount"`
	RemainingAmount  int64            `json:"remaining_amount"`
	Status           AllocationStatus `json:"status"`
	Reason           string           `json:"reason,omitempty"`
}

func newAllocationEvent(eventType string, a *Allocation, reason string) *AllocationEvent {
	return &AllocationEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(eventType, AggregateTypeAllocation, a.ID, a.Scope()),
		AllocationID:     a.ID,
		FundingRequestID: a.FundingRequestID,
		Source:           a.Source,
		FiscalYear:       a.FiscalYear,
		AllocatedAmount:  a.AllocatedAmount,
		SpentAmount:      a.SpentAmount,
		RemainingAmount:  a.RemainingAmount,
		Status:           a.Status,
		Reason:           reason,
	}
}

func NewAllocationCreatedEvent(a *Allocation) *AllocationEvent {
	return newAllocationEvent(EventTypeAllocationCreated, a, "")
}

func NewAllocationFrozenEvent(a *Allocation) *AllocationEvent {
	return newAllocationEvent(EventTypeAllocationFrozen, a, a.FreezeReason)
}

func NewAllocationUnfrozenEvent(a *Allocation) *AllocationEvent {
	return newAllocationEvent(EventTypeAllocationUnfrozen, a, "")
}

func NewAllocationExpiredEvent(a *Allocation) *AllocationEvent {
	return newAllocationEvent(EventTypeAllocationExpired, a, "")
}

func NewAllocationCancelledEvent(a *Allocation) *AllocationEvent {
	return newAllocationEvent(EventTypeAllocationCancelled, a, a.CancelReason)
}

func NewAllocationFullySpentEvent(a *Allocation) *AllocationEvent {
	return newAllocationEvent(EventTypeAllocationFullySpent, a, "")
}

// TransactionEvent is raised when an expenditure is recorded, approved or deleted
type TransactionEvent struct {
	shared.BaseDomainEvent
	TransactionID     uuid.UUID           `json:"transaction_id"`
	AllocationID      uuid.UUID           `json:"allocation_id"`
	TransactionNumber string              `json:"transaction_number"`
	Category          TransactionCategory `json:"category"`
	Amount            int64               `json:"amount"`
	ApprovedBy        string              `json:"approved_by,omitempty"`
}

func newTransactionEvent(eventType string, t *Transaction) *TransactionEvent {
	return &TransactionEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypeTransaction, t.ID, t.Scope()),
		TransactionID:     t.ID,
		AllocationID:      t.AllocationID,
		TransactionNumber: t.TransactionNumber,
		Category:          t.Category,
		Amount:            t.Amount,
		ApprovedBy:        t.ApprovedBy,
	}
}

func NewTransactionRecordedEvent(t *Transaction) *TransactionEvent {
	return newTransactionEvent(EventTypeTransactionRecorded, t)
}

func NewTransactionApprovedEvent(t *Transaction) *TransactionEvent {
	return newTransactionEvent(EventTypeTransactionApproved, t)
}

func NewTransactionDeletedEvent(t *Transaction) *TransactionEvent {
	return newTransactionEvent(EventTypeTransactionDeleted, t)
}
