package ledger

import (
	"context"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AllocationFilter defines filtering options for allocation queries
type AllocationFilter struct {
	shared.Page
	Source           *FundingSource
	Status           *AllocationStatus
	FiscalYear       *int
	FundingRequestID *uuid.UUID
}

// TransactionFilter defines filtering options for transaction queries
type TransactionFilter struct {
	shared.Page
	AllocationID *uuid.UUID
	Category     *TransactionCategory
	FromDate     *time.Time // transaction_date lower bound, inclusive
	ToDate       *time.Time // transaction_date upper bound, inclusive
	Approved     *bool
}

// AllocationSummary aggregates the allocations of a program, or of a whole
// tenant when the scope names no program
type AllocationSummary struct {
	Count           int64                      `json:"count"`
	AllocatedAmount int64                      `json:"allocated_amount"`
	SpentAmount     int64                      `json:"spent_amount"`
	RemainingAmount int64                      `json:"remaining_amount"`
	ByStatus        map[AllocationStatus]int64 `json:"by_status"`
}

// AllocationRepository defines persistence for allocations
type AllocationRepository interface {
	// FindByID finds an allocation within scope
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*Allocation, error)

	// FindByFundingRequest finds the allocation released by a funding request
	FindByFundingRequest(ctx context.Context, scope shared.Scope, requestID uuid.UUID) (*Allocation, error)

	// FindAll lists allocations in scope with the total match count
	FindAll(ctx context.Context, scope shared.Scope, filter AllocationFilter) ([]Allocation, int64, error)

	// FindExpirable returns allocations of a tenant whose fiscal year ended
	// before year with funds remaining and no final override
	FindExpirable(ctx context.Context, tenantID uuid.UUID, year int) ([]Allocation, error)

	// Create inserts a new allocation
	Create(ctx context.Context, allocation *Allocation) error

	// SaveWithLock updates the allocation if its stored version still matches,
	// then advances the in-memory version. A mismatch is a CONFLICT error.
	SaveWithLock(ctx context.Context, allocation *Allocation) error

	// Delete physically removes an allocation
	Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error

	// Summarize totals the allocations in scope
	Summarize(ctx context.Context, scope shared.Scope) (*AllocationSummary, error)

	// ListTenantIDs returns every tenant that owns at least one allocation
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TransactionRepository defines persistence for transactions
type TransactionRepository interface {
	// FindByID finds a live transaction within scope
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*Transaction, error)

	// FindAll lists live transactions in scope with the total match count
	FindAll(ctx context.Context, scope shared.Scope, filter TransactionFilter) ([]Transaction, int64, error)

	// SumLiveAmounts sums the amounts of non-deleted transactions of an allocation
	SumLiveAmounts(ctx context.Context, allocationID uuid.UUID) (int64, error)

	// CountAll counts every transaction ever recorded against an allocation, deleted ones included
	CountAll(ctx context.Context, allocationID uuid.UUID) (int64, error)

	// NextSequence reserves the next transaction sequence of a program
	NextSequence(ctx context.Context, scope shared.Scope) (int64, error)

	// Create inserts a new transaction
	Create(ctx context.Context, transaction *Transaction) error

	// Save updates a transaction, including its soft-delete marker
	Save(ctx context.Context, transaction *Transaction) error
}
