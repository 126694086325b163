package funding

import (
	"context"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
)

// TransactionScope runs a unit of work in one database transaction.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the repositories bound to the
// current database transaction.
//
// A transaction write and the reconciliation of its allocation must go
// through the same TransactionalRepositories, otherwise readers could see
// the new transaction before the allocation totals that include it.
type TransactionalRepositories interface {
	FundingRequests() funding.FundingRequestRepository
	Allocations() ledger.AllocationRepository
	Transactions() ledger.TransactionRepository
}
