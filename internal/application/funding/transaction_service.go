package funding

import (
	"context"

	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService records expenditures against allocations. Every change
// to a transaction's amount or existence is reconciled into its allocation
// in the same database transaction.
type TransactionService struct {
	transactions ledger.TransactionRepository
	unit         ledgerUnit
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	transactions ledger.TransactionRepository,
	txScope TransactionScope,
	locker AllocationLocker,
	settings Settings,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		unit:         ledgerUnit{txScope: txScope, locker: locker, retry: settings.Retry},
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *TransactionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// GetByID retrieves a live transaction
func (s *TransactionService) GetByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*TransactionResponse, error) {
	if err := validateReadScope(scope); err != nil {
		return nil, err
	}
	transaction, err := s.transactions.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	response := ToTransactionResponse(transaction)
	return &response, nil
}

// List lists live transactions of a program, or of every program of the tenant
func (s *TransactionService) List(ctx context.Context, scope shared.Scope, filter TransactionListFilter) (shared.Paginated[TransactionResponse], error) {
	page := filter.page()
	if err := validateReadScope(scope); err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	if filter.FromDate != nil && filter.ToDate != nil {
		if err := (shared.DateRange{From: *filter.FromDate, To: *filter.ToDate}).Validate(); err != nil {
			return shared.Paginated[TransactionResponse]{}, err
		}
	}

	domainFilter := ledger.TransactionFilter{
		Page:         page,
		AllocationID: filter.AllocationID,
		FromDate:     filter.FromDate,
		ToDate:       filter.ToDate,
		Approved:     filter.Approved,
	}
	if filter.Category != "" {
		category := ledger.TransactionCategory(filter.Category)
		if !category.IsValid() {
			return shared.Paginated[TransactionResponse]{}, shared.NewValidationError("INVALID_CATEGORY", "Unknown transaction category: "+filter.Category)
		}
		domainFilter.Category = &category
	}

	transactions, total, err := s.transactions.FindAll(ctx, scope, domainFilter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}

	items := make([]TransactionResponse, len(transactions))
	for i := range transactions {
		items[i] = ToTransactionResponse(&transactions[i])
	}
	return shared.NewPaginated(items, total, page), nil
}

// Create records an expenditure. It fails with INVALID_STATE on a frozen,
// cancelled or expired allocation and with CONSERVATION_VIOLATION when the
// amount exceeds what remains.
func (s *TransactionService) Create(ctx context.Context, scope shared.Scope, in CreateTransactionInput) (*TransactionResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var (
		transaction *ledger.Transaction
		allocation  *ledger.Allocation
		events      pendingEvents
	)
	err := s.unit.run(ctx, in.AllocationID, func(repos TransactionalRepositories) error {
		events = nil
		a, err := repos.Allocations().FindByID(ctx, scope, in.AllocationID)
		if err != nil {
			return err
		}
		if err := a.EnsureWritable(); err != nil {
			return err
		}

		sequence, err := repos.Transactions().NextSequence(ctx, a.Scope())
		if err != nil {
			return err
		}
		t, err := ledger.NewTransaction(a, sequence, ledger.TransactionCategory(in.Category), in.Amount, in.TransactionDate.UTC(), in.Description)
		if err != nil {
			return err
		}
		if err := a.EnsureCanSpend(t.Amount); err != nil {
			return err
		}
		if err := repos.Transactions().Create(ctx, t); err != nil {
			return err
		}
		if err := reconcile(ctx, repos, a); err != nil {
			return err
		}

		transaction, allocation = t, a
		events.take(t, a)
		return nil
	})
	if err != nil {
		logOperationError(s.logger, "Transaction rejected", err,
			zap.String("action", "create"),
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("program_id", scope.ProgramID.String()),
			zap.String("allocation_id", in.AllocationID.String()),
			zap.Int64("amount", in.Amount),
		)
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events)
	s.logger.Info("Transaction recorded",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("allocation_id", allocation.ID.String()),
		zap.String("transaction_number", transaction.TransactionNumber),
		zap.Int64("amount", transaction.Amount),
		zap.Int64("remaining_amount", allocation.RemainingAmount),
	)
	return s.result(transaction, allocation), nil
}

// Update changes an unapproved transaction. A new amount is checked against
// the allocation as spent - old + new and reconciled.
func (s *TransactionService) Update(ctx context.Context, scope shared.Scope, id uuid.UUID, in UpdateTransactionInput) (*TransactionResult, error) {
	changes := in.toChanges()
	return s.mutate(ctx, scope, id, "update", func(t *ledger.Transaction, a *ledger.Allocation) (bool, error) {
		if err := t.EnsureMutable(); err != nil {
			return false, err
		}
		amountChanged := changes.ChangesAmount(t)
		if amountChanged {
			if err := a.EnsureCanReplace(t.Amount, *changes.Amount); err != nil {
				return false, err
			}
		}
		if _, err := t.Update(changes); err != nil {
			return false, err
		}
		return amountChanged, nil
	})
}

// Approve marks a transaction approved, after which it can no longer be
// changed or deleted. Ledger totals are not affected.
func (s *TransactionService) Approve(ctx context.Context, scope shared.Scope, id uuid.UUID, in ApproveTransactionInput) (*TransactionResult, error) {
	return s.mutate(ctx, scope, id, "approve", func(t *ledger.Transaction, _ *ledger.Allocation) (bool, error) {
		return false, t.Approve(in.ApprovedBy)
	})
}

// Delete soft-deletes an unapproved transaction and gives its amount back
// to the allocation
func (s *TransactionService) Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) (*TransactionResult, error) {
	result, err := s.mutate(ctx, scope, id, "delete", func(t *ledger.Transaction, _ *ledger.Allocation) (bool, error) {
		return true, t.MarkDeleted()
	})
	if err != nil {
		return nil, err
	}
	result.Transaction = nil
	return result, nil
}

// mutate changes one transaction under its allocation's lock. fn reports
// whether the allocation totals need reconciling.
func (s *TransactionService) mutate(
	ctx context.Context,
	scope shared.Scope,
	id uuid.UUID,
	action string,
	fn func(t *ledger.Transaction, a *ledger.Allocation) (bool, error),
) (*TransactionResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	// the allocation of a transaction never changes, so it is safe to pick
	// the lock from a read taken before the lock is held
	current, err := s.transactions.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	var (
		transaction *ledger.Transaction
		allocation  *ledger.Allocation
		events      pendingEvents
	)
	err = s.unit.run(ctx, current.AllocationID, func(repos TransactionalRepositories) error {
		events = nil
		t, err := repos.Transactions().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		a, err := repos.Allocations().FindByID(ctx, t.Scope(), t.AllocationID)
		if err != nil {
			return err
		}

		needsReconcile, err := fn(t, a)
		if err != nil {
			return err
		}
		if err := repos.Transactions().Save(ctx, t); err != nil {
			return err
		}
		if needsReconcile {
			if err := reconcile(ctx, repos, a); err != nil {
				return err
			}
		}

		transaction, allocation = t, a
		events.take(t, a)
		return nil
	})
	if err != nil {
		logOperationError(s.logger, "Transaction rejected", err,
			zap.String("action", action),
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("program_id", scope.ProgramID.String()),
			zap.String("transaction_id", id.String()),
		)
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events)
	s.logger.Info("Transaction "+action+" applied",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("allocation_id", allocation.ID.String()),
		zap.String("transaction_number", transaction.TransactionNumber),
		zap.Int64("spent_amount", allocation.SpentAmount),
		zap.Int64("remaining_amount", allocation.RemainingAmount),
	)
	return s.result(transaction, allocation), nil
}

func (s *TransactionService) result(t *ledger.Transaction, a *ledger.Allocation) *TransactionResult {
	tr := ToTransactionResponse(t)
	return &TransactionResult{
		Transaction: &tr,
		Allocation:  ToAllocationResponse(a),
	}
}
