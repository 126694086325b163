package funding

import (
	"context"
	"time"

	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationService manages allocations: manual entry, administrative
// overrides, deletion and the fiscal-year-end expiry sweep
type AllocationService struct {
	allocations ledger.AllocationRepository
	unit        ledgerUnit
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	allocations ledger.AllocationRepository,
	txScope TransactionScope,
	locker AllocationLocker,
	settings Settings,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		allocations: allocations,
		unit:        ledgerUnit{txScope: txScope, locker: locker, retry: settings.Retry},
		logger:      logger,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateManual enters an allocation that was not released through a tracked
// funding request
func (s *AllocationService) CreateManual(ctx context.Context, scope shared.Scope, in CreateAllocationInput) (*AllocationResponse, error) {
	allocation, err := ledger.NewAllocation(scope, ledger.FundingSource(in.Source), in.AllocatedAmount, in.FiscalYear, in.DecreeReference)
	if err != nil {
		return nil, err
	}
	if err := s.allocations.Create(ctx, allocation); err != nil {
		return nil, err
	}

	var events pendingEvents
	events.take(allocation)
	publish(ctx, s.publisher, s.logger, events)

	s.logger.Info("Allocation created",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("allocation_id", allocation.ID.String()),
		zap.String("source", string(allocation.Source)),
		zap.Int64("allocated_amount", allocation.AllocatedAmount),
	)

	response := ToAllocationResponse(allocation)
	return &response, nil
}

// GetByID retrieves an allocation with its committed totals
func (s *AllocationService) GetByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*AllocationResponse, error) {
	if err := validateReadScope(scope); err != nil {
		return nil, err
	}
	allocation, err := s.allocations.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	response := ToAllocationResponse(allocation)
	return &response, nil
}

// List lists allocations of a program, or of every program of the tenant
func (s *AllocationService) List(ctx context.Context, scope shared.Scope, filter AllocationListFilter) (shared.Paginated[AllocationResponse], error) {
	page := filter.page()
	if err := validateReadScope(scope); err != nil {
		return shared.Paginated[AllocationResponse]{}, err
	}

	domainFilter := ledger.AllocationFilter{
		Page:             page,
		FiscalYear:       filter.FiscalYear,
		FundingRequestID: filter.FundingRequestID,
	}
	if filter.Source != "" {
		source := ledger.FundingSource(filter.Source)
		if !source.IsValid() {
			return shared.Paginated[AllocationResponse]{}, shared.NewValidationError("INVALID_SOURCE", "Unknown funding source: "+filter.Source)
		}
		domainFilter.Source = &source
	}
	if filter.Status != "" {
		status := ledger.AllocationStatus(filter.Status)
		if !status.IsValid() {
			return shared.Paginated[AllocationResponse]{}, shared.NewValidationError("INVALID_STATUS", "Unknown allocation status: "+filter.Status)
		}
		domainFilter.Status = &status
	}

	allocations, total, err := s.allocations.FindAll(ctx, scope, domainFilter)
	if err != nil {
		return shared.Paginated[AllocationResponse]{}, err
	}

	items := make([]AllocationResponse, len(allocations))
	for i := range allocations {
		items[i] = ToAllocationResponse(&allocations[i])
	}
	return shared.NewPaginated(items, total, page), nil
}

// Summary totals the allocations of a program, or of the whole tenant
func (s *AllocationService) Summary(ctx context.Context, scope shared.Scope) (*ledger.AllocationSummary, error) {
	if err := validateReadScope(scope); err != nil {
		return nil, err
	}
	return s.allocations.Summarize(ctx, scope)
}

// Freeze suspends new transactions. Freezing a frozen allocation changes nothing.
func (s *AllocationService) Freeze(ctx context.Context, scope shared.Scope, id uuid.UUID, in ReasonInput) (*AllocationResponse, error) {
	return s.respond(s.administer(ctx, scope, id, "frozen", func(a *ledger.Allocation) (bool, error) {
		wasFrozen := a.Override == ledger.OverrideFrozen
		if err := a.Freeze(in.Reason); err != nil {
			return false, err
		}
		return !wasFrozen, nil
	}))
}

// Unfreeze lifts a freeze
func (s *AllocationService) Unfreeze(ctx context.Context, scope shared.Scope, id uuid.UUID) (*AllocationResponse, error) {
	return s.respond(s.administer(ctx, scope, id, "unfrozen", func(a *ledger.Allocation) (bool, error) {
		return true, a.Unfreeze()
	}))
}

// Expire closes an allocation whose fiscal year has ended with funds left
func (s *AllocationService) Expire(ctx context.Context, scope shared.Scope, id uuid.UUID) (*AllocationResponse, error) {
	return s.respond(s.administer(ctx, scope, id, "expired", func(a *ledger.Allocation) (bool, error) {
		return true, a.Expire(shared.Now())
	}))
}

// Cancel permanently withdraws an allocation from use
func (s *AllocationService) Cancel(ctx context.Context, scope shared.Scope, id uuid.UUID, in ReasonInput) (*AllocationResponse, error) {
	return s.respond(s.administer(ctx, scope, id, "cancelled", func(a *ledger.Allocation) (bool, error) {
		return true, a.Cancel(in.Reason)
	}))
}

// Delete removes an allocation against which no transaction was ever recorded
func (s *AllocationService) Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	err := s.unit.run(ctx, id, func(repos TransactionalRepositories) error {
		allocation, err := repos.Allocations().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		count, err := repos.Transactions().CountAll(ctx, allocation.ID)
		if err != nil {
			return err
		}
		if err := allocation.EnsureDeletable(count); err != nil {
			return err
		}
		return repos.Allocations().Delete(ctx, scope, id)
	})
	if err != nil {
		s.logRejected("delete", scope, id, err)
		return err
	}

	s.logger.Info("Allocation deleted",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("allocation_id", id.String()),
	)
	return nil
}

// ExpireClosedFiscalYears expires, across all tenants, every allocation whose
// fiscal year ended before now's year with funds remaining. One failing
// allocation does not stop the sweep.
func (s *AllocationService) ExpireClosedFiscalYears(ctx context.Context, now time.Time) (ExpirySweepResult, error) {
	var result ExpirySweepResult

	tenants, err := s.allocations.ListTenantIDs(ctx)
	if err != nil {
		return result, err
	}

	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Tenants++

		candidates, err := s.allocations.FindExpirable(ctx, tenantID, now.Year())
		if err != nil {
			s.logger.Error("Failed to find expirable allocations",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			result.Failed++
			continue
		}
		result.Scanned += len(candidates)

		for i := range candidates {
			candidate := &candidates[i]
			_, changed, err := s.administer(ctx, candidate.Scope(), candidate.ID, "expired", func(a *ledger.Allocation) (bool, error) {
				// spending may have used up the balance since the scan
				if !a.IsExpirable(now) {
					return false, nil
				}
				return true, a.Expire(now)
			})
			switch {
			case err != nil:
				result.Failed++
			case changed:
				result.Expired++
			}
		}
	}

	s.logger.Info("Fiscal year expiry sweep finished",
		zap.Int("year", now.Year()),
		zap.Int("tenants", result.Tenants),
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// administer applies an administrative change under the allocation lock.
// fn reports whether it changed anything; unchanged allocations are not saved.
func (s *AllocationService) administer(
	ctx context.Context,
	scope shared.Scope,
	id uuid.UUID,
	action string,
	fn func(a *ledger.Allocation) (bool, error),
) (*ledger.Allocation, bool, error) {
	if err := scope.Validate(); err != nil {
		return nil, false, err
	}

	var (
		allocation *ledger.Allocation
		changed    bool
		events     pendingEvents
	)
	err := s.unit.run(ctx, id, func(repos TransactionalRepositories) error {
		events = nil
		a, err := repos.Allocations().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		if changed, err = fn(a); err != nil {
			return err
		}
		allocation = a
		if !changed {
			return nil
		}
		if err := repos.Allocations().SaveWithLock(ctx, a); err != nil {
			return err
		}
		events.take(a)
		return nil
	})
	if err != nil {
		s.logRejected(action, scope, id, err)
		return nil, false, err
	}

	publish(ctx, s.publisher, s.logger, events)
	if changed {
		s.logger.Info("Allocation "+action,
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("program_id", scope.ProgramID.String()),
			zap.String("allocation_id", id.String()),
			zap.String("status", string(allocation.Status)),
		)
	}
	return allocation, changed, nil
}

func (s *AllocationService) respond(allocation *ledger.Allocation, _ bool, err error) (*AllocationResponse, error) {
	if err != nil {
		return nil, err
	}
	response := ToAllocationResponse(allocation)
	return &response, nil
}

func (s *AllocationService) logRejected(action string, scope shared.Scope, id uuid.UUID, err error) {
	logOperationError(s.logger, "Allocation operation rejected", err,
		zap.String("action", action),
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("allocation_id", id.String()),
	)
}
