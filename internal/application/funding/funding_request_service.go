package funding

import (
	"context"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Settings are the ledger rules the services apply
type Settings struct {
	DisbursementCeiling decimal.Decimal
	DefaultSource       ledger.FundingSource
	Retry               RetryPolicy
}

// DefaultSettings caps disbursements at the requested amount and records
// disbursed funds as central budget
func DefaultSettings() Settings {
	return Settings{
		DisbursementCeiling: funding.DefaultDisbursementCeiling,
		DefaultSource:       ledger.FundingSourceCentralBudget,
		Retry:               DefaultRetryPolicy(),
	}
}

// FundingRequestService handles the funding request lifecycle
type FundingRequestService struct {
	requests  funding.FundingRequestRepository
	txScope   TransactionScope
	publisher shared.EventPublisher
	settings  Settings
	logger    *zap.Logger
}

// NewFundingRequestService creates a new FundingRequestService
func NewFundingRequestService(
	requests funding.FundingRequestRepository,
	txScope TransactionScope,
	settings Settings,
	logger *zap.Logger,
) *FundingRequestService {
	return &FundingRequestService{
		requests: requests,
		txScope:  txScope,
		settings: settings,
		logger:   logger,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *FundingRequestService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create creates a funding request in DRAFT_LOCAL
func (s *FundingRequestService) Create(ctx context.Context, scope shared.Scope, in FundingRequestInput) (*FundingRequestResponse, error) {
	request, err := funding.NewFundingRequest(scope, in.toDetails())
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	var events pendingEvents
	events.take(request)
	publish(ctx, s.publisher, s.logger, events)

	s.logger.Info("Funding request created",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("funding_request_id", request.ID.String()),
		zap.Int64("requested_amount", request.RequestedAmount),
	)

	response := ToFundingRequestResponse(request)
	return &response, nil
}

// GetByID retrieves a funding request
func (s *FundingRequestService) GetByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*FundingRequestResponse, error) {
	if err := validateReadScope(scope); err != nil {
		return nil, err
	}
	request, err := s.requests.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// List lists funding requests of a program, or of every program of the
// tenant when the scope names no program
func (s *FundingRequestService) List(ctx context.Context, scope shared.Scope, filter FundingRequestListFilter) (shared.Paginated[FundingRequestResponse], error) {
	page := filter.page()
	if err := validateReadScope(scope); err != nil {
		return shared.Paginated[FundingRequestResponse]{}, err
	}

	domainFilter := funding.FundingRequestFilter{
		Page:     page,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
		Search:   filter.Search,
	}
	if filter.Status != "" {
		status := funding.RequestStatus(filter.Status)
		if !status.IsValid() {
			return shared.Paginated[FundingRequestResponse]{}, shared.NewValidationError("INVALID_STATUS", "Unknown funding request status: "+filter.Status)
		}
		domainFilter.Status = &status
	}

	requests, total, err := s.requests.FindAll(ctx, scope, domainFilter)
	if err != nil {
		return shared.Paginated[FundingRequestResponse]{}, err
	}

	items := make([]FundingRequestResponse, len(requests))
	for i := range requests {
		items[i] = ToFundingRequestResponse(&requests[i])
	}
	return shared.NewPaginated(items, total, page), nil
}

// Update replaces the fields of a draft
func (s *FundingRequestService) Update(ctx context.Context, scope shared.Scope, id uuid.UUID, in FundingRequestInput) (*FundingRequestResponse, error) {
	request, err := s.mutate(ctx, scope, id, "updated", func(r *funding.FundingRequest, _ TransactionalRepositories) (bool, error) {
		return true, r.Update(in.toDetails())
	})
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// Delete physically removes a draft
func (s *FundingRequestService) Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		request, err := repos.FundingRequests().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		if err := request.EnsureDeletable(); err != nil {
			return err
		}
		return repos.FundingRequests().Delete(ctx, scope, id)
	})
	if err != nil {
		s.logRejected("delete", scope, id, err)
		return err
	}

	s.logger.Info("Funding request deleted",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("funding_request_id", id.String()),
	)
	return nil
}

// Submit hands a draft to the central authority under requestNumber, which
// must be unused within the tenant
func (s *FundingRequestService) Submit(ctx context.Context, scope shared.Scope, id uuid.UUID, in SubmitFundingRequestInput) (*FundingRequestResponse, error) {
	submittedAt := shared.Now()
	if in.SubmissionDate != nil {
		submittedAt = in.SubmissionDate.UTC()
	}

	request, err := s.mutate(ctx, scope, id, "submitted", func(r *funding.FundingRequest, repos TransactionalRepositories) (bool, error) {
		if err := r.Submit(in.RequestNumber, submittedAt); err != nil {
			return false, err
		}
		taken, err := repos.FundingRequests().ExistsByRequestNumber(ctx, r.TenantID, r.RequestNumber, r.ID)
		if err != nil {
			return false, err
		}
		if taken {
			return false, shared.NewValidationError("DUPLICATE_REQUEST_NUMBER",
				"Request number "+r.RequestNumber+" is already used by another funding request")
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// MarkUnderReview records that the authority started its review. Repeating
// it on a request already under review changes nothing.
func (s *FundingRequestService) MarkUnderReview(ctx context.Context, scope shared.Scope, id uuid.UUID) (*FundingRequestResponse, error) {
	request, err := s.mutate(ctx, scope, id, "under review", func(r *funding.FundingRequest, _ TransactionalRepositories) (bool, error) {
		return r.MarkUnderReview()
	})
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// Approve records the authority's approval
func (s *FundingRequestService) Approve(ctx context.Context, scope shared.Scope, id uuid.UUID, in ApproveFundingRequestInput) (*FundingRequestResponse, error) {
	approval := funding.Approval{
		Number:           in.ApprovalNumber,
		Date:             in.ApprovalDate.UTC(),
		ApproverName:     in.ApproverName,
		ApproverPosition: in.ApproverPosition,
	}
	request, err := s.mutate(ctx, scope, id, "approved", func(r *funding.FundingRequest, _ TransactionalRepositories) (bool, error) {
		return true, r.Approve(approval)
	})
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// Disburse records the release of funds and creates the allocation holding
// them. Both writes commit together or not at all.
func (s *FundingRequestService) Disburse(ctx context.Context, scope shared.Scope, id uuid.UUID, in DisburseFundingRequestInput) (*DisbursementResult, error) {
	disbursement := funding.Disbursement{
		Amount:              in.Amount,
		Date:                in.DisbursedDate.UTC(),
		SettlementReference: in.SettlementReference,
		ReceivingAccount:    in.ReceivingAccount,
	}
	source := s.settings.DefaultSource
	if in.Source != "" {
		source = ledger.FundingSource(in.Source)
	}
	fiscalYear := in.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = disbursement.Date.Year()
	}

	var allocation *ledger.Allocation
	request, err := s.mutate(ctx, scope, id, "disbursed", func(r *funding.FundingRequest, repos TransactionalRepositories) (bool, error) {
		if err := r.Disburse(disbursement, s.settings.DisbursementCeiling); err != nil {
			return false, err
		}
		a, err := ledger.NewAllocationFromDisbursement(r, source, fiscalYear)
		if err != nil {
			return false, err
		}
		if err := repos.Allocations().Create(ctx, a); err != nil {
			return false, err
		}
		allocation = a
		return true, nil
	}, func(events *pendingEvents) {
		events.take(allocation)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Allocation released by disbursement",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("funding_request_id", request.ID.String()),
		zap.String("allocation_id", allocation.ID.String()),
		zap.Int64("allocated_amount", allocation.AllocatedAmount),
	)

	return &DisbursementResult{
		Request:    ToFundingRequestResponse(request),
		Allocation: ToAllocationResponse(allocation),
	}, nil
}

// Reject records the authority's rejection
func (s *FundingRequestService) Reject(ctx context.Context, scope shared.Scope, id uuid.UUID, in ReasonInput) (*FundingRequestResponse, error) {
	request, err := s.mutate(ctx, scope, id, "rejected", func(r *funding.FundingRequest, _ TransactionalRepositories) (bool, error) {
		return true, r.Reject(in.Reason)
	})
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// Cancel withdraws a draft
func (s *FundingRequestService) Cancel(ctx context.Context, scope shared.Scope, id uuid.UUID, in ReasonInput) (*FundingRequestResponse, error) {
	request, err := s.mutate(ctx, scope, id, "cancelled", func(r *funding.FundingRequest, _ TransactionalRepositories) (bool, error) {
		return true, r.Cancel(in.Reason)
	})
	if err != nil {
		return nil, err
	}
	response := ToFundingRequestResponse(request)
	return &response, nil
}

// mutate loads a request inside a database transaction, applies fn and saves
// it with a version check. fn reports whether it changed anything. A lost
// version race re-runs the whole unit. collect lets the caller gather events
// of other aggregates written by fn.
func (s *FundingRequestService) mutate(
	ctx context.Context,
	scope shared.Scope,
	id uuid.UUID,
	action string,
	fn func(r *funding.FundingRequest, repos TransactionalRepositories) (bool, error),
	collect ...func(events *pendingEvents),
) (*funding.FundingRequest, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var (
		request *funding.FundingRequest
		changed bool
		events  pendingEvents
	)
	err := s.settings.Retry.run(ctx, func() error {
		events = nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			r, err := repos.FundingRequests().FindByID(ctx, scope, id)
			if err != nil {
				return err
			}
			if changed, err = fn(r, repos); err != nil {
				return err
			}
			request = r
			if !changed {
				return nil
			}
			if err := repos.FundingRequests().SaveWithLock(ctx, r); err != nil {
				return err
			}
			events.take(r)
			for _, c := range collect {
				c(&events)
			}
			return nil
		})
	})
	if err != nil {
		s.logRejected(action, scope, id, err)
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events)
	if changed {
		s.logger.Info("Funding request "+action,
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("program_id", scope.ProgramID.String()),
			zap.String("funding_request_id", id.String()),
			zap.String("status", string(request.Status)),
		)
	}
	return request, nil
}

func (s *FundingRequestService) logRejected(action string, scope shared.Scope, id uuid.UUID, err error) {
	logOperationError(s.logger, "Funding request operation rejected", err,
		zap.String("action", action),
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("program_id", scope.ProgramID.String()),
		zap.String("funding_request_id", id.String()),
	)
}
