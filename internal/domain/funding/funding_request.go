package funding

import (
	"fmt"
	"strings"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	maxRequestNumberLength = 100
	maxReasonLength        = 500
)

// DefaultDisbursementCeiling caps disbursements at the requested amount
var DefaultDisbursementCeiling = decimal.NewFromInt(1)

// Approval holds the facts recorded when the central authority approves a request
type Approval struct {
	Number           string    `json:"approval_number"`
	Date             time.Time `json:"approval_date"`
	ApproverName     string    `json:"approver_name"`
	ApproverPosition string    `json:"approver_position"`
}

func (a Approval) validate() error {
	switch {
	case strings.TrimSpace(a.Number) == "":
		return shared.NewValidationError("INVALID_APPROVAL", "Approval number is required")
	case a.Date.IsZero():
		return shared.NewValidationError("INVALID_APPROVAL", "Approval date is required")
	case strings.TrimSpace(a.ApproverName) == "":
		return shared.NewValidationError("INVALID_APPROVAL", "Approver name is required")
	case strings.TrimSpace(a.ApproverPosition) == "":
		return shared.NewValidationError("INVALID_APPROVAL", "Approver position is required")
	}
	return nil
}

// Disbursement holds the facts recorded when funds are released
type Disbursement struct {
	Amount              int64     `json:"disbursed_amount"`
	Date                time.Time `json:"disbursed_date"`
	SettlementReference string    `json:"settlement_reference"`
	ReceivingAccount    string    `json:"receiving_account"`
}

// Details are the draft-editable fields of a funding request
type Details struct {
	RequestedAmount   int64
	CostBreakdown     CostBreakdown
	Beneficiaries     int
	OperationalPeriod string
	OperationalDays   int
	Notes             string
}

func (d Details) validate() error {
	if err := d.CostBreakdown.Validate(d.RequestedAmount); err != nil {
		return err
	}
	if d.Beneficiaries <= 0 {
		return shared.NewValidationError("INVALID_BENEFICIARIES", "Beneficiary count must be positive")
	}
	if strings.TrimSpace(d.OperationalPeriod) == "" {
		return shared.NewValidationError("INVALID_PERIOD", "Operational period cannot be empty")
	}
	if d.OperationalDays <= 0 {
		return shared.NewValidationError("INVALID_PERIOD", "Operational day count must be positive")
	}
	return nil
}

// FundingRequest is the aggregate root tracking a request for program funds
// from preparation through disbursement.
type FundingRequest struct {
	shared.ProgramAggregateRoot
	RequestNumber     string        `json:"request_number"` // assigned by the authority on submission
	RequestedAmount   int64         `json:"requested_amount"`
	CostBreakdown     CostBreakdown `json:"cost_breakdown"`
	Beneficiaries     int           `json:"beneficiaries"`
	OperationalPeriod string        `json:"operational_period"`
	OperationalDays   int           `json:"operational_days"`
	Notes             string        `json:"notes"`
	Status            RequestStatus `json:"status"`
	SubmittedAt       *time.Time    `json:"submitted_at"`
	ReviewStartedAt   *time.Time    `json:"review_started_at"`
	Approval          *Approval     `json:"approval"`
	Disbursement      *Disbursement `json:"disbursement"`
	RejectionReason   string        `json:"rejection_reason"`
	RejectedAt        *time.Time    `json:"rejected_at"`
	CancelReason      string        `json:"cancel_reason"`
	CancelledAt       *time.Time    `json:"cancelled_at"`
}

// NewFundingRequest creates a funding request in DRAFT_LOCAL
func NewFundingRequest(scope shared.Scope, details Details) (*FundingRequest, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := details.validate(); err != nil {
		return nil, err
	}

	fr := &FundingRequest{
		ProgramAggregateRoot: shared.NewProgramAggregateRoot(scope),
		Status:               RequestStatusDraftLocal,
	}
	fr.applyDetails(details)

	fr.AddDomainEvent(NewFundingRequestCreatedEvent(fr))

	return fr, nil
}

func (r *FundingRequest) applyDetails(d Details) {
	r.RequestedAmount = d.RequestedAmount
	r.CostBreakdown = d.CostBreakdown
	r.Beneficiaries = d.Beneficiaries
	r.OperationalPeriod = strings.TrimSpace(d.OperationalPeriod)
	r.OperationalDays = d.OperationalDays
	r.Notes = d.Notes
}

// Details returns the current draft-editable fields
func (r *FundingRequest) Details() Details {
	return Details{
		RequestedAmount:   r.RequestedAmount,
		CostBreakdown:     r.CostBreakdown,
		Beneficiaries:     r.Beneficiaries,
		OperationalPeriod: r.OperationalPeriod,
		OperationalDays:   r.OperationalDays,
		Notes:             r.Notes,
	}
}

// Update replaces the draft fields, re-validating the cost breakdown
func (r *FundingRequest) Update(details Details) error {
	if !r.Status.IsEditable() {
		return shared.NewImmutableError("REQUEST_NOT_DRAFT",
			fmt.Sprintf("Cannot update funding request in %s status", r.Status))
	}
	if err := details.validate(); err != nil {
		return err
	}

	r.applyDetails(details)
	r.Touch()
	return nil
}

// EnsureDeletable returns an error unless the request may be physically removed
func (r *FundingRequest) EnsureDeletable() error {
	if !r.Status.IsEditable() {
		return shared.NewImmutableError("REQUEST_NOT_DRAFT",
			fmt.Sprintf("Cannot delete funding request in %s status", r.Status))
	}
	return nil
}

// Submit records that the request was sent to the central authority.
// Uniqueness of the request number is checked by the caller against the repository.
func (r *FundingRequest) Submit(requestNumber string, submittedAt time.Time) error {
	if !r.Status.CanSubmit() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot submit funding request in %s status", r.Status))
	}
	requestNumber = strings.TrimSpace(requestNumber)
	if requestNumber == "" {
		return shared.NewValidationError("INVALID_REQUEST_NUMBER", "Request number cannot be empty")
	}
	if len(requestNumber) > maxRequestNumberLength {
		return shared.NewValidationError("INVALID_REQUEST_NUMBER",
			fmt.Sprintf("Request number cannot exceed %d characters", maxRequestNumberLength))
	}
	if submittedAt.IsZero() {
		return shared.NewValidationError("INVALID_SUBMISSION_DATE", "Submission date is required")
	}
	if err := r.CostBreakdown.Validate(r.RequestedAmount); err != nil {
		return err
	}

	r.RequestNumber = requestNumber
	r.Status = RequestStatusSubmittedToAuthority
	r.SubmittedAt = &submittedAt
	r.Touch()

	r.AddDomainEvent(NewFundingRequestSubmittedEvent(r))
	return nil
}

// MarkUnderReview records that the authority started reviewing the request.
// It reports whether the status changed; calling it again is a no-op.
func (r *FundingRequest) MarkUnderReview() (bool, error) {
	if !r.Status.CanMarkUnderReview() {
		return false, shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot mark funding request under review in %s status", r.Status))
	}
	if r.Status == RequestStatusUnderReview {
		return false, nil
	}

	now := r.Touch()
	r.Status = RequestStatusUnderReview
	r.ReviewStartedAt = &now
	return true, nil
}

// Approve records the authority's approval
func (r *FundingRequest) Approve(approval Approval) error {
	if !r.Status.CanDecide() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot approve funding request in %s status", r.Status))
	}
	approval.Number = strings.TrimSpace(approval.Number)
	approval.ApproverName = strings.TrimSpace(approval.ApproverName)
	approval.ApproverPosition = strings.TrimSpace(approval.ApproverPosition)
	if err := approval.validate(); err != nil {
		return err
	}

	r.Status = RequestStatusApproved
	r.Approval = &approval
	r.Touch()

	r.AddDomainEvent(NewFundingRequestApprovedEvent(r))
	return nil
}

// Disburse records the release of funds. ceiling is the largest allowed
// multiple of the requested amount; zero means DefaultDisbursementCeiling.
func (r *FundingRequest) Disburse(d Disbursement, ceiling decimal.Decimal) error {
	if !r.Status.CanDisburse() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot disburse funding request in %s status", r.Status))
	}
	if d.Amount <= 0 {
		return shared.NewValidationError("INVALID_AMOUNT", "Disbursed amount must be positive")
	}
	if ceiling.IsZero() {
		ceiling = DefaultDisbursementCeiling
	}
	limit := decimal.NewFromInt(r.RequestedAmount).Mul(ceiling)
	if decimal.NewFromInt(d.Amount).GreaterThan(limit) {
		return shared.NewValidationError("DISBURSEMENT_EXCEEDS_REQUEST",
			fmt.Sprintf("Disbursed amount %d exceeds the allowed maximum of %s", d.Amount, limit.Floor().String()))
	}
	if d.Date.IsZero() {
		return shared.NewValidationError("INVALID_DISBURSEMENT", "Disbursement date is required")
	}
	d.SettlementReference = strings.TrimSpace(d.SettlementReference)
	d.ReceivingAccount = strings.TrimSpace(d.ReceivingAccount)
	if d.SettlementReference == "" {
		return shared.NewValidationError("INVALID_DISBURSEMENT", "Settlement reference is required")
	}
	if d.ReceivingAccount == "" {
		return shared.NewValidationError("INVALID_DISBURSEMENT", "Receiving account is required")
	}

	r.Status = RequestStatusDisbursed
	r.Disbursement = &d
	r.Touch()

	r.AddDomainEvent(NewFundingRequestDisbursedEvent(r))
	return nil
}

// Reject records the authority's rejection
func (r *FundingRequest) Reject(reason string) error {
	if !r.Status.CanDecide() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot reject funding request in %s status", r.Status))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Rejection reason is required")
	}
	if len(reason) > maxReasonLength {
		return shared.NewValidationError("INVALID_REASON",
			fmt.Sprintf("Rejection reason cannot exceed %d characters", maxReasonLength))
	}

	now := r.Touch()
	r.Status = RequestStatusRejected
	r.RejectionReason = reason
	r.RejectedAt = &now

	r.AddDomainEvent(NewFundingRequestRejectedEvent(r))
	return nil
}

// Cancel withdraws a draft. The reason is optional.
func (r *FundingRequest) Cancel(reason string) error {
	if !r.Status.CanCancel() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel funding request in %s status", r.Status))
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return shared.NewValidationError("INVALID_REASON",
			fmt.Sprintf("Cancel reason cannot exceed %d characters", maxReasonLength))
	}

	now := r.Touch()
	r.Status = RequestStatusCancelled
	r.CancelReason = reason
	r.CancelledAt = &now

	r.AddDomainEvent(NewFundingRequestCancelledEvent(r))
	return nil
}

// DisbursedAmount returns the released amount, or 0 before disbursement
func (r *FundingRequest) DisbursedAmount() int64 {
	if r.Disbursement == nil {
		return 0
	}
	return r.Disbursement.Amount
}

func (r *FundingRequest) IsDraft() bool {
	return r.Status == RequestStatusDraftLocal
}

func (r *FundingRequest) IsDisbursed() bool {
	return r.Status == RequestStatusDisbursed
}
