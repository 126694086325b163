package funding

import (
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateTypeFundingRequest = "FundingRequest"

	EventTypeFundingRequestCreated   = "FundingRequestCreated"
	EventTypeFundingRequestSubmitted = "FundingRequestSubmitted"
	EventTypeFundingRequestApproved  = "FundingRequestApproved"
	EventTypeFundingRequestDisbursed = "FundingRequestDisbursed"
	EventTypeFundingRequestRejected  = "FundingRequestRejected"
	EventTypeFundingRequestCancelled = "FundingRequestCancelled"
)

// FundingRequestCreatedEvent is raised when a draft request is created
type FundingRequestCreatedEvent struct {
	shared.BaseDomainEvent
	RequestID       uuid.UUID `json:"request_id"`
	RequestedAmount int64     `json:"requested_amount"`
	Beneficiaries   int       `json:"beneficiaries"`
}

func NewFundingRequestCreatedEvent(r *FundingRequest) *FundingRequestCreatedEvent {
	return &FundingRequestCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundingRequestCreated, AggregateTypeFundingRequest, r.ID, r.Scope()),
		RequestID:       r.ID,
		RequestedAmount: r.RequestedAmount,
		Beneficiaries:   r.Beneficiaries,
	}
}

// FundingRequestSubmittedEvent is raised when a request is recorded as submitted
type FundingRequestSubmittedEvent struct {
	shared.BaseDomainEvent
	RequestID       uuid.UUID `json:"request_id"`
	RequestNumber   string    `json:"request_number"`
	RequestedAmount int64     `json:"requested_amount"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

func NewFundingRequestSubmittedEvent(r *FundingRequest) *FundingRequestSubmittedEvent {
	var submittedAt time.Time
	if r.SubmittedAt != nil {
		submittedAt = *r.SubmittedAt
	}
	return &FundingRequestSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundingRequestSubmitted, AggregateTypeFundingRequest, r.ID, r.Scope()),
		RequestID:       r.ID,
		RequestNumber:   r.RequestNumber,
		RequestedAmount: r.RequestedAmount,
		SubmittedAt:     submittedAt,
	}
}

// FundingRequestApprovedEvent is raised when the authority approves a request
type FundingRequestApprovedEvent struct {
	shared.BaseDomainEvent
	RequestID      uuid.UUID `json:"request_id"`
	ApprovalNumber string    `json:"approval_number"`
	ApprovalDate   time.Time `json:"approval_date"`
}

func NewFundingRequestApprovedEvent(r *FundingRequest) *FundingRequestApprovedEvent {
	e := &FundingRequestApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundingRequestApproved, AggregateTypeFundingRequest, r.ID, r.Scope()),
		RequestID:       r.ID,
	}
	if r.Approval != nil {
		e.ApprovalNumber = r.Approval.Number
		e.ApprovalDate = r.Approval.Date
	}
	return e
}

// FundingRequestDisbursedEvent is raised when funds are released.
// The allocation built from the disbursement is created in the same unit of work.
type FundingRequestDisbursedEvent struct {
	shared.BaseDomainEvent
	RequestID       uuid.UUID `json:"request_id"`
	RequestedAmount int64     `json:"requested_amount"`
	DisbursedAmount int64     `json:"disbursed_amount"`
	DisbursedDate   time.Time `json:"disbursed_date"`
}

func NewFundingRequestDisbursedEvent(r *FundingRequest) *FundingRequestDisbursedEvent {
	e := &FundingRequestDisbursedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundingRequestDisbursed, AggregateTypeFundingRequest, r.ID, r.Scope()),
		RequestID:       r.ID,
		RequestedAmount: r.RequestedAmount,
	}
	if r.Disbursement != nil {
		e.DisbursedAmount = r.Disbursement.Amount
		e.DisbursedDate = r.Disbursement.Date
	}
	return e
}

// FundingRequestRejectedEvent is raised when the authority rejects a request
type FundingRequestRejectedEvent struct {
	shared.BaseDomainEvent
	RequestID uuid.UUID `json:"request_id"`
	Reason    string    `json:"reason"`
}

func NewFundingRequestRejectedEvent(r *FundingRequest) *FundingRequestRejectedEvent {
	return &FundingRequestRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundingRequestRejected, AggregateTypeFundingRequest, r.ID, r.Scope()),
		RequestID:       r.ID,
		Reason:          r.RejectionReason,
	}
}

// FundingRequestCancelledEvent is raised when a draft is withdrawn
type FundingRequestCancelledEvent struct {
	shared.BaseDomainEvent
	RequestID uuid.UUID `json:"request_id"`
	Reason    string    `json:"reason"`
}

func NewFundingRequestCancelledEvent(r *FundingRequest) *FundingRequestCancelledEvent {
	return &FundingRequestCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundingRequestCancelled, AggregateTypeFundingRequest, r.ID, r.Scope()),
		RequestID:       r.ID,
		Reason:          r.CancelReason,
	}
}
