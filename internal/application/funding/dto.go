package funding

import (
	"time"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CostBreakdownInput is the six-way split of a requested amount
type CostBreakdownInput struct {
	Food        int64 `json:"food"`
	Operational int64 `json:"operational"`
	Transport   int64 `json:"transport"`
	Utility     int64 `json:"utility"`
	Staff       int64 `json:"staff"`
	Other       int64 `json:"other"`
}

func (c CostBreakdownInput) toDomain() funding.CostBreakdown {
	return funding.CostBreakdown{
		Food:        c.Food,
		Operational: c.Operational,
		Transport:   c.Transport,
		Utility:     c.Utility,
		Staff:       c.Staff,
		Other:       c.Other,
	}
}

// FundingRequestInput carries the draft-editable fields of a funding request.
// It is used for both create and update.
type FundingRequestInput struct {
	RequestedAmount   int64              `json:"requested_amount" binding:"required,gt=0"`
	CostBreakdown     CostBreakdownInput `json:"cost_breakdown"`
	Beneficiaries     int                `json:"beneficiaries" binding:"required,gt=0"`
	OperationalPeriod string             `json:"operational_period" binding:"required,max=100"`
	OperationalDays   int                `json:"operational_days" binding:"required,gt=0"`
	Notes             string             `json:"notes" binding:"max=2000"`
}

func (in FundingRequestInput) toDetails() funding.Details {
	return funding.Details{
		RequestedAmount:   in.RequestedAmount,
		CostBreakdown:     in.CostBreakdown.toDomain(),
		Beneficiaries:     in.Beneficiaries,
		OperationalPeriod: in.OperationalPeriod,
		OperationalDays:   in.OperationalDays,
		Notes:             in.Notes,
	}
}

// SubmitFundingRequestInput records the hand-off to the central authority
type SubmitFundingRequestInput struct {
	RequestNumber  string     `json:"request_number" binding:"required,max=100"`
	SubmissionDate *time.Time `json:"submission_date"` // defaults to now
}

// ApproveFundingRequestInput records the authority's approval
type ApproveFundingRequestInput struct {
	ApprovalNumber   string    `json:"approval_number" binding:"required,max=100"`
	ApprovalDate     time.Time `json:"approval_date" binding:"required"`
	ApproverName     string    `json:"approver_name" binding:"required,max=200"`
	ApproverPosition string    `json:"approver_position" binding:"required,max=200"`
}

// DisburseFundingRequestInput records the release of funds. Source and
// FiscalYear describe the allocation created by the disbursement.
type DisburseFundingRequestInput struct {
	Amount              int64     `json:"amount" binding:"required,gt=0"`
	DisbursedDate       time.Time `json:"disbursed_date" binding:"required"`
	SettlementReference string    `json:"settlement_reference" binding:"required,max=100"`
	ReceivingAccount    string    `json:"receiving_account" binding:"required,max=100"`
	Source              string    `json:"source"`      // defaults to the configured source
	FiscalYear          int       `json:"fiscal_year"` // defaults to the year of DisbursedDate
}

// ReasonInput carries a free-text reason for reject, cancel and freeze
type ReasonInput struct {
	Reason string `json:"reason" binding:"max=500"`
}

// FundingRequestListFilter represents filter options for funding request lists
type FundingRequestListFilter struct {
	Status   string     `form:"status"`
	FromDate *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"to_date" time_format:"2006-01-02"`
	Search   string     `form:"search"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f FundingRequestListFilter) page() shared.Page {
	return shared.Page{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir}.Normalize()
}

// FundingRequestResponse represents a funding request in API responses
type FundingRequestResponse struct {
	ID                uuid.UUID             `json:"id"`
	TenantID          uuid.UUID             `json:"tenant_id"`
	ProgramID         uuid.UUID             `json:"program_id"`
	RequestNumber     string                `json:"request_number,omitempty"`
	Status            string                `json:"status"`
	RequestedAmount   int64                 `json:"requested_amount"`
	CostBreakdown     CostBreakdownInput    `json:"cost_breakdown"`
	Beneficiaries     int                   `json:"beneficiaries"`
	OperationalPeriod string                `json:"operational_period"`
	OperationalDays   int                   `json:"operational_days"`
	Notes             string                `json:"notes,omitempty"`
	SubmittedAt       *time.Time            `json:"submitted_at,omitempty"`
	ReviewStartedAt   *time.Time            `json:"review_started_at,omitempty"`
	Approval          *funding.Approval     `json:"approval,omitempty"`
	Disbursement      *funding.Disbursement `json:"disbursement,omitempty"`
	RejectionReason   string                `json:"rejection_reason,omitempty"`
	RejectedAt        *time.Time            `json:"rejected_at,omitempty"`
	CancelReason      string                `json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Version           int                   `json:"version"`
}

// ToFundingRequestResponse converts a domain funding request to its response
func ToFundingRequestResponse(r *funding.FundingRequest) FundingRequestResponse {
	b := r.CostBreakdown
	return FundingRequestResponse{
		ID:                r.ID,
		TenantID:          r.TenantID,
		ProgramID:         r.ProgramID,
		RequestNumber:     r.RequestNumber,
		Status:            string(r.Status),
		RequestedAmount:   r.RequestedAmount,
		CostBreakdown:     CostBreakdownInput{b.Food, b.Operational, b.Transport, b.Utility, b.Staff, b.Other},
		Beneficiaries:     r.Beneficiaries,
		OperationalPeriod: r.OperationalPeriod,
		OperationalDays:   r.OperationalDays,
		Notes:             r.Notes,
		SubmittedAt:       r.SubmittedAt,
		ReviewStartedAt:   r.ReviewStartedAt,
		Approval:          r.Approval,
		Disbursement:      r.Disbursement,
		RejectionReason:   r.RejectionReason,
		RejectedAt:        r.RejectedAt,
		CancelReason:      r.CancelReason,
		CancelledAt:       r.CancelledAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Version:           r.Version,
	}
}

// DisbursementResult is returned by a disbursement: the request and the
// allocation it released, both committed together
type DisbursementResult struct {
	Request    FundingRequestResponse `json:"request"`
	Allocation AllocationResponse     `json:"allocation"`
}

// CreateAllocationInput enters an allocation that did not come from a tracked request
type CreateAllocationInput struct {
	Source          string `json:"source" binding:"required"`
	AllocatedAmount int64  `json:"allocated_amount" binding:"required,gt=0"`
	FiscalYear      int    `json:"fiscal_year" binding:"required"`
	DecreeReference string `json:"decree_reference" binding:"max=100"`
}

// AllocationListFilter represents filter options for allocation lists
type AllocationListFilter struct {
	Source           string     `form:"source"`
	Status           string     `form:"status"`
	FiscalYear       *int       `form:"fiscal_year"`
	FundingRequestID *uuid.UUID `form:"funding_request_id"`
	Page             int        `form:"page"`
	PageSize         int        `form:"page_size"`
	OrderBy          string     `form:"order_by"`
	OrderDir         string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f AllocationListFilter) page() shared.Page {
	return shared.Page{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir}.Normalize()
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	ProgramID        uuid.UUID  `json:"program_id"`
	FundingRequestID *uuid.UUID `json:"funding_request_id,omitempty"`
	Source           string     `json:"source"`
	AllocatedAmount  int64      `json:"allocated_amount"`
	SpentAmount      int64      `json:"spent_amount"`
	RemainingAmount  int64      `json:"remaining_amount"`
	FiscalYear       int        `json:"fiscal_year"`
	DecreeReference  string     `json:"decree_reference,omitempty"`
	Status           string     `json:"status"`
	FreezeReason     string     `json:"freeze_reason,omitempty"`
	FrozenAt         *time.Time `json:"frozen_at,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt        *time.Time `json:"expired_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Version          int        `json:"version"`
}

// ToAllocationResponse converts a domain allocation to its response
func ToAllocationResponse(a *ledger.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:               a.ID,
		TenantID:         a.TenantID,
		ProgramID:        a.ProgramID,
		FundingRequestID: a.FundingRequestID,
		Source:           string(a.Source),
		AllocatedAmount:  a.AllocatedAmount,
		SpentAmount:      a.SpentAmount,
		RemainingAmount:  a.RemainingAmount,
		FiscalYear:       a.FiscalYear,
		DecreeReference:  a.DecreeReference,
		Status:           string(a.Status),
		FreezeReason:     a.FreezeReason,
		FrozenAt:         a.FrozenAt,
		CancelReason:     a.CancelReason,
		CancelledAt:      a.CancelledAt,
		ExpiredAt:        a.ExpiredAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		Version:          a.Version,
	}
}

// ExpirySweepResult reports one run of the fiscal-year-end sweep
type ExpirySweepResult struct {
	Tenants int `json:"tenants"`
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// CreateTransactionInput records an expenditure against an allocation
type CreateTransactionInput struct {
	AllocationID    uuid.UUID `json:"allocation_id" binding:"required"`
	Category        string    `json:"category" binding:"required"`
	Amount          int64     `json:"amount" binding:"required,gt=0"`
	TransactionDate time.Time `json:"transaction_date" binding:"required"`
	Description     string    `json:"description" binding:"max=500"`
}

// UpdateTransactionInput changes an unapproved transaction; nil fields are kept
type UpdateTransactionInput struct {
	Amount          *int64     `json:"amount" binding:"omitempty,gt=0"`
	Category        *string    `json:"category"`
	TransactionDate *time.Time `json:"transaction_date"`
	Description     *string    `json:"description" binding:"omitempty,max=500"`
}

func (in UpdateTransactionInput) toChanges() ledger.TransactionChanges {
	changes := ledger.TransactionChanges{
		Amount:      in.Amount,
		Date:        in.TransactionDate,
		Description: in.Description,
	}
	if in.Category != nil {
		category := ledger.TransactionCategory(*in.Category)
		changes.Category = &category
	}
	return changes
}

// ApproveTransactionInput names who approved a transaction
type ApproveTransactionInput struct {
	ApprovedBy string `json:"approved_by" binding:"required,max=200"`
}

// TransactionListFilter represents filter options for transaction lists
type TransactionListFilter struct {
	AllocationID *uuid.UUID `form:"allocation_id"`
	Category     string     `form:"category"`
	FromDate     *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate       *time.Time `form:"to_date" time_format:"2006-01-02"`
	Approved     *bool      `form:"approved"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f TransactionListFilter) page() shared.Page {
	return shared.Page{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir}.Normalize()
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	ProgramID         uuid.UUID  `json:"program_id"`
	AllocationID      uuid.UUID  `json:"allocation_id"`
	TransactionNumber string     `json:"transaction_number"`
	Category          string     `json:"category"`
	Amount            int64      `json:"amount"`
	TransactionDate   time.Time  `json:"transaction_date"`
	Description       string     `json:"description,omitempty"`
	ApprovedBy        string     `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int        `json:"version"`
}

// ToTransactionResponse converts a domain transaction to its response
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID,
		TenantID:          t.TenantID,
		ProgramID:         t.ProgramID,
		AllocationID:      t.AllocationID,
		TransactionNumber: t.TransactionNumber,
		Category:          string(t.Category),
		Amount:            t.Amount,
		TransactionDate:   t.TransactionDate,
		Description:       t.Description,
		ApprovedBy:        t.ApprovedBy,
		ApprovedAt:        t.ApprovedAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		Version:           t.Version,
	}
}

// TransactionResult returns a transaction together with the allocation totals
// reconciled in the same database transaction
type TransactionResult struct {
	Transaction *TransactionResponse `json:"transaction,omitempty"` // nil after a delete
	Allocation  AllocationResponse   `json:"allocation"`
}
