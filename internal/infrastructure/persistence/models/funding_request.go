package models

import (
	"time"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/google/uuid"
)

// FundingRequestModel is the persistence model for the FundingRequest aggregate root.
// Approval and disbursement facts are flattened into nullable columns.
type FundingRequestModel struct {
	AggregateModel
	TenantID          uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_funding_requests_tenant_number,priority:1"`
	ProgramID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	RequestNumber     *string               `gorm:"type:varchar(100);uniqueIndex:idx_funding_requests_tenant_number,priority:2"`
	RequestedAmount   int64                 `gorm:"not null"`
	CostFood          int64                 `gorm:"not null;default:0"`
	CostOperational   int64                 `gorm:"not null;default:0"`
	CostTransport     int64                 `gorm:"not null;default:0"`
	CostUtility       int64                 `gorm:"not null;default:0"`
	CostStaff         int64                 `gorm:"not null;default:0"`
	CostOther         int64                 `gorm:"not null;default:0"`
	Beneficiaries     int                   `gorm:"not null"`
	OperationalPeriod string                `gorm:"type:varchar(100);not null"`
	OperationalDays   int                   `gorm:"not null"`
	Notes             string                `gorm:"type:text"`
	Status            funding.RequestStatus `gorm:"type:varchar(30);not null;default:'DRAFT_LOCAL';index"`
	SubmittedAt       *time.Time
	ReviewStartedAt   *time.Time
	ApprovalNumber    *string `gorm:"type:varchar(100)"`
	ApprovalDate      *time.Time
	ApproverName      *string `gorm:"type:varchar(200)"`
	ApproverPosition  *string `gorm:"type:varchar(200)"`
	DisbursedAmount   *int64
	DisbursedDate     *time.Time
	SettlementRef     *string `gorm:"column:settlement_reference;type:varchar(100)"`
	ReceivingAccount  *string `gorm:"type:varchar(100)"`
	RejectionReason   string  `gorm:"type:varchar(500)"`
	RejectedAt        *time.Time
	CancelReason      string `gorm:"type:varchar(500)"`
	CancelledAt       *time.Time
}

// TableName returns the table name for GORM
func (FundingRequestModel) TableName() string {
	return "funding_requests"
}

// ToDomain converts the persistence model to a domain FundingRequest.
func (m *FundingRequestModel) ToDomain() *funding.FundingRequest {
	fr := &funding.FundingRequest{
		ProgramAggregateRoot: m.programAggregateRoot(m.TenantID, m.ProgramID),
		RequestNumber:        deref(m.RequestNumber),
		RequestedAmount:      m.RequestedAmount,
		CostBreakdown: funding.CostBreakdown{
			Food:        m.CostFood,
			Operational: m.CostOperational,
			Transport:   m.CostTransport,
			Utility:     m.CostUtility,
			Staff:       m.CostStaff,
			Other:       m.CostOther,
		},
		Beneficiaries:     m.Beneficiaries,
		OperationalPeriod: m.OperationalPeriod,
		OperationalDays:   m.OperationalDays,
		Notes:             m.Notes,
		Status:            m.Status,
		SubmittedAt:       m.SubmittedAt,
		ReviewStartedAt:   m.ReviewStartedAt,
		RejectionReason:   m.RejectionReason,
		RejectedAt:        m.RejectedAt,
		CancelReason:      m.CancelReason,
		CancelledAt:       m.CancelledAt,
	}
	if m.ApprovalNumber != nil {
		fr.Approval = &funding.Approval{
			Number:           *m.ApprovalNumber,
			Date:             derefTime(m.ApprovalDate),
			ApproverName:     deref(m.ApproverName),
			ApproverPosition: deref(m.ApproverPosition),
		}
	}
	if m.DisbursedAmount != nil {
		fr.Disbursement = &funding.Disbursement{
			Amount:              *m.DisbursedAmount,
			Date:                derefTime(m.DisbursedDate),
			SettlementReference: deref(m.SettlementRef),
			ReceivingAccount:    deref(m.ReceivingAccount),
		}
	}
	return fr
}

// FromDomain populates the persistence model from a domain FundingRequest.
func (m *FundingRequestModel) FromDomain(fr *funding.FundingRequest) {
	m.fromProgramAggregateRoot(fr.ProgramAggregateRoot)
	m.TenantID = fr.TenantID
	m.ProgramID = fr.ProgramID
	m.RequestNumber = nilIfEmpty(fr.RequestNumber)
	m.RequestedAmount = fr.RequestedAmount
	m.CostFood = fr.CostBreakdown.Food
	m.CostOperational = fr.CostBreakdown.Operational
	m.CostTransport = fr.CostBreakdown.Transport
	m.CostUtility = fr.CostBreakdown.Utility
	m.CostStaff = fr.CostBreakdown.Staff
	m.CostOther = fr.CostBreakdown.Other
	m.Beneficiaries = fr.Beneficiaries
	m.OperationalPeriod = fr.OperationalPeriod
	m.OperationalDays = fr.OperationalDays
	m.Notes = fr.Notes
	m.Status = fr.Status
	m.SubmittedAt = fr.SubmittedAt
	m.ReviewStartedAt = fr.ReviewStartedAt
	m.RejectionReason = fr.RejectionReason
	m.RejectedAt = fr.RejectedAt
	m.CancelReason = fr.CancelReason
	m.CancelledAt = fr.CancelledAt

	m.ApprovalNumber, m.ApprovalDate, m.ApproverName, m.ApproverPosition = nil, nil, nil, nil
	if a := fr.Approval; a != nil {
		date := a.Date
		m.ApprovalNumber = &a.Number
		m.ApprovalDate = &date
		m.ApproverName = &a.ApproverName
		m.ApproverPosition = &a.ApproverPosition
	}
	m.DisbursedAmount, m.DisbursedDate, m.SettlementRef, m.ReceivingAccount = nil, nil, nil, nil
	if d := fr.Disbursement; d != nil {
		date := d.Date
		m.DisbursedAmount = &d.Amount
		m.DisbursedDate = &date
		m.SettlementRef = &d.SettlementReference
		m.ReceivingAccount = &d.ReceivingAccount
	}
}

// FundingRequestModelFromDomain creates a new persistence model from domain.
func FundingRequestModelFromDomain(fr *funding.FundingRequest) *FundingRequestModel {
	m := &FundingRequestModel{}
	m.FromDomain(fr)
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
