package models

import (
	"time"

	"github.com/banper/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationModel is the persistence model for the Allocation aggregate root.
type AllocationModel struct {
	AggregateModel
	TenantID         uuid.UUID                 `gorm:"type:uuid;not null;index"`
	ProgramID        uuid.UUID                 `gorm:"type:uuid;not null;index"`
	FundingRequestID *uuid.UUID                `gorm:"type:uuid;uniqueIndex"`
	Source           ledger.FundingSource      `gorm:"type:varchar(40);not null;index"`
	AllocatedAmount  int64                     `gorm:"not null"`
	SpentAmount      int64                     `gorm:"not null;default:0"`
	RemainingAmount  int64                     `gorm:"not null"`
	FiscalYear       int                       `gorm:"not null;index"`
	DecreeReference  string                    `gorm:"type:varchar(100)"`
	Override         ledger.AllocationOverride `gorm:"column:status_override;type:varchar(20);not null;default:''"`
	Status           ledger.AllocationStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	FreezeReason     string                    `gorm:"type:varchar(500)"`
	FrozenAt         *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
	CancelledAt      *time.Time
	ExpiredAt        *time.Time
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *AllocationModel) ToDomain() *ledger.Allocation {
	return &ledger.Allocation{
		ProgramAggregateRoot: m.programAggregateRoot(m.TenantID, m.ProgramID),
		FundingRequestID:     m.FundingRequestID,
		Source:               m.Source,
		AllocatedAmount:      m.AllocatedAmount,
		SpentAmount:          m.SpentAmount,
		RemainingAmount:      m.RemainingAmount,
		FiscalYear:           m.FiscalYear,
		DecreeReference:      m.DecreeReference,
		Override:             m.Override,
		Status:               m.Status,
		FreezeReason:         m.FreezeReason,
		FrozenAt:             m.FrozenAt,
		CancelReason:         m.CancelReason,
		CancelledAt:          m.CancelledAt,
		ExpiredAt:            m.ExpiredAt,
	}
}

// FromDomain populates the persistence model from a domain Allocation.
func (m *AllocationModel) FromDomain(a *ledger.Allocation) {
	m.fromProgramAggregateRoot(a.ProgramAggregateRoot)
	m.TenantID = a.TenantID
	m.ProgramID = a.ProgramID
	m.FundingRequestID = a.FundingRequestID
	m.Source = a.Source
	m.AllocatedAmount = a.AllocatedAmount
	m.SpentAmount = a.SpentAmount
	m.RemainingAmount = a.RemainingAmount
	m.FiscalYear = a.FiscalYear
	m.DecreeReference = a.DecreeReference
	m.Override = a.Override
	m.Status = a.Status
	m.FreezeReason = a.FreezeReason
	m.FrozenAt = a.FrozenAt
	m.CancelReason = a.CancelReason
	m.CancelledAt = a.CancelledAt
	m.ExpiredAt = a.ExpiredAt
}

// AllocationModelFromDomain creates a new persistence model from domain.
func AllocationModelFromDomain(a *ledger.Allocation) *AllocationModel {
	m := &AllocationModel{}
	m.FromDomain(a)
	return m
}

// TransactionModel is the persistence model for ledger transactions.
// Deleted rows stay in the table with deleted_at set and are excluded by GORM's soft-delete scope.
type TransactionModel struct {
	AggregateModel
	TenantID          uuid.UUID                  `gorm:"type:uuid;not null;index"`
	ProgramID         uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_transactions_program_number,priority:1"`
	AllocationID      uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Sequence          int64                      `gorm:"not null"`
	TransactionNumber string                     `gorm:"type:varchar(30);not null;uniqueIndex:idx_transactions_program_number,priority:2"`
	Category          ledger.TransactionCategory `gorm:"type:varchar(30);not null;index"`
	Amount            int64                      `gorm:"not null"`
	TransactionDate   time.Time                  `gorm:"not null;index"`
	Description       string                     `gorm:"type:varchar(500)"`
	ApprovedBy        string                     `gorm:"type:varchar(200)"`
	ApprovedAt        *time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	t := &ledger.Transaction{
		ProgramAggregateRoot: m.programAggregateRoot(m.TenantID, m.ProgramID),
		AllocationID:         m.AllocationID,
		Sequence:             m.Sequence,
		TransactionNumber:    m.TransactionNumber,
		Category:             m.Category,
		Amount:               m.Amount,
		TransactionDate:      m.TransactionDate,
		Description:          m.Description,
		ApprovedBy:           m.ApprovedBy,
		ApprovedAt:           m.ApprovedAt,
	}
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		t.DeletedAt = &deletedAt
	}
	return t
}

// FromDomain populates the persistence model from a domain Transaction.
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.fromProgramAggregateRoot(t.ProgramAggregateRoot)
	m.TenantID = t.TenantID
	m.ProgramID = t.ProgramID
	m.AllocationID = t.AllocationID
	m.Sequence = t.Sequence
	m.TransactionNumber = t.TransactionNumber
	m.Category = t.Category
	m.Amount = t.Amount
	m.TransactionDate = t.TransactionDate
	m.Description = t.Description
	m.ApprovedBy = t.ApprovedBy
	m.ApprovedAt = t.ApprovedAt
	m.DeletedAt = gorm.DeletedAt{}
	if t.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	}
}

// TransactionModelFromDomain creates a new persistence model from domain.
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}

// TransactionSequenceModel holds the last transaction sequence issued per program
type TransactionSequenceModel struct {
	ProgramID uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransactionSequenceModel) TableName() string {
	return "transaction_sequences"
}

// AllModels lists every model of the schema, in dependency order
func AllModels() []any {
	return []any{
		&FundingRequestModel{},
		&AllocationModel{},
		&TransactionModel{},
		&TransactionSequenceModel{},
	}
}
