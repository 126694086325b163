package persistence

import (
	"context"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise, including on panic.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfunding.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) FundingRequests() funding.FundingRequestRepository {
	return NewGormFundingRequestRepository(r.tx)
}

func (r *gormTransactionalRepositories) Allocations() ledger.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

var (
	_ appfunding.TransactionScope          = (*GormTransactionScope)(nil)
	_ appfunding.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
