package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/banper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransactionRepository implements TransactionRepository using GORM.
// Soft-deleted rows are invisible to every query except CountAll.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a live transaction within scope
func (r *GormTransactionRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err, "TRANSACTION")
	}
	return model.ToDomain(), nil
}

// FindAll lists live transactions in scope
func (r *GormTransactionRepository) FindAll(ctx context.Context, scope shared.Scope, filter ledger.TransactionFilter) ([]ledger.Transaction, int64, error) {
	query := func() *gorm.DB {
		return r.applyFilter(scoped(r.db.WithContext(ctx).Model(&models.TransactionModel{}), scope), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	var rows []models.TransactionModel
	if err := applyPage(query(), filter.Page, TransactionSortFields).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	transactions := make([]ledger.Transaction, len(rows))
	for i := range rows {
		transactions[i] = *rows[i].ToDomain()
	}
	return transactions, total, nil
}

func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter ledger.TransactionFilter) *gorm.DB {
	if filter.AllocationID != nil {
		query = query.Where("allocation_id = ?", *filter.AllocationID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.FromDate != nil {
		query = query.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("transaction_date <= ?", *filter.ToDate)
	}
	if filter.Approved != nil {
		if *filter.Approved {
			query = query.Where("approved_at IS NOT NULL")
		} else {
			query = query.Where("approved_at IS NULL")
		}
	}
	return query
}

// SumLiveAmounts sums non-deleted transaction amounts of an allocation
func (r *GormTransactionRepository) SumLiveAmounts(ctx context.Context, allocationID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("allocation_id = ?", allocationID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// CountAll counts every transaction of an allocation, soft-deleted ones included
func (r *GormTransactionRepository) CountAll(ctx context.Context, allocationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.TransactionModel{}).
		Where("allocation_id = ?", allocationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// NextSequence reserves the next transaction sequence of the scope's program.
// Run it inside the transaction that inserts the transaction so a rollback
// gives the number back.
func (r *GormTransactionRepository) NextSequence(ctx context.Context, scope shared.Scope) (int64, error) {
	db := r.db.WithContext(ctx)

	result := db.Model(&models.TransactionSequenceModel{}).
		Where("program_id = ?", scope.ProgramID).
		Updates(map[string]any{
			"last_value": gorm.Expr("last_value + 1"),
			"updated_at": shared.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("advance transaction sequence: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		seq := models.TransactionSequenceModel{
			ProgramID: scope.ProgramID,
			TenantID:  scope.TenantID,
			LastValue: 1,
			UpdatedAt: shared.Now(),
		}
		if err := db.Create(&seq).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, shared.NewConflictError("SEQUENCE_CONFLICT", "Transaction numbering was started concurrently")
			}
			return 0, fmt.Errorf("start transaction sequence: %w", err)
		}
		return 1, nil
	}

	var seq models.TransactionSequenceModel
	if err := db.Where("program_id = ?", scope.ProgramID).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("read transaction sequence: %w", err)
	}
	return seq.LastValue, nil
}

// Create inserts a new transaction
func (r *GormTransactionRepository) Create(ctx context.Context, transaction *ledger.Transaction) error {
	if err := r.db.WithContext(ctx).Create(models.TransactionModelFromDomain(transaction)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("DUPLICATE_TRANSACTION_NUMBER",
				fmt.Sprintf("Transaction number %s is already taken", transaction.TransactionNumber))
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// Save updates a live transaction, including setting its soft-delete marker
func (r *GormTransactionRepository) Save(ctx context.Context, transaction *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(transaction)
	model.Version = transaction.GetVersion() + 1

	result := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("id = ? AND version = ?", transaction.ID, transaction.GetVersion()).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("save transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("TRANSACTION")
	}

	transaction.IncrementVersion()
	return nil
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
