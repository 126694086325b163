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

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation within scope
func (r *GormAllocationRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledger.Allocation, error) {
	var model models.AllocationModel
	if err := scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err, "ALLOCATION")
	}
	return model.ToDomain(), nil
}

// FindByFundingRequest finds the allocation released by a funding request
func (r *GormAllocationRepository) FindByFundingRequest(ctx context.Context, scope shared.Scope, requestID uuid.UUID) (*ledger.Allocation, error) {
	var model models.AllocationModel
	if err := scoped(r.db.WithContext(ctx), scope).Where("funding_request_id = ?", requestID).First(&model).Error; err != nil {
		return nil, notFound(err, "ALLOCATION")
	}
	return model.ToDomain(), nil
}

// FindAll lists allocations in scope
func (r *GormAllocationRepository) FindAll(ctx context.Context, scope shared.Scope, filter ledger.AllocationFilter) ([]ledger.Allocation, int64, error) {
	query := func() *gorm.DB {
		return r.applyFilter(scoped(r.db.WithContext(ctx).Model(&models.AllocationModel{}), scope), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count allocations: %w", err)
	}

	var rows []models.AllocationModel
	if err := applyPage(query(), filter.Page, AllocationSortFields).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list allocations: %w", err)
	}
	return toAllocations(rows), total, nil
}

func (r *GormAllocationRepository) applyFilter(query *gorm.DB, filter ledger.AllocationFilter) *gorm.DB {
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FiscalYear != nil {
		query = query.Where("fiscal_year = ?", *filter.FiscalYear)
	}
	if filter.FundingRequestID != nil {
		query = query.Where("funding_request_id = ?", *filter.FundingRequestID)
	}
	return query
}

// FindExpirable finds allocations with funds left whose fiscal year closed before year
func (r *GormAllocationRepository) FindExpirable(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.Allocation, error) {
	var rows []models.AllocationModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND fiscal_year < ? AND remaining_amount > 0", tenantID, year).
		Where("status_override NOT IN ?", []ledger.AllocationOverride{ledger.OverrideCancelled, ledger.OverrideExpired}).
		Order("fiscal_year, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find expirable allocations: %w", err)
	}
	return toAllocations(rows), nil
}

// Summarize totals the allocations in scope, grouped by status
func (r *GormAllocationRepository) Summarize(ctx context.Context, scope shared.Scope) (*ledger.AllocationSummary, error) {
	var rows []struct {
		Status    string
		Count     int64
		Allocated int64
		Spent     int64
		Remaining int64
	}
	err := scoped(r.db.WithContext(ctx).Model(&models.AllocationModel{}), scope).
		Select("status, COUNT(*) AS count, " +
			"COALESCE(SUM(allocated_amount), 0) AS allocated, " +
			"COALESCE(SUM(spent_amount), 0) AS spent, " +
			"COALESCE(SUM(remaining_amount), 0) AS remaining").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summarize allocations: %w", err)
	}

	summary := &ledger.AllocationSummary{ByStatus: make(map[ledger.AllocationStatus]int64, len(rows))}
	for _, row := range rows {
		summary.Count += row.Count
		summary.AllocatedAmount += row.Allocated
		summary.SpentAmount += row.Spent
		summary.RemainingAmount += row.Remaining
		summary.ByStatus[ledger.AllocationStatus(row.Status)] = row.Count
	}
	return summary, nil
}

// ListTenantIDs returns the distinct tenants owning allocations
func (r *GormAllocationRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.AllocationModel{}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list allocation tenants: %w", err)
	}
	return ids, nil
}

// Create inserts a new allocation
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *ledger.Allocation) error {
	if err := r.db.WithContext(ctx).Create(models.AllocationModelFromDomain(allocation)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("ALLOCATION_EXISTS", "An allocation already exists for this funding request")
		}
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// SaveWithLock saves the allocation with optimistic locking. The stored
// version must still equal the in-memory one; on success both advance by one.
func (r *GormAllocationRepository) SaveWithLock(ctx context.Context, allocation *ledger.Allocation) error {
	expected := allocation.GetVersion()
	model := models.AllocationModelFromDomain(allocation)
	model.Version = expected + 1

	result := r.db.WithContext(ctx).Model(&models.AllocationModel{}).
		Where("id = ? AND version = ?", allocation.ID, expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("save allocation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("ALLOCATION")
	}

	allocation.IncrementVersion()
	return nil
}

// Delete physically removes an allocation
func (r *GormAllocationRepository) Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error {
	result := scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).Delete(&models.AllocationModel{})
	if result.Error != nil {
		return fmt.Errorf("delete allocation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("ALLOCATION_NOT_FOUND", "Allocation not found")
	}
	return nil
}

func toAllocations(rows []models.AllocationModel) []ledger.Allocation {
	allocations := make([]ledger.Allocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations
}

var _ ledger.AllocationRepository = (*GormAllocationRepository)(nil)
