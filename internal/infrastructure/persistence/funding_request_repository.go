package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/banper/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFundingRequestRepository implements FundingRequestRepository using GORM
type GormFundingRequestRepository struct {
	db *gorm.DB
}

// NewGormFundingRequestRepository creates a new GormFundingRequestRepository
func NewGormFundingRequestRepository(db *gorm.DB) *GormFundingRequestRepository {
	return &GormFundingRequestRepository{db: db}
}

// FindByID finds a funding request within scope
func (r *GormFundingRequestRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*funding.FundingRequest, error) {
	var model models.FundingRequestModel
	query := scoped(r.db.WithContext(ctx), scope).Where("id = ?", id)
	if err := query.First(&model).Error; err != nil {
		return nil, notFound(err, "FUNDING_REQUEST")
	}
	return model.ToDomain(), nil
}

// FindAll lists funding requests in scope
func (r *GormFundingRequestRepository) FindAll(ctx context.Context, scope shared.Scope, filter funding.FundingRequestFilter) ([]funding.FundingRequest, int64, error) {
	query := func() *gorm.DB {
		return r.applyFilter(scoped(r.db.WithContext(ctx).Model(&models.FundingRequestModel{}), scope), filter)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count funding requests: %w", err)
	}

	var rows []models.FundingRequestModel
	if err := applyPage(query(), filter.Page, FundingRequestSortFields).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list funding requests: %w", err)
	}

	requests := make([]funding.FundingRequest, len(rows))
	for i := range rows {
		requests[i] = *rows[i].ToDomain()
	}
	return requests, total, nil
}

func (r *GormFundingRequestRepository) applyFilter(query *gorm.DB, filter funding.FundingRequestFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("(request_number LIKE ? OR notes LIKE ?)", pattern, pattern)
	}
	return query
}

// ExistsByRequestNumber checks whether another request of the tenant uses number
func (r *GormFundingRequestRepository) ExistsByRequestNumber(ctx context.Context, tenantID uuid.UUID, number string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FundingRequestModel{}).
		Where("tenant_id = ? AND request_number = ? AND id <> ?", tenantID, number, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check request number: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new funding request
func (r *GormFundingRequestRepository) Create(ctx context.Context, request *funding.FundingRequest) error {
	model := models.FundingRequestModelFromDomain(request)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return r.translateWriteError(err)
	}
	return nil
}

// SaveWithLock saves the funding request with optimistic locking
func (r *GormFundingRequestRepository) SaveWithLock(ctx context.Context, request *funding.FundingRequest) error {
	expected := request.GetVersion()
	model := models.FundingRequestModelFromDomain(request)
	model.Version = expected + 1

	result := r.db.WithContext(ctx).Model(&models.FundingRequestModel{}).
		Where("id = ? AND version = ?", request.ID, expected).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return r.translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("FUNDING_REQUEST")
	}

	request.IncrementVersion()
	return nil
}

// Delete physically removes a funding request
func (r *GormFundingRequestRepository) Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error {
	result := scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).Delete(&models.FundingRequestModel{})
	if result.Error != nil {
		return fmt.Errorf("delete funding request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("FUNDING_REQUEST_NOT_FOUND", "Funding request not found")
	}
	return nil
}

// A duplicate request number that slipped past the existence check surfaces as a unique violation.
func (r *GormFundingRequestRepository) translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewValidationError("DUPLICATE_REQUEST_NUMBER", "Request number is already used by another funding request")
	}
	return fmt.Errorf("save funding request: %w", err)
}

var _ funding.FundingRequestRepository = (*GormFundingRequestRepository)(nil)
