package models

import (
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel extends BaseModel with version for optimistic locking
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// fromProgramAggregateRoot copies identity, audit and version fields
func (m *AggregateModel) fromProgramAggregateRoot(r shared.ProgramAggregateRoot) {
	m.ID = r.ID
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
	m.Version = r.Version
}

// programAggregateRoot rebuilds the domain root. Pending events are not persisted.
func (m *AggregateModel) programAggregateRoot(tenantID, programID uuid.UUID) shared.ProgramAggregateRoot {
	return shared.ProgramAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:  tenantID,
		ProgramID: programID,
	}
}
