package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides the version counter and pending events of an aggregate
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// ProgramAggregateRoot is an aggregate owned by one nutrition program of one tenant
type ProgramAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	ProgramID uuid.UUID
}

// NewProgramAggregateRoot creates a new aggregate root bound to scope
func NewProgramAggregateRoot(scope Scope) ProgramAggregateRoot {
	return ProgramAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          scope.TenantID,
		ProgramID:         scope.ProgramID,
	}
}

// Scope returns the tenant/program pair owning the aggregate
func (p *ProgramAggregateRoot) Scope() Scope {
	return Scope{TenantID: p.TenantID, ProgramID: p.ProgramID}
}

// BelongsTo reports whether the aggregate is visible from scope.
// A tenant-only scope sees every program of the tenant.
func (p *ProgramAggregateRoot) BelongsTo(scope Scope) bool {
	if p.TenantID != scope.TenantID {
		return false
	}
	return scope.ProgramID == uuid.Nil || p.ProgramID == scope.ProgramID
}
