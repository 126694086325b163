package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope identifies the tenant and program an operation runs against.
// It is passed explicitly to every service call.
type Scope struct {
	TenantID  uuid.UUID
	ProgramID uuid.UUID
}

// NewScope creates a scope
func NewScope(tenantID, programID uuid.UUID) Scope {
	return Scope{TenantID: tenantID, ProgramID: programID}
}

// Validate returns a validation error if either identifier is missing
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil {
		return NewValidationError("INVALID_TENANT", "Tenant ID is required")
	}
	if s.ProgramID == uuid.Nil {
		return NewValidationError("INVALID_PROGRAM", "Program ID is required")
	}
	return nil
}

// TenantOnly reports whether the scope names a tenant but no program.
// Read operations accept it to list across all programs of a tenant.
func (s Scope) TenantOnly() bool {
	return s.TenantID != uuid.Nil && s.ProgramID == uuid.Nil
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s", s.TenantID, s.ProgramID)
}
