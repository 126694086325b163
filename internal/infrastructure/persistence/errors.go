package persistence

import (
	"errors"
	"fmt"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// scoped restricts query to the tenant and, when set, the program of scope
func scoped(query *gorm.DB, scope shared.Scope) *gorm.DB {
	query = query.Where("tenant_id = ?", scope.TenantID)
	if scope.ProgramID != uuid.Nil {
		query = query.Where("program_id = ?", scope.ProgramID)
	}
	return query
}

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND domain error and wraps anything else
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(what+"_NOT_FOUND", fmt.Sprintf("%s not found", humanize(what)))
	}
	return fmt.Errorf("query %s: %w", humanize(what), err)
}

func versionConflict(what string) error {
	return shared.NewConflictError("VERSION_CONFLICT",
		fmt.Sprintf("%s has been modified by another process", humanize(what)))
}

func humanize(what string) string {
	switch what {
	case "FUNDING_REQUEST":
		return "Funding request"
	case "ALLOCATION":
		return "Allocation"
	case "TRANSACTION":
		return "Transaction"
	}
	return what
}
