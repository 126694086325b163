package funding

import (
	"context"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FundingRequestFilter defines filtering options for funding request queries
type FundingRequestFilter struct {
	shared.Page
	Status   *RequestStatus
	FromDate *time.Time // created_at lower bound, inclusive
	ToDate   *time.Time // created_at upper bound, inclusive
	Search   string     // matches request number or notes
}

// FundingRequestRepository defines persistence for funding requests.
// Every lookup is bounded by scope; a request from another tenant or program is NOT_FOUND.
type FundingRequestRepository interface {
	// FindByID finds a request within scope
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*FundingRequest, error)

	// FindAll lists requests in scope, returning the page and the total match count
	FindAll(ctx context.Context, scope shared.Scope, filter FundingRequestFilter) ([]FundingRequest, int64, error)

	// ExistsByRequestNumber reports whether another request of the tenant already uses number
	ExistsByRequestNumber(ctx context.Context, tenantID uuid.UUID, number string, excludeID uuid.UUID) (bool, error)

	// Create inserts a new request
	Create(ctx context.Context, request *FundingRequest) error

	// SaveWithLock updates the request if its stored version still matches,
	// then advances the in-memory version. A mismatch is a CONFLICT error.
	SaveWithLock(ctx context.Context, request *FundingRequest) error

	// Delete physically removes a request
	Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error
}
