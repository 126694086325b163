package funding

import (
	"context"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// validateReadScope requires a tenant. Reads without a program span every
// program of the tenant.
func validateReadScope(scope shared.Scope) error {
	if scope.TenantID == uuid.Nil {
		return shared.NewValidationError("INVALID_TENANT", "Tenant ID is required")
	}
	return nil
}

// publish hands committed events to the publisher. The write already
// succeeded, so a failing handler is logged, not returned.
func publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events pendingEvents) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

// logOperationError logs business rejections at warn and infrastructure
// failures at error
func logOperationError(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	kind := shared.KindOf(err)
	if kind == "" {
		logger.Error(msg, append(fields, zap.Error(err))...)
		return
	}
	logger.Warn(msg, append(fields, zap.String("kind", string(kind)), zap.Error(err))...)
}
