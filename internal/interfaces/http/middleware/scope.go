package middleware

import (
	"net/http"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/banper/backend/internal/infrastructure/logger"
	"github.com/banper/backend/internal/infrastructure/telemetry"
	"github.com/banper/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// TenantHeader names the tenant every request runs against
	TenantHeader = "X-Tenant-ID"
	// ProgramHeader names the program; list and summary endpoints accept it empty
	ProgramHeader = "X-Program-ID"

	scopeKey = "scope"
)

// Scope reads the tenant and program headers into a shared.Scope.
// The tenant is mandatory; the program may be omitted and is then left for
// the service to reject on writes. Authentication happens upstream.
func Scope() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(TenantHeader))
		if err != nil || tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeInvalidScope, TenantHeader+" header must be a UUID", GetRequestID(c)))
			return
		}

		programID := uuid.Nil
		if raw := c.GetHeader(ProgramHeader); raw != "" {
			programID, err = uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
					dto.ErrCodeInvalidScope, ProgramHeader+" header must be a UUID", GetRequestID(c)))
				return
			}
		}

		scope := shared.NewScope(tenantID, programID)
		c.Set(scopeKey, scope)

		ctx := logger.WithFields(c.Request.Context(),
			zap.String("tenant_id", tenantID.String()),
			zap.String("program_id", programID.String()),
		)
		c.Request = c.Request.WithContext(ctx)

		span := trace.SpanFromContext(ctx)
		telemetry.SetAttribute(span, telemetry.SpanAttrTenantID, tenantID)
		telemetry.SetAttribute(span, telemetry.SpanAttrProgramID, programID)

		c.Next()
	}
}

// GetScope returns the scope set by Scope
func GetScope(c *gin.Context) (shared.Scope, bool) {
	v, ok := c.Get(scopeKey)
	if !ok {
		return shared.Scope{}, false
	}
	scope, ok := v.(shared.Scope)
	return scope, ok
}
