package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banper/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func scopeEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), zap.New(core)))
		c.Next()
	})
	engine.Use(Scope())
	engine.GET("/scope", func(c *gin.Context) {
		scope, ok := GetScope(c)
		require.True(t, ok)
		logger.FromContext(c.Request.Context()).Info("handled")
		c.JSON(http.StatusOK, gin.H{
			"tenant":      scope.TenantID.String(),
			"program":     scope.ProgramID.String(),
			"tenant_only": scope.TenantOnly(),
		})
	})
	return engine, logs
}

func TestScope(t *testing.T) {
	tenantID, programID := uuid.New(), uuid.New()

	t.Run("tenant and program", func(t *testing.T) {
		engine, logs := scopeEngine(t)
		req := httptest.NewRequest(http.MethodGet, "/scope", nil)
		req.Header.Set(TenantHeader, tenantID.String())
		req.Header.Set(ProgramHeader, programID.String())
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), programID.String())
		assert.Contains(t, w.Body.String(), `"tenant_only":false`)

		entries := logs.FilterMessage("handled").All()
		require.Len(t, entries, 1)
		assert.Equal(t, tenantID.String(), entries[0].ContextMap()["tenant_id"])
		assert.Equal(t, programID.String(), entries[0].ContextMap()["program_id"])
	})

	t.Run("tenant only", func(t *testing.T) {
		engine, _ := scopeEngine(t)
		req := httptest.NewRequest(http.MethodGet, "/scope", nil)
		req.Header.Set(TenantHeader, tenantID.String())
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"tenant_only":true`)
	})

	tests := []struct {
		name    string
		tenant  string
		program string
	}{
		{"missing tenant", "", programID.String()},
		{"malformed tenant", "dinas-1", ""},
		{"nil tenant", uuid.Nil.String(), ""},
		{"malformed program", tenantID.String(), "program-7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := scopeEngine(t)
			req := httptest.NewRequest(http.MethodGet, "/scope", nil)
			if tt.tenant != "" {
				req.Header.Set(TenantHeader, tt.tenant)
			}
			if tt.program != "" {
				req.Header.Set(ProgramHeader, tt.program)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "ERR_INVALID_SCOPE")
		})
	}
}

func TestGetScope_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetScope(c)
	assert.False(t, ok)
}
