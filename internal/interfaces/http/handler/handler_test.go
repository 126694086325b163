package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/banper/backend/internal/infrastructure/lock"
	"github.com/banper/backend/internal/infrastructure/persistence"
	"github.com/banper/backend/internal/infrastructure/persistence/models"
	"github.com/banper/backend/internal/interfaces/http/dto"
	"github.com/banper/backend/internal/interfaces/http/handler"
	"github.com/banper/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type apiClient struct {
	t         *testing.T
	engine    *gin.Engine
	tenantID  uuid.UUID
	programID uuid.UUID
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), persistence.GormConfig(zap.NewNop(), gormlogger.Silent, time.Second))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	db := setupHandlerTestDB(t)
	txScope := persistence.NewGormTransactionScope(db)
	locker := lock.NewInProcessLocker(5 * time.Second)
	settings := appfunding.DefaultSettings()
	log := zap.NewNop()

	requests := appfunding.NewFundingRequestService(
		persistence.NewGormFundingRequestRepository(db), txScope, settings, log)
	allocations := appfunding.NewAllocationService(
		persistence.NewGormAllocationRepository(db), txScope, locker, settings, log)
	transactions := appfunding.NewTransactionService(
		persistence.NewGormTransactionRepository(db), txScope, locker, settings, log)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1", middleware.Scope())
	handler.NewFundingRequestHandler(requests).RegisterRoutes(api)
	handler.NewAllocationHandler(allocations).RegisterRoutes(api)
	handler.NewTransactionHandler(transactions).RegisterRoutes(api)

	return &apiClient{t: t, engine: engine, tenantID: uuid.New(), programID: uuid.New()}
}

func (a *apiClient) do(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, a.tenantID.String())
	if a.programID != uuid.Nil {
		req.Header.Set(middleware.ProgramHeader, a.programID.String())
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func requestBody(amount int64) gin.H {
	return gin.H{
		"requested_amount":   amount,
		"cost_breakdown":     gin.H{"food": amount},
		"beneficiaries":      250,
		"operational_period": "2026-Q1",
		"operational_days":   60,
	}
}

// disburse walks a request through the lifecycle over HTTP and returns its allocation
func (a *apiClient) disburse(amount int64) appfunding.AllocationResponse {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/funding-requests", requestBody(amount))
	require.Equal(a.t, http.StatusCreated, status)
	id := decode[appfunding.FundingRequestResponse](a.t, env).ID

	status, _ = a.do(http.MethodPost, "/funding-requests/"+id.String()+"/submit",
		gin.H{"request_number": "REQ-" + uuid.NewString()[:8]})
	require.Equal(a.t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/funding-requests/"+id.String()+"/approve", gin.H{
		"approval_number":   "APV-001",
		"approval_date":     "2026-02-01T00:00:00Z",
		"approver_name":     "Director",
		"approver_position": "Head of Programs",
	})
	require.Equal(a.t, http.StatusOK, status)

	status, env = a.do(http.MethodPost, "/funding-requests/"+id.String()+"/disburse", gin.H{
		"amount":               amount,
		"disbursed_date":       "2026-02-10T00:00:00Z",
		"settlement_reference": "SP2D-001",
		"receiving_account":    "1234567890",
	})
	require.Equal(a.t, http.StatusOK, status, "%+v", env.Error)
	return decode[appfunding.DisbursementResult](a.t, env).Allocation
}

func spendBody(allocationID uuid.UUID, amount int64) gin.H {
	return gin.H{
		"allocation_id":    allocationID.String(),
		"category":         "FOOD_PROCUREMENT",
		"amount":           amount,
		"transaction_date": "2026-03-01T00:00:00Z",
		"description":      "Rice and eggs",
	}
}
