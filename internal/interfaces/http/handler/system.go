package handler

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/banper/backend/internal/infrastructure/scheduler"
	"github.com/banper/backend/internal/interfaces/http/dto"
	"github.com/banper/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// SweepRunner runs the fiscal-year expiry sweep on demand
type SweepRunner interface {
	RunNow(ctx context.Context) (appfunding.ExpirySweepResult, error)
}

// SystemHandler handles health and maintenance endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	db        Pinger
	sweeper   SweepRunner
}

// NewSystemHandler creates a new SystemHandler. db and sweeper may be nil.
func NewSystemHandler(name, version string, db Pinger, sweeper SweepRunner) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		db:        db,
		sweeper:   sweeper,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HealthResponse reports dependency status
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// RegisterRoutes registers the system routes on rg
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	system.GET("/info", h.GetSystemInfo)
	system.GET("/ping", h.Ping)
	system.GET("/health", h.Health)
	system.POST("/expiry-sweep", h.RunExpirySweep)
}

// GetSystemInfo returns version and uptime
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=handler.SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ping answers pong
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=handler.PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Health reports 503 when the database cannot be reached
// @ID           getSystemHealth
// @Summary      Check dependency health
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=handler.HealthResponse}
// @Failure      503 {object} dto.Response
// @Router       /system/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Database: "unchecked"}
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
			return
		}
		resp.Database = "ok"
	}
	h.Success(c, resp)
}

// RunExpirySweep expires every active allocation of a closed fiscal year
// @ID           runExpirySweep
// @Summary      Expire allocations of closed fiscal years
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=appfunding.ExpirySweepResult}
// @Failure      409 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /system/expiry-sweep [post]
func (h *SystemHandler) RunExpirySweep(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
			dto.ErrCodeBusy, "Expiry sweep is not configured", middleware.GetRequestID(c)))
		return
	}

	result, err := h.sweeper.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrSweepInProgress) {
		c.JSON(http.StatusConflict, dto.NewErrorResponse(
			dto.ErrCodeBusy, "An expiry sweep is already running", middleware.GetRequestID(c)))
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
