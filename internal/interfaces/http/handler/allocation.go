package handler

import (
	"context"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AllocationHandler handles allocation API endpoints
type AllocationHandler struct {
	BaseHandler
	allocationService *appfunding.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *appfunding.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// RegisterRoutes registers the allocation routes on rg
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	allocations := rg.Group("/allocations")
	allocations.POST("", h.Create)
	allocations.GET("", h.List)
	allocations.GET("/summary", h.Summary)
	allocations.GET("/:id", h.GetByID)
	allocations.DELETE("/:id", h.Delete)
	allocations.POST("/:id/freeze", h.Freeze)
	allocations.POST("/:id/unfreeze", h.Unfreeze)
	allocations.POST("/:id/expire", h.Expire)
	allocations.POST("/:id/cancel", h.Cancel)
}

// Create enters a manual allocation
// @ID           createAllocation
// @Summary      Create a manual allocation
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body appfunding.CreateAllocationInput true "Request body"
// @Success      201 {object} dto.Response{data=appfunding.AllocationResponse}
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /allocations [post]
func (h *AllocationHandler) Create(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appfunding.CreateAllocationInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.allocationService.CreateManual(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID returns a single allocation
// @ID           getAllocation
// @Summary      Get an allocation
// @Tags         allocations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.AllocationResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /allocations/{id} [get]
func (h *AllocationHandler) GetByID(c *gin.Context) {
	h.withAllocation(c, h.allocationService.GetByID)
}

// List returns a page of allocations
// @ID           listAllocations
// @Summary      List allocations
// @Tags         allocations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        source query string false "Funding source"
// @Param        status query string false "Allocation status"
// @Param        fiscal_year query integer false "Fiscal year"
// @Param        funding_request_id query string false "Originating funding request"
// @Param        page query integer false "Page number"
// @Param        page_size query integer false "Page size"
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]appfunding.AllocationResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Router       /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var filter appfunding.AllocationListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.allocationService.List(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Summary returns totals per source and status for the scope
// @ID           summarizeAllocations
// @Summary      Summarize allocations in scope
// @Tags         allocations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Success      200 {object} dto.Response{data=ledger.AllocationSummary}
// @Failure      400 {object} dto.Response
// @Router       /allocations/summary [get]
func (h *AllocationHandler) Summary(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	summary, err := h.allocationService.Summary(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Delete soft-deletes an allocation that has no transactions
// @ID           deleteAllocation
// @Summary      Delete an allocation with no transactions
// @Tags         allocations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /allocations/{id} [delete]
func (h *AllocationHandler) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.allocationService.Delete(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Freeze blocks spending from an active allocation
// @ID           freezeAllocation
// @Summary      Freeze an allocation
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.ReasonInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.AllocationResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /allocations/{id}/freeze [post]
func (h *AllocationHandler) Freeze(c *gin.Context) {
	h.withReason(c, h.allocationService.Freeze)
}

// Unfreeze reactivates a frozen allocation
// @ID           unfreezeAllocation
// @Summary      Unfreeze an allocation
// @Tags         allocations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.AllocationResponse}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /allocations/{id}/unfreeze [post]
func (h *AllocationHandler) Unfreeze(c *gin.Context) {
	h.withAllocation(c, h.allocationService.Unfreeze)
}

// Expire closes an allocation at fiscal year end
// @ID           expireAllocation
// @Summary      Expire an allocation
// @Tags         allocations
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.AllocationResponse}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /allocations/{id}/expire [post]
func (h *AllocationHandler) Expire(c *gin.Context) {
	h.withAllocation(c, h.allocationService.Expire)
}

// Cancel voids an allocation
// @ID           cancelAllocation
// @Summary      Cancel an allocation
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.ReasonInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.AllocationResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /allocations/{id}/cancel [post]
func (h *AllocationHandler) Cancel(c *gin.Context) {
	h.withReason(c, h.allocationService.Cancel)
}

type allocationAction func(context.Context, shared.Scope, uuid.UUID) (*appfunding.AllocationResponse, error)

type allocationReasonAction func(context.Context, shared.Scope, uuid.UUID, appfunding.ReasonInput) (*appfunding.AllocationResponse, error)

func (h *AllocationHandler) withAllocation(c *gin.Context, action allocationAction) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	resp, err := action(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *AllocationHandler) withReason(c *gin.Context, action allocationReasonAction) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.ReasonInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := action(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
