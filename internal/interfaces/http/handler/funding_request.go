package handler

import (
	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/gin-gonic/gin"
)

// FundingRequestHandler handles funding request API endpoints
type FundingRequestHandler struct {
	BaseHandler
	requestService *appfunding.FundingRequestService
}

// NewFundingRequestHandler creates a new FundingRequestHandler
func NewFundingRequestHandler(requestService *appfunding.FundingRequestService) *FundingRequestHandler {
	return &FundingRequestHandler{
		requestService: requestService,
	}
}

// RegisterRoutes registers the funding request routes on rg
func (h *FundingRequestHandler) RegisterRoutes(rg *gin.RouterGroup) {
	requests := rg.Group("/funding-requests")
	requests.POST("", h.Create)
	requests.GET("", h.List)
	requests.GET("/:id", h.GetByID)
	requests.PUT("/:id", h.Update)
	requests.DELETE("/:id", h.Delete)
	requests.POST("/:id/submit", h.Submit)
	requests.POST("/:id/review", h.MarkUnderReview)
	requests.POST("/:id/approve", h.Approve)
	requests.POST("/:id/disburse", h.Disburse)
	requests.POST("/:id/reject", h.Reject)
	requests.POST("/:id/cancel", h.Cancel)
}

// Create drafts a new funding request
// @ID           createFundingRequest
// @Summary      Draft a funding request
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body appfunding.FundingRequestInput true "Request body"
// @Success      201 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests [post]
func (h *FundingRequestHandler) Create(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appfunding.FundingRequestInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.requestService.Create(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID returns a single funding request
// @ID           getFundingRequest
// @Summary      Get a funding request
// @Tags         funding-requests
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /funding-requests/{id} [get]
func (h *FundingRequestHandler) GetByID(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	resp, err := h.requestService.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns a page of funding requests
// @ID           listFundingRequests
// @Summary      List funding requests
// @Tags         funding-requests
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        status query string false "Funding request status"
// @Param        from_date query string false "Created on or after (YYYY-MM-DD)"
// @Param        to_date query string false "Created on or before (YYYY-MM-DD)"
// @Param        search query string false "Request number or notes contains"
// @Param        page query integer false "Page number"
// @Param        page_size query integer false "Page size"
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]appfunding.FundingRequestResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Router       /funding-requests [get]
func (h *FundingRequestHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var filter appfunding.FundingRequestListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.requestService.List(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Update replaces the details of a draft
// @ID           updateFundingRequest
// @Summary      Edit a draft funding request
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.FundingRequestInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id} [put]
func (h *FundingRequestHandler) Update(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.FundingRequestInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.requestService.Update(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete soft-deletes a draft
// @ID           deleteFundingRequest
// @Summary      Delete a draft funding request
// @Tags         funding-requests
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id} [delete]
func (h *FundingRequestHandler) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.requestService.Delete(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Submit sends a draft to the authority
// @ID           submitFundingRequest
// @Summary      Submit a draft funding request
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.SubmitFundingRequestInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id}/submit [post]
func (h *FundingRequestHandler) Submit(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.SubmitFundingRequestInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.requestService.Submit(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkUnderReview records that the authority picked the request up
// @ID           reviewFundingRequest
// @Summary      Start review of a submitted request
// @Tags         funding-requests
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id}/review [post]
func (h *FundingRequestHandler) MarkUnderReview(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	resp, err := h.requestService.MarkUnderReview(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Approve records the approval decision
// @ID           approveFundingRequest
// @Summary      Approve a funding request
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.ApproveFundingRequestInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id}/approve [post]
func (h *FundingRequestHandler) Approve(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.ApproveFundingRequestInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.requestService.Approve(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Disburse releases funds and opens the matching allocation
// @ID           disburseFundingRequest
// @Summary      Disburse an approved request into an allocation
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        id path string true "ID"
// @Param        request body appfunding.DisburseFundingRequestInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.DisbursementResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id}/disburse [post]
func (h *FundingRequestHandler) Disburse(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.DisburseFundingRequestInput
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.requestService.Disburse(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject closes a submitted request without funding it
// @ID           rejectFundingRequest
// @Summary      Reject a funding request
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.ReasonInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id}/reject [post]
func (h *FundingRequestHandler) Reject(c *gin.Context) {
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

	resp, err := h.requestService.Reject(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel withdraws a request before disbursement
// @ID           cancelFundingRequest
// @Summary      Cancel a funding request
// @Tags         funding-requests
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.ReasonInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.FundingRequestResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /funding-requests/{id}/cancel [post]
func (h *FundingRequestHandler) Cancel(c *gin.Context) {
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

	resp, err := h.requestService.Cancel(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
