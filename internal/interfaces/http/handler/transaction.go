package handler

import (
	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/gin-gonic/gin"
)

// TransactionHandler handles expenditure transaction API endpoints
type TransactionHandler struct {
	BaseHandler
	transactionService *appfunding.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *appfunding.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// RegisterRoutes registers the transaction routes on rg
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transactions := rg.Group("/transactions")
	transactions.POST("", h.Create)
	transactions.GET("", h.List)
	transactions.GET("/:id", h.GetByID)
	transactions.PUT("/:id", h.Update)
	transactions.DELETE("/:id", h.Delete)
	transactions.POST("/:id/approve", h.Approve)
}

// Create records an expenditure and debits its allocation
// @ID           createTransaction
// @Summary      Record spending against an allocation
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body appfunding.CreateTransactionInput true "Request body"
// @Success      201 {object} dto.Response{data=appfunding.TransactionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appfunding.CreateTransactionInput
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.transactionService.Create(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetByID returns a single transaction
// @ID           getTransaction
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.TransactionResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /transactions/{id} [get]
func (h *TransactionHandler) GetByID(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	resp, err := h.transactionService.GetByID(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns a page of transactions
// @ID           listTransactions
// @Summary      List transactions
// @Tags         transactions
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        allocation_id query string false "Allocation"
// @Param        category query string false "Spending category"
// @Param        from_date query string false "Dated on or after (YYYY-MM-DD)"
// @Param        to_date query string false "Dated on or before (YYYY-MM-DD)"
// @Param        approved query boolean false "Approval state"
// @Param        page query integer false "Page number"
// @Param        page_size query integer false "Page size"
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]appfunding.TransactionResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Router       /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var filter appfunding.TransactionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.transactionService.List(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(c, page)
}

// Update changes an unapproved transaction and rebalances its allocation
// @ID           updateTransaction
// @Summary      Edit an unapproved transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.UpdateTransactionInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.TransactionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.UpdateTransactionInput
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.transactionService.Update(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Approve locks a transaction against further change
// @ID           approveTransaction
// @Summary      Approve a transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Param        request body appfunding.ApproveTransactionInput true "Request body"
// @Success      200 {object} dto.Response{data=appfunding.TransactionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /transactions/{id}/approve [post]
func (h *TransactionHandler) Approve(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfunding.ApproveTransactionInput
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.transactionService.Approve(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete removes an unapproved transaction and credits its allocation back.
// The allocation balance after the credit is returned.
// @ID           deleteTransaction
// @Summary      Delete an unapproved transaction
// @Tags         transactions
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Program-ID header string false "Program ID"
// @Param        id path string true "ID"
// @Success      200 {object} dto.Response{data=appfunding.TransactionResult}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.transactionService.Delete(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
