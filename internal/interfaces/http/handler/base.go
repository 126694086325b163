// Package handler adapts the ledger application services to gin.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/banper/backend/internal/infrastructure/logger"
	"github.com/banper/backend/internal/interfaces/http/dto"
	"github.com/banper/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// HandleError maps err onto the response. Domain errors keep their code and
// get the status of their kind; anything else is logged and hidden behind a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.Set(middleware.ErrorKindKey, string(domainErr.Kind))
		c.JSON(dto.StatusForKind(domainErr.Kind), dto.NewErrorResponse(domainErr.Code, domainErr.Message, requestID))
		return
	}

	_ = c.Error(err)
	logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}

// bindJSON decodes the body into req and answers 400 on failure.
// An empty body decodes to the zero value so optional bodies can be omitted.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		if err = binding.Validator.ValidateStruct(req); err == nil {
			return true
		}
	}
	h.bindError(c, err)
	return false
}

// bindQuery decodes query parameters into req and answers 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", middleware.GetRequestID(c), details))
		return
	}
	h.BadRequest(c, dto.ErrCodeInvalidJSON, err.Error())
}

// scope returns the request scope set by middleware.Scope
func (h *BaseHandler) scope(c *gin.Context) (shared.Scope, bool) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		h.BadRequest(c, dto.ErrCodeInvalidScope, "Request scope is missing")
	}
	return scope, ok
}

// pathID parses the :id path parameter
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeBadRequest, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// writePage sends a paginated 200 response
func writePage[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}
