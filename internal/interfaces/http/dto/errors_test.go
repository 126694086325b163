package dto

import (
	"net/http"
	"testing"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind   shared.ErrorKind
		status int
	}{
		{shared.KindValidationFailed, http.StatusBadRequest},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindInvalidState, http.StatusUnprocessableEntity},
		{shared.KindImmutableRecord, http.StatusUnprocessableEntity},
		{shared.KindConservationViolation, http.StatusUnprocessableEntity},
		{shared.ErrorKind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusForKind(tt.kind))
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	page := shared.NewPaginated([]string{"a", "b"}, 21, shared.Page{Page: 2, PageSize: 10})

	resp := NewPageResponse(page)

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, &Meta{Total: 21, Page: 2, PageSize: 10, TotalPages: 3}, resp.Meta)
}

func TestNewPageResponse_EmptyItemsEncodeAsArray(t *testing.T) {
	resp := NewPageResponse(shared.NewPaginated[int](nil, 0, shared.DefaultPage()))

	assert.Equal(t, []int{}, resp.Data)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "amount", Message: "Must be greater than 0"}}

	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, details, resp.Error.Details)
}
