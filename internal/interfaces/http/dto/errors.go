package dto

import (
	"net/http"

	"github.com/banper/backend/internal/domain/shared"
)

// Error codes returned in ErrorInfo.Code when the failure is not a domain error.
// Domain errors carry their own code (e.g. ALLOCATION_NOT_WRITABLE).
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeInvalidScope = "ERR_INVALID_SCOPE"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeBusy         = "ERR_BUSY"
)

// kindHTTPStatus maps each domain error kind to its HTTP status
var kindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidationFailed:      http.StatusBadRequest,
	shared.KindNotFound:              http.StatusNotFound,
	shared.KindConflict:              http.StatusConflict,
	shared.KindInvalidState:          http.StatusUnprocessableEntity,
	shared.KindImmutableRecord:       http.StatusUnprocessableEntity,
	shared.KindConservationViolation: http.StatusUnprocessableEntity,
}

// StatusForKind returns the HTTP status for a domain error kind, 500 if unknown
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
