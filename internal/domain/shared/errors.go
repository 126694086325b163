package shared

import "errors"

// ErrorKind classifies a domain error. Callers branch on the kind, never on the message.
type ErrorKind string

const (
	KindInvalidState          ErrorKind = "INVALID_STATE"
	KindValidationFailed      ErrorKind = "VALIDATION_FAILED"
	KindConservationViolation ErrorKind = "CONSERVATION_VIOLATION"
	KindImmutableRecord       ErrorKind = "IMMUTABLE_RECORD"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindConflict              ErrorKind = "CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError of the same kind.
// A target with an empty Code matches every error of its kind, which lets the
// sentinels below be used with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Kind sentinels, usable with errors.Is
var (
	ErrInvalidState          = &DomainError{Kind: KindInvalidState, Message: "Operation not allowed in current state"}
	ErrValidationFailed      = &DomainError{Kind: KindValidationFailed, Message: "Invalid input provided"}
	ErrConservationViolation = &DomainError{Kind: KindConservationViolation, Message: "Operation would break money conservation"}
	ErrImmutableRecord       = &DomainError{Kind: KindImmutableRecord, Message: "Record can no longer be modified"}
	ErrNotFound              = &DomainError{Kind: KindNotFound, Message: "Resource not found"}
	ErrConflict              = &DomainError{Kind: KindConflict, Message: "Resource was modified by another process"}
)

// Constructors used across the domain packages

func NewInvalidStateError(code, message string) *DomainError {
	return NewDomainError(KindInvalidState, code, message)
}

func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidationFailed, code, message)
}

func NewConservationError(code, message string) *DomainError {
	return NewDomainError(KindConservationViolation, code, message)
}

func NewImmutableError(code, message string) *DomainError {
	return NewDomainError(KindImmutableRecord, code, message)
}

func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// KindOf returns the kind of a domain error anywhere in err's chain, or "" for
// infrastructure errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation after
// re-reading state. Only conservation violations and lost races qualify.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConservationViolation, KindConflict:
		return true
	}
	return false
}
