package funding

// RequestStatus represents the lifecycle state of a funding request
type RequestStatus string

const (
	RequestStatusDraftLocal           RequestStatus = "DRAFT_LOCAL"            // Prepared locally, not yet sent
	RequestStatusSubmittedToAuthority RequestStatus = "SUBMITTED_TO_AUTHORITY" // Recorded as sent to the central authority
	RequestStatusUnderReview          RequestStatus = "UNDER_REVIEW"
	RequestStatusApproved             RequestStatus = "APPROVED"
	RequestStatusDisbursed            RequestStatus = "DISBURSED"
	RequestStatusRejected             RequestStatus = "REJECTED"
	RequestStatusCancelled            RequestStatus = "CANCELLED"
)

// AllRequestStatuses lists every status in lifecycle order
var AllRequestStatuses = []RequestStatus{
	RequestStatusDraftLocal,
	RequestStatusSubmittedToAuthority,
	RequestStatusUnderReview,
	RequestStatusApproved,
	RequestStatusDisbursed,
	RequestStatusRejected,
	RequestStatusCancelled,
}

// IsValid checks if the status is a valid RequestStatus
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusDraftLocal, RequestStatusSubmittedToAuthority, RequestStatusUnderReview,
		RequestStatusApproved, RequestStatusDisbursed, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

func (s RequestStatus) String() string {
	return string(s)
}

// IsTerminal returns true for absorbing states
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusDisbursed || s == RequestStatusRejected || s == RequestStatusCancelled
}

// IsEditable returns true while the request may still be updated or deleted
func (s RequestStatus) IsEditable() bool {
	return s == RequestStatusDraftLocal
}

func (s RequestStatus) CanSubmit() bool {
	return s == RequestStatusDraftLocal
}

func (s RequestStatus) CanMarkUnderReview() bool {
	return s == RequestStatusSubmittedToAuthority || s == RequestStatusUnderReview
}

// CanDecide returns true if the authority can approve or reject the request
func (s RequestStatus) CanDecide() bool {
	return s == RequestStatusSubmittedToAuthority || s == RequestStatusUnderReview
}

func (s RequestStatus) CanDisburse() bool {
	return s == RequestStatusApproved
}

// CanCancel returns true if the request can be cancelled locally.
// Once submitted, only the authority can end the request.
func (s RequestStatus) CanCancel() bool {
	return s == RequestStatusDraftLocal
}

// HasApproval returns true once approval metadata must be present
func (s RequestStatus) HasApproval() bool {
	return s == RequestStatusApproved || s == RequestStatusDisbursed
}
