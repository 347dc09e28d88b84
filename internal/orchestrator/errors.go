package orchestrator

import "net/http"

// Error is a structured orchestrator error carrying a stable machine-readable
// code and the HTTP status the API layer should map it to.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Structured errors returned by operation entry points. These are request
// outcomes, not internal faults; handlers translate them directly to
// responses.
var (
	// ErrInfrastructureDestroyed rejects any operation against an
	// infrastructure that has already been torn down. Destroyed
	// infrastructure is never resurrected.
	ErrInfrastructureDestroyed = &Error{
		Code:       "infrastructure_destroyed",
		Message:    "infrastructure has been destroyed",
		HTTPStatus: http.StatusGone,
	}

	// ErrInfrastructureNotActive rejects updates while another operation is
	// running or after a failed create left the aggregate in error state
	ErrInfrastructureNotActive = &Error{
		Code:       "infrastructure_not_active",
		Message:    "infrastructure is not in active state",
		HTTPStatus: http.StatusConflict,
	}

	// ErrDestroyInProgress rejects a second destroy while one is running
	ErrDestroyInProgress = &Error{
		Code:       "destroy_in_progress",
		Message:    "infrastructure destroy already in progress",
		HTTPStatus: http.StatusConflict,
	}

	// ErrInvalidRequest rejects malformed create and update requests
	ErrInvalidRequest = &Error{
		Code:       "invalid_request",
		Message:    "request validation failed",
		HTTPStatus: http.StatusBadRequest,
	}
)

// invalidRequest builds a request-validation error with a specific message
func invalidRequest(message string) *Error {
	return &Error{
		Code:       ErrInvalidRequest.Code,
		Message:    message,
		HTTPStatus: ErrInvalidRequest.HTTPStatus,
	}
}
