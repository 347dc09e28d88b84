// Package handlers implements the HTTP handlers of the overcast API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/orchestrator"
	"github.com/overcast-io/overcast/pkg/logging"
)

var responseLogger = logging.NewLogger("api-response")

// ErrorResponse is the error envelope every failing endpoint returns
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		responseLogger.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps orchestrator errors to HTTP responses
func writeServiceError(w http.ResponseWriter, err error) {
	var oerr *orchestrator.Error
	switch {
	case errors.As(err, &oerr):
		writeError(w, oerr.HTTPStatus, oerr.Code, oerr.Message)
	case errors.Is(err, interfaces.ErrInfrastructureNotFound):
		writeError(w, http.StatusNotFound, "infrastructure_not_found", err.Error())
	case errors.Is(err, interfaces.ErrOperationNotFound):
		writeError(w, http.StatusNotFound, "operation_not_found", err.Error())
	case errors.Is(err, interfaces.ErrProviderNotConfigured):
		writeError(w, http.StatusUnprocessableEntity, "provider_not_configured", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
