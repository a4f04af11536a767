package api

import (
	"encoding/json"
	"net/http"

	"github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.NewInternalError(err)
	}
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	switch {
	case status >= 500:
		log.Error("server error: %v", appErr)
	case status >= 400:
		log.Warn("client error: %v", appErr)
	default:
		log.Debug("error: %v", appErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]errorBody{
		"error": {Code: appErr.Code, Message: appErr.Message},
	}); err != nil {
		log.Error("failed to encode error response: %v", err)
	}
}
