package handler

import (
	"encoding/json"
	"net/http"

	"smart-ocr-server/internal/domain"
	apperrors "smart-ocr-server/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps an application error to a JSON error response.
func writeError(w http.ResponseWriter, logger domain.Logger, err error) {
	statusCode := apperrors.GetStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", err)
	}
	writeJSON(w, statusCode, map[string]string{"error": err.Error()})
}

// decodeJSON decodes a JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON request body", err.Error())
	}
	return nil
}
