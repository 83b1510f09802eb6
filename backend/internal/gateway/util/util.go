// ============================================================================
// backend/internal/gateway/util/util.go
// HTTP response helpers and service error mapping
// ============================================================================

package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"sgms_backend/backend/internal/shared"
	"sgms_backend/backend/internal/upload"
)

// ErrorResponse is the uniform error payload shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// ExtractToken pulls the bearer token from the Authorization header.
func ExtractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header must be in the format: Bearer <token>")
	}

	return parts[1], nil
}

// HandleServiceError maps service-layer errors to HTTP status codes and
// writes the response. Unrecognized errors become a 500 with a generic
// message; the underlying cause goes to the log, not the client.
func HandleServiceError(w http.ResponseWriter, err error) {
	var missingCols *upload.MissingColumnsError

	switch {
	case errors.Is(err, shared.ErrNotAssigned):
		WriteJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrSubjectNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrNoActiveSchoolYear),
		errors.Is(err, upload.ErrNoRows),
		errors.As(err, &missingCols):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
