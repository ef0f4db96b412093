package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. A handler encounters an error
//  2. It calls respondError(w, r, err, statusFor(err))
//  3. The error is mapped via MapError to a user-friendly message
//  4. The technical error is logged with the request ID for correlation
//  5. The user message goes out as JSON

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lifecyclelab/ecolca/internal/dataset"
	"github.com/lifecyclelab/ecolca/internal/lca"
	"github.com/lifecyclelab/ecolca/internal/version"
)

// ErrorResponse is the JSON structure for API error responses. It
// carries both machine-readable (Code) and human-readable fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error server-side and returns the
// mapped user-friendly message to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, userMsg, statusCode)
}

func respondErrorJSON(w http.ResponseWriter, msg UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status from the error's type: absent
// resources map to 404, state conflicts to 409, rejected input to 400,
// and anything unrecognized to 500.
func statusFor(err error) int {
	var (
		formatErr     *dataset.FormatError
		validationErr *dataset.ValidationError
		missingErr    *lca.MissingEntryError
		invalidErr    *lca.InvalidAssessmentError
	)
	switch {
	case errors.Is(err, dataset.ErrDatabaseNotFound),
		errors.Is(err, dataset.ErrNoActiveDatabase),
		errors.Is(err, version.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrNoBackup),
		errors.Is(err, version.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, version.ErrInvalidName),
		errors.As(err, &formatErr),
		errors.As(err, &validationErr),
		errors.As(err, &missingErr),
		errors.As(err, &invalidErr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON encodes v and writes it with the given status. Encoding
// errors are logged; headers are already gone by then.
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// decodeJSON reads a JSON request body into dst. Failures come back
// with an "invalid request body" prefix so MapError files them as REQ001.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
