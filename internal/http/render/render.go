// Package render holds the request decoding and response helpers shared by
// the API handlers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/validation"
)

var validate = validation.New()

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return validate.Struct(v)
}

// BadRequest answers 422 with the failed fields for validation errors and
// 400 with the message otherwise.
func BadRequest(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	JSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func Unprocessable(w http.ResponseWriter, err error) {
	JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
}

func NotFound(w http.ResponseWriter, what string) {
	http.Error(w, what+" not found", http.StatusNotFound)
}

// InternalError logs err and answers with a generic message.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// IDParam parses the named URL parameter as a UUID, answering 400 when it is
// malformed.
func IDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}
