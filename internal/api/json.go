package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields"`
}

// dataResponse wraps list payloads.
type dataResponse struct {
	Data any `json:"data"`
}

// decodeBody reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, dst validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return validate(w, dst)
}

func validate(w http.ResponseWriter, v validation.Validatable) bool {
	err := v.Validate()
	if err == nil {
		return true
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: fields})
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	return false
}

// writeError maps service errors to HTTP responses. Unknown errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, err error, op string, attrs ...slog.Attr) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrIsDirectory):
		writeJSON(w, http.StatusBadRequest, errorBody("path is a directory"))
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		args := []any{slog.String("error", err.Error())}
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(op+" failed", args...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
