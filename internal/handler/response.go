package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/domain"
)

// errorBody is the uniform error envelope: {"error":{"status":...,"message":...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the error taxonomy onto HTTP statuses and emits the
// uniform envelope. Internal errors are logged and their details hidden
// from clients.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	message := domain.ErrInternal.Error()

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
		message = vErr.Error()
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	default:
		logger.Error().Err(err).Msg("request failed")
	}

	writeJSON(w, status, errorBody{Error: errorDetail{Status: status, Message: message}})
}

// decodeBody decodes a JSON request body into a document.
// A missing or malformed body is a bad request.
func decodeBody(r *http.Request) (domain.Document, error) {
	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		return nil, domain.ErrBadRequest
	}
	return doc, nil
}
