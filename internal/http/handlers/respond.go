package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/lifecycle"
)

const maxBodyBytes = 64 << 10

// statusClientClosedRequest is nginx's code for a client that hung up first
const statusClientClosedRequest = 499

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message, Code: code})
}

// statusFor maps a lifecycle error kind onto an HTTP status
func statusFor(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindInvalidInput:
		return http.StatusBadRequest
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	case lifecycle.KindConflict:
		return http.StatusConflict
	case lifecycle.KindUnauthorized, lifecycle.KindInvalidCredential:
		return http.StatusUnauthorized
	case lifecycle.KindForbidden:
		return http.StatusForbidden
	case lifecycle.KindExpired:
		return http.StatusGone
	case lifecycle.KindTimeout:
		return http.StatusServiceUnavailable
	case lifecycle.KindCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes a lifecycle failure. Internal details never reach the client.
func respondWithServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var le *lifecycle.Error
	if !errors.As(err, &le) || le.Kind == lifecycle.KindInvariantViolation {
		log.Error("request failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, lifecycle.CodeOf(err), "internal server error")
		return
	}
	if le.Kind == lifecycle.KindTimeout {
		w.Header().Set("Retry-After", "1")
	}
	respondWithError(w, statusFor(le.Kind), le.Code, le.Message)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		respondWithError(w, http.StatusBadRequest, "invalid_input", msg)
		return false
	}
	return true
}

// lockerIDParam parses the {lockerID} route parameter
func lockerIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "lockerID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_input", "invalid locker id")
		return uuid.Nil, false
	}
	return id, true
}
