package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethvouch/fee-manager/database"
)

// Error codes carried in the response envelope.
const (
	codeNotFound      = "NOT_FOUND"
	codeInvalidData   = "INVALID_DATA"
	codeConflict      = "CONFLICT"
	codeUnauthorized  = "UNAUTHORIZED"
	codeInternalError = "INTERNAL_ERROR"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func (s *Service) respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{Code: code, Message: message}}); err != nil {
		s.log.WithError(err).Error("couldn't write error response")
		http.Error(w, "", http.StatusInternalServerError)
	}
}

func (s *Service) respondAuthError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	code := codeUnauthorized
	if status >= http.StatusInternalServerError {
		code = codeInternalError
	}
	s.respondError(w, status, code, message)
}

// respondStoreError maps the store sentinels onto the wire taxonomy.
// Anything unexpected is logged in full and reported as a generic
// internal error.
func (s *Service) respondStoreError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.respondError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, database.ErrConflict):
		s.respondError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		s.log.WithError(err).Error(msg)
		s.respondError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
	}
}
