package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the wire format
// stays uniform. Errors always have the same shape:
//
//	{"error": "share link has expired", "code": "expired"}
//
// "error" is for people, "code" is for programs. Validation errors also carry
// the offending field.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-vault/internal/apperror"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error to its HTTP status and machine code.
//
// ERROR MAPPING:
// The service layer knows nothing about HTTP. Expired and LimitReached both
// mean "this link is gone for good" (410) but keep distinct codes, so a
// client can tell them apart from each other and from an unknown token (404).
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrExpired):
		return http.StatusGone, "expired"
	case errors.Is(err, apperror.ErrLimitReached):
		return http.StatusGone, "limit_reached"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError translates err for the client. Anything that is not an
// *apperror.AppError is a 500 with a generic message; the real error only
// goes to the log, since it may contain SQL or file paths.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "an internal error occurred",
			Code:  "internal_error",
		})
		return
	}

	status, code := errorStatus(appErr)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, ErrorResponse{
		Error: appErr.Message,
		Code:  code,
		Field: appErr.Field,
	})
}

type successResponse struct {
	Success bool `json:"success"`
}

var success = successResponse{Success: true}
