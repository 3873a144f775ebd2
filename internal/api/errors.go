// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/civitas/internal/auth"
	"github.com/tomtom215/civitas/internal/ingest"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/navigation"
	"github.com/tomtom215/civitas/internal/validation"
)

// Error codes carried in APIError.Code.
const (
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeRunInProgress      = "RUN_IN_PROGRESS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// errorMapping is the HTTP rendering of one error class. Client errors
// echo the error text; server errors use a fixed message.
type errorMapping struct {
	status  int
	code    string
	message string
	details map[string]any
}

func classify(err error) errorMapping {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return errorMapping{status: http.StatusBadRequest, code: ErrCodeValidation, message: verr.Error(), details: verr.Details()}
	case errors.Is(err, models.ErrInvalidState):
		// Clients recover by falling back to the DEFAULT feed.
		return errorMapping{status: http.StatusConflict, code: ErrCodeInvalidState, message: err.Error(),
			details: map[string]any{"fallback_mode": string(models.ModeDefault)}}
	case errors.Is(err, models.ErrConfiguration):
		return errorMapping{status: http.StatusBadRequest, code: ErrCodeConfiguration, message: err.Error()}
	case errors.Is(err, ingest.ErrInvalidContent), errors.Is(err, navigation.ErrInvalidCursor):
		return errorMapping{status: http.StatusBadRequest, code: ErrCodeValidation, message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return errorMapping{status: http.StatusNotFound, code: ErrCodeNotFound, message: err.Error()}
	case errors.Is(err, models.ErrRateLimited):
		return errorMapping{status: http.StatusTooManyRequests, code: ErrCodeRateLimitExceeded, message: err.Error()}
	case errors.Is(err, models.ErrRunInProgress):
		return errorMapping{status: http.StatusConflict, code: ErrCodeRunInProgress, message: err.Error()}
	case errors.Is(err, models.ErrForbidden):
		return errorMapping{status: http.StatusForbidden, code: ErrCodeForbidden, message: err.Error()}
	case errors.Is(err, auth.ErrNoCredentials), errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrExpiredCredentials):
		return errorMapping{status: http.StatusUnauthorized, code: ErrCodeUnauthorized, message: err.Error()}
	default:
		return errorMapping{status: http.StatusServiceUnavailable, code: ErrCodeServiceUnavailable,
			message: "service temporarily unavailable, retry shortly"}
	}
}
