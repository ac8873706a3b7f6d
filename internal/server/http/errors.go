package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/errs"
)

// Error codes carried in the response body.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// writeError is the only place where a failure becomes a status code.
// Unknown errors are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code, msg := http.StatusInternalServerError, CodeInternal, "internal error"

	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		status, code, msg = http.StatusBadRequest, CodeValidation, ve.Error()
	case errors.Is(err, errs.ErrValidation):
		status, code, msg = http.StatusBadRequest, CodeValidation, "validation failed"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, code, msg = http.StatusBadRequest, CodeValidation, "already exists"
	case errors.Is(err, errs.ErrUnauthorized):
		status, code, msg = http.StatusUnauthorized, CodeUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrBadCredentials):
		status, code, msg = http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials"
	case errors.Is(err, errs.ErrNotFound):
		status, code, msg = http.StatusNotFound, CodeNotFound, "not found"
	case errors.Is(err, errs.ErrRateLimited):
		status, code, msg = http.StatusTooManyRequests, CodeRateLimited, "too many failed login attempts, try again later"
	default:
		log.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromCtx(r.Context())),
		)
	}

	writeJSON(w, status, ErrorResponse{Code: code, Message: msg, RequestID: RequestIDFromCtx(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type messageResponse struct {
	Message string `json:"message"`
}
