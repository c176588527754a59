package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/logger"
	"github.com/Uchennem/sleepoutsideServer/pkg/validator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorBody is the JSON body written for every failed request.
type ErrorBody struct {
	Error *ErrorResponse `json:"error"`
}

// ErrorResponse describes a failure.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code. Encoding errors are
// ignored because the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and error body. AppErrors carry their
// own code and status; bare sentinels are mapped through apperrors.HTTPStatus.
// Server-side failures are logged with the request-scoped logger when one is
// present in the context, otherwise with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, valErr, requestID)
		return
	}

	resp := &ErrorResponse{RequestID: requestID}
	var status int

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.Status
		resp.Code = appErr.Code
		resp.Message = appErr.Message
	} else {
		status = apperrors.HTTPStatus(err)
		resp.Code, resp.Message = sentinelBody(err)
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
		)
	}

	WriteJSON(w, status, ErrorBody{Error: resp})
}

func sentinelBody(err error) (code, message string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, apperrors.ErrMisconfigured):
		return "CONFIGURATION_ERROR", "server is misconfigured"
	default:
		return "INTERNAL_ERROR", "an internal error occurred"
	}
}

// WriteValidationError writes a 400 response. Constraint violations are
// reported per field; any other error becomes INVALID_INPUT with its message.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, valErr, requestID)
		return
	}

	WriteJSON(w, http.StatusBadRequest, ErrorBody{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}

func writeValidation(w http.ResponseWriter, valErr *validator.ValidationError, requestID string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{
		Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   valErr.Error(),
			Fields:    valErr.Fields(),
			RequestID: requestID,
		},
	})
}
