package helpers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"townhall/internal/domain"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id set by the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// InternalError logs err with the request id and a stack trace and answers
// 500 with the generic message.
func InternalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestIDFromContext(r.Context()),
		"err", err,
		"stack", string(debug.Stack()),
	)
	WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, GenericErrorMessage)
}

// WriteServiceError maps a domain error to its HTTP response. Conflicts are
// answered with 200 so that the page can show them inline.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var conflict *domain.ConflictError
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &conflict):
		WriteJSONError(w, http.StatusOK, ErrCodeConflict, conflict.Error())
	case errors.As(err, &invalid):
		WriteJSONError(w, http.StatusBadRequest, invalid.Code, invalid.Message)
	case errors.Is(err, domain.ErrInvalidInput):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidSignature):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrGated):
		WriteJSONError(w, http.StatusForbidden, ErrCodeGated, "this event is invite only")
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInvalidToken):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicateEmail):
		WriteJSONError(w, http.StatusOK, ErrCodeConflict, err.Error())
	default:
		InternalError(w, r, logger, err)
	}
}
