package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ahmadqo/bengkel-pinjam/internal/apperror"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
)

// respondError menerjemahkan error service menjadi status HTTP. fallback
// dipakai untuk kegagalan yang tidak dikenal.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrInvalidRefresh) {
		response.Unauthorized(w, err.Error())
		return
	}

	appErr, ok := apperror.As(err)
	if !ok {
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		response.InternalError(w, fallback)
		return
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		response.Error(w, http.StatusBadRequest, appErr.Message, fieldsOrNil(appErr.Fields))
	case apperror.KindNotFound:
		response.NotFound(w, appErr.Message)
	case apperror.KindInvalidState, apperror.KindConflict:
		response.Conflict(w, appErr.Message)
	case apperror.KindForbidden:
		response.Error(w, http.StatusForbidden, appErr.Message, fieldsOrNil(appErr.Fields))
	case apperror.KindStore:
		slog.ErrorContext(r.Context(), "store failure", "path", r.URL.Path, "retryable", appErr.Retryable, "error", appErr.Err)
		if appErr.Retryable {
			response.ServiceUnavailable(w, "Layanan sedang sibuk, silakan coba lagi")
			return
		}
		response.InternalError(w, fallback)
	default:
		response.InternalError(w, fallback)
	}
}

func fieldsOrNil(fields map[string]string) interface{} {
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func parseIntQuery(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
