package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-api-auth/internal/domain"
)

// writeServiceError maps a service error to a status code. Authentication,
// missing-user and inactive-user failures all read "unauthorized" so a
// caller cannot tell them apart.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrState):
		slog.Debug("auth failure", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, "user already exists")
	case errors.Is(err, domain.ErrVerificationCodeInvalid):
		writeError(w, http.StatusConflict, "verification code invalid")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeSigninError collapses every credential failure into one response.
func writeSigninError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrAuthentication) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrState) {
		slog.Debug("signin rejected", "err", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeServiceError(w, r, err)
}
