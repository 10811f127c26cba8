package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/inkpress/inkpress/internal/shared"
	"github.com/inkpress/inkpress/internal/users"
)

// RespondError maps a domain error to its HTTP status and error envelope.
// Every route goes through this mapping; no handler formats errors itself.
// Infrastructure failures are reported with a fixed generic message and the
// underlying cause only reaches the log.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validation users.ValidationError
	switch {
	case errors.Is(err, users.ErrResendCooldown):
		Error(w, http.StatusTooManyRequests, users.ErrResendCooldown.Error())
	case errors.As(err, &validation):
		Error(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, users.ErrUserNotFound):
		Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, users.ErrUsernameExists):
		Error(w, http.StatusConflict, "username already exists")
	case errors.Is(err, users.ErrEmailExists):
		Error(w, http.StatusConflict, "email already exists")
	case errors.Is(err, users.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, shared.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, "forbidden")
	default:
		if logger != nil {
			logger.Error("internal error", slog.Any("error", err))
		}
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
