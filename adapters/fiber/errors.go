package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
)

var errInvalidBody = errors.New("invalid request body")

// handleError writes err as a JSON error. Unmapped errors are logged and
// reported as a generic 500.
func handleError(c fiber.Ctx, log logging.Logger, err error) error {
	status := mapErrorToStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error(c.Context(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
		msg = "internal server error"
	}
	return c.Status(status).JSON(core.ErrorResponse{Error: msg})
}

// mapErrorToStatus maps agora error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrMissingSession),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrSessionExpired),
		errors.Is(err, core.ErrInvalidResetToken),
		errors.Is(err, core.ErrOAuthEmailRequired),
		errors.Is(err, core.ErrOAuthRejected):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrForbidden),
		errors.Is(err, core.ErrNotOwner),
		errors.Is(err, core.ErrDeleteForbidden),
		errors.Is(err, core.ErrAdminRequired),
		errors.Is(err, core.ErrSelfRoleChange):
		return http.StatusForbidden

	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrUserExists):
		return http.StatusConflict

	case errors.Is(err, errInvalidBody),
		errors.Is(err, core.ErrEmailRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordTooLong),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrContentRequired),
		errors.Is(err, core.ErrTokenRequired),
		errors.Is(err, core.ErrUnsupportedProvider),
		errors.Is(err, core.ErrProviderDisabled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
