package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/civicore/community-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. The error
// string is stable and machine-readable: clients branch on it to decide
// between re-login, a validation message, or giving up.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors map to deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, domain.ErrReservedName):
		return http.StatusUnprocessableEntity, "username is reserved"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrHabitNotFound):
		return http.StatusNotFound, "habit not found"
	case errors.Is(err, domain.ErrBusNotFound):
		return http.StatusNotFound, "bus not found"
	case errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound, "ticket not found"
	case errors.Is(err, domain.ErrPartyNotFound):
		return http.StatusNotFound, "party not found"
	case errors.Is(err, domain.ErrVoteNotFound):
		return http.StatusNotFound, "no vote found"
	case errors.Is(err, domain.ErrDuplicateBus):
		return http.StatusConflict, "bus number already exists"
	case errors.Is(err, domain.ErrDuplicateParty):
		return http.StatusConflict, "party name already exists"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusConflict, "not enough seats available"
	case errors.Is(err, domain.ErrBusInactive):
		return http.StatusUnprocessableEntity, "bus is not active"
	case errors.Is(err, domain.ErrBusHasTickets):
		return http.StatusUnprocessableEntity, "bus has active tickets"
	case errors.Is(err, domain.ErrTicketCanceled):
		return http.StatusUnprocessableEntity, "ticket is already canceled"
	case errors.Is(err, domain.ErrConflictingUpdate):
		return http.StatusConflict, "conflicting concurrent update, retry"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
