package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

// fail logs a failed handler outcome and returns the user-facing HTTP error.
func fail(l *slog.Logger, event string, err error) error {
	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		l.Error(event, "status", code, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", code, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrInvalidOTP):
		return http.StatusUnauthorized, "invalid or expired code"
	case errors.Is(err, service.ErrDuplicateName):
		return http.StatusConflict, "product name already exists"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrMailDelivery):
		return http.StatusBadGateway, "could not send the code, try again later"
	}
	return http.StatusInternalServerError, "internal error"
}

// validationMessage strips the sentinel suffix from "reason: validation".
func validationMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimSuffix(msg, ": "+service.ErrValidation.Error())
	if msg == "" || msg == service.ErrValidation.Error() {
		return "invalid request"
	}
	return msg
}
