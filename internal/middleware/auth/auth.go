package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

// ValidatorFunc decides whether an authenticated identity may continue.
type ValidatorFunc func(id *session.Identity) error

// RequireLogin rejects anonymous sessions with 401. It expects the session
// middleware to have run.
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return requireWithValidator(next, nil)
}

// RequireAdmin additionally rejects non-admin identities with 403.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return requireWithValidator(next, func(id *session.Identity) error {
		if !id.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func requireWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := session.FromContext(c)
		if !st.Authenticated() {
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}

		if validator != nil {
			if err := validator(st.Identity); err != nil {
				logging.FromContext(c.Request().Context()).Warn("access_denied",
					"user_id", st.Identity.UserID, "role", st.Identity.Role, "path", c.Path())
				return err
			}
		}

		setUserContext(c, st.Identity)
		return next(c)
	}
}

func setUserContext(c echo.Context, id *session.Identity) {
	c.Set("user_id", id.UserID)
	c.Set("role", id.Role)
}
