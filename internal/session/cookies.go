package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// accessCookie carries the signed identity token. An empty token with a
// zero expiry produces the expiring variant that clears it.
func (m *Manager) accessCookie(token string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     AccessCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		ck.Expires = time.Unix(0, 0)
		ck.MaxAge = -1
	}
	return ck
}

func (m *Manager) clearAccessCookie(c echo.Context) {
	c.SetCookie(m.accessCookie("", time.Time{}))
}
