package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

// ContextKey holds the current token so forms can embed it.
const ContextKey = "csrf_token"

const tokenBytes = 32

type Config struct {
	CookieName string
	HeaderName string
	FormField  string

	CookiePath string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	// EnforceSameOrigin additionally requires an Origin or Referer that
	// matches the request host on unsafe methods.
	EnforceSameOrigin bool

	SkipPaths []string
}

func (cfg Config) withDefaults() Config {
	if cfg.CookieName == "" {
		cfg.CookieName = "XSRF-TOKEN"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-CSRF-Token"
	}
	if cfg.FormField == "" {
		cfg.FormField = ContextKey
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return cfg
}

// Middleware guards cart, auth and admin mutations with a double-submit
// token: every response refreshes the readable cookie, and unsafe requests
// must send the same value back in the header or the form.
func Middleware(cfg Config) echo.MiddlewareFunc {
	cfg = cfg.withDefaults()

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skip[req.URL.Path] {
				return next(c)
			}

			token, err := cfg.issue(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "cannot issue csrf token")
			}

			if safeMethod(req.Method) {
				c.Response().Header().Set(cfg.HeaderName, token)
				return next(c)
			}

			if reason := cfg.reject(c, token); reason != "" {
				logging.FromContext(req.Context()).Warn("csrf_rejected", "status", 403, "reason", reason)
				return echo.NewHTTPError(http.StatusForbidden, reason)
			}
			return next(c)
		}
	}
}

// issue reuses the caller's token or mints one, and refreshes the cookie.
func (cfg Config) issue(c echo.Context) (string, error) {
	var token string
	if ck, err := c.Request().Cookie(cfg.CookieName); err == nil {
		token = ck.Value
	}
	if token == "" {
		b := make([]byte, tokenBytes)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		token = base64.RawURLEncoding.EncodeToString(b)
	}

	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		SameSite: cfg.SameSite,
	})
	c.Set(ContextKey, token)
	return token, nil
}

// reject returns a non-empty reason when the unsafe request must not pass.
func (cfg Config) reject(c echo.Context, token string) string {
	req := c.Request()
	if cfg.EnforceSameOrigin && !sameOrigin(req) {
		return "invalid origin"
	}

	sent := req.Header.Get(cfg.HeaderName)
	if sent == "" {
		sent = c.FormValue(cfg.FormField)
	}
	if sent == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sent)) != 1 {
		return "invalid csrf token"
	}
	return ""
}

func safeMethod(m string) bool {
	switch strings.ToUpper(m) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func sameOrigin(r *http.Request) bool {
	src := r.Header.Get("Origin")
	if src == "" {
		src = r.Header.Get("Referer")
	}
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}

	scheme := "http"
	switch {
	case r.Header.Get("X-Forwarded-Proto") != "":
		scheme = r.Header.Get("X-Forwarded-Proto")
	case r.TLS != nil:
		scheme = "https"
	}
	return strings.EqualFold(u.Scheme, scheme) && strings.EqualFold(u.Host, r.Host)
}
