package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthHTTP struct {
	Svc      *service.AuthService
	Sessions *session.Manager
	// EchoOTP returns the issued code in the response. Development only.
	EchoOTP bool
}

func (h *AuthHTTP) SendSignupCode(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup_code")
	st := session.FromContext(c)

	var req transport.SignupCodeRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_code_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	email, code, err := h.Svc.SendSignupCode(ctx, req.Email)
	if err != nil && !errors.Is(err, service.ErrMailDelivery) {
		return fail(l, "signup_code_error", err)
	}

	// the stored code stays valid even when delivery failed
	st.Signup = &session.Signup{Email: email, SentAt: time.Now().UTC()}
	if serr := h.Sessions.Save(c, st); serr != nil {
		return fail(l, "signup_code_error", serr)
	}
	if err != nil {
		return fail(l, "signup_code_error", err)
	}

	resp := transport.SignupCodeResponse{Email: email, Message: "code sent"}
	if h.EchoOTP {
		resp.Code = code
	}
	l.Info("signup_code_sent")
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHTTP) VerifySignup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup_verify")
	st := session.FromContext(c)

	var req transport.SignupVerifyRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_verify_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	email := strings.TrimSpace(req.Email)
	if email == "" && st.Signup != nil {
		email = st.Signup.Email
	}
	if email == "" {
		l.Warn("signup_verify_error", "status", 400, "reason", "no signup in progress")
		return echo.NewHTTPError(http.StatusBadRequest, "request a code first")
	}

	user, err := h.Svc.CompleteSignup(ctx, email, req.Password, req.Code)
	if err != nil {
		return fail(l, "signup_verify_error", err)
	}

	st.Signup = nil
	if err := h.Sessions.Save(c, st); err != nil {
		l.Warn("session_save_failed", "error", err)
	}

	l.Info("signup_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")
	st := session.FromContext(c)

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_error", err)
	}

	id := session.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
	if err := h.Sessions.SignIn(c, st, id); err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, transport.IdentityResponse{Identity: st.Identity, IsAdmin: id.IsAdmin()})
}

// Logout always succeeds; it clears identity, cart and signup progress.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")
	st := session.FromContext(c)

	if err := h.Sessions.SignOut(c, st); err != nil {
		l.Warn("session_save_failed", "error", err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	st := session.FromContext(c)
	return c.JSON(http.StatusOK, transport.IdentityResponse{Identity: st.Identity, IsAdmin: st.Identity.IsAdmin()})
}
