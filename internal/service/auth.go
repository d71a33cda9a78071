package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

const MinPasswordLength = 6

type AuthService struct {
	Users  UserRepo
	OTP    *OTPService
	Events events.Publisher
}

// NormalizeEmail trims and lower-cases an address and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required: %w", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("email is malformed: %w", ErrValidation)
	}
	return email, nil
}

// SendSignupCode issues a signup code for an address that is not yet registered.
func (s *AuthService) SendSignupCode(ctx context.Context, email string) (string, string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup_code")

	email, err := NormalizeEmail(email)
	if err != nil {
		return "", "", err
	}

	exists, err := s.Users.UserExists(ctx, email)
	if err != nil {
		l.Error("signup_code_error", "status", 500, "reason", "user lookup failed", "error", err)
		return "", "", err
	}
	if exists {
		l.Warn("signup_code_error", "status", 409, "reason", "email already registered")
		return "", "", fmt.Errorf("email already registered: %w", ErrConflict)
	}

	code, err := s.OTP.Issue(ctx, email)
	return email, code, err
}

// CompleteSignup checks the code and creates a verified customer.
func (s *AuthService) CompleteSignup(ctx context.Context, email, password, code string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, ErrValidation)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("code is required: %w", ErrValidation)
	}

	ok, err := s.OTP.Verify(ctx, email, code)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "otp verification failed", "error", err)
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: pwHash,
		IsVerified:   true,
		Role:         models.RoleCustomer,
	}
	if err := s.Users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("signup_error", "status", 409, "reason", "email already registered")
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		l.Error("signup_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	metrics.SignupsTotal.Inc()
	publish(ctx, s.Events, events.TopicUsers, fmt.Sprint(user.ID), events.UserSignedUp{
		Type:   events.TypeUserSignedUp,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now().UTC(),
	})

	l.Info("user_signed_up", "user_id", user.ID)
	return &user, nil
}

// Login accepts a registered email and its password. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	l.Info("login_ok", "user_id", user.ID, "role", user.Role)
	return user, nil
}
