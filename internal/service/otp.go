package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mailer"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	OTPLength     = 6
	DefaultOTPTTL = 10 * time.Minute
	otpSubject    = "Your OTP code"
)

type OTPService struct {
	Repo   OTPRepo
	Mailer mailer.Sender
	TTL    time.Duration
	Now    func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultOTPTTL
}

func generateCode(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// Issue stores a fresh code for email and mails it. An unconfigured mailer
// only logs a warning; a failing one is reported while the code stays valid.
func (s *OTPService) Issue(ctx context.Context, email string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "otp.issue")

	ttl := s.ttl()
	otp := models.OTP{
		Email:     email,
		Code:      generateCode(OTPLength),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.Repo.CreateOTP(ctx, &otp); err != nil {
		l.Error("otp_issue_error", "status", 500, "reason", "cannot store code", "error", err)
		return "", fmt.Errorf("store otp: %w", err)
	}
	metrics.OTPIssuedTotal.Inc()

	body := fmt.Sprintf("Your OTP code is: %s\nIt expires in %d minutes.", otp.Code, int(ttl.Minutes()))
	if err := s.Mailer.Send(ctx, email, otpSubject, body); err != nil {
		if errors.Is(err, mailer.ErrDisabled) {
			l.Warn("otp_not_mailed", "reason", "smtp credentials not set")
			return otp.Code, nil
		}
		l.Error("otp_issue_error", "status", 502, "reason", "mail delivery failed", "error", err)
		return otp.Code, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	l.Info("otp_issued")
	return otp.Code, nil
}

// Verify reports whether code is a live code for email and consumes it.
// Only the caller whose delete removed the row wins.
func (s *OTPService) Verify(ctx context.Context, email, code string) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "otp.verify")

	rows, err := s.Repo.FindOTPs(ctx, email, code)
	if err != nil {
		return false, fmt.Errorf("find otp: %w", err)
	}

	now := s.now()
	for _, row := range rows {
		if row.ExpiresAt.Before(now) {
			continue
		}
		consumed, err := s.Repo.DeleteOTP(ctx, row.ID)
		if err != nil {
			return false, fmt.Errorf("consume otp: %w", err)
		}
		if consumed {
			metrics.OTPVerifyTotal.WithLabelValues("ok").Inc()
			return true, nil
		}
	}

	metrics.OTPVerifyTotal.WithLabelValues("rejected").Inc()
	l.Warn("otp_rejected", "status", 401, "reason", "no live matching code")
	return false, nil
}
