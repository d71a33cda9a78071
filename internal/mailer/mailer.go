package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/logging"
)

// ErrDisabled is returned when no SMTP credentials are configured.
var ErrDisabled = errors.New("mail delivery disabled")

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns an SMTP sender, or a Disabled one when credentials are missing.
func New(cfg config.SMTPConfig) Sender {
	if !cfg.Enabled() {
		return Disabled{}
	}
	return &SMTP{cfg: cfg}
}

type SMTP struct {
	cfg config.SMTPConfig
}

func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}

// Disabled drops every message with a warning.
type Disabled struct{}

func (Disabled) Send(ctx context.Context, to, subject, _ string) error {
	logging.FromContext(ctx).Warn("mail_not_sent",
		"reason", "SMTP credentials not set, set SMTP_USER and SMTP_PASS",
		"to", to,
		"subject", subject,
	)
	return ErrDisabled
}
