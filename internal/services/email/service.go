// Package email provides SMTP notification services.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// DefaultSubject is the subject line of every notification email.
const DefaultSubject = "Exam Availability Notification"

// Service defines the interface for email notification operations.
type Service interface {
	Send(ctx context.Context, cfg models.EmailConfig, subject, body string) (*models.EmailResult, error)
}

// Sender delivers a prepared message over SMTP.
type Sender interface {
	DialAndSend(ctx context.Context, cfg models.EmailConfig, msg *mail.Msg) error
}

// DefaultSender is the default Sender, backed by go-mail.
type DefaultSender struct {
	Timeout time.Duration
}

// DialAndSend connects to the configured server, authenticates with the
// sender credentials and sends msg.
func (d *DefaultSender) DialAndSend(ctx context.Context, cfg models.EmailConfig, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
	}
	if d.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(d.Timeout))
	}
	if cfg.Security == models.SecuritySSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	return nil
}

// Impl implements the email Service interface.
type Impl struct {
	sender Sender
	logger zerolog.Logger
}

// New creates a new email service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		sender: &DefaultSender{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// NewWithSender creates a new email service with a custom sender (for testing).
func NewWithSender(logger zerolog.Logger, sender Sender) *Impl {
	return &Impl{
		sender: sender,
		logger: logger,
	}
}

// Send delivers body as a plain-text email from the configured sender to
// the configured recipient.
func (s *Impl) Send(ctx context.Context, cfg models.EmailConfig, subject, body string) (*models.EmailResult, error) {
	result := &models.EmailResult{}

	s.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("security", string(cfg.Security)).
		Str("recipient", cfg.Recipient).
		Msg("sending email notification")

	msg, err := buildMessage(cfg, subject, body)
	if err != nil {
		result.Error = err
		return result, nil
	}

	if err := s.sender.DialAndSend(ctx, cfg, msg); err != nil {
		result.Error = err
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("email notification sent successfully")

	return result, nil
}

func buildMessage(cfg models.EmailConfig, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(cfg.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(cfg.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
