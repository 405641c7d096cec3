// Package notifier delivers status messages through the configured channels.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/email"
	"github.com/fgeck/sbat-slotwatch/internal/services/status"
	"github.com/fgeck/sbat-slotwatch/internal/services/telegram"
	"github.com/rs/zerolog"
)

// Service defines the interface for multi-channel notifications.
type Service interface {
	Notify(ctx context.Context, cfg models.NotificationConfig, message string) []models.ChannelResult
}

// Impl implements the notifier Service interface.
type Impl struct {
	telegramSvc telegram.Service
	emailSvc    email.Service
	sink        status.Sink
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a new notifier that reports delivery outcomes to sink.
func New(logger zerolog.Logger, sink status.Sink) *Impl {
	return NewWithServices(logger, sink, telegram.New(logger), email.New(logger))
}

// NewWithServices creates a new notifier with custom channel services (for testing).
func NewWithServices(logger zerolog.Logger, sink status.Sink, telegramSvc telegram.Service, emailSvc email.Service) *Impl {
	if sink == nil {
		sink = status.Discard
	}
	return &Impl{
		telegramSvc: telegramSvc,
		emailSvc:    emailSvc,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
	}
}

// Notify sends message on every selected channel, Telegram first. A channel
// failure is recorded in its result and never prevents the next channel.
func (s *Impl) Notify(ctx context.Context, cfg models.NotificationConfig, message string) []models.ChannelResult {
	var results []models.ChannelResult

	if cfg.Channel.Includes(models.ChannelTelegram) {
		results = append(results, s.sendTelegram(ctx, cfg.Telegram, message))
	}
	if cfg.Channel.Includes(models.ChannelEmail) {
		results = append(results, s.sendEmail(ctx, cfg.Email, message))
	}

	return results
}

func (s *Impl) sendTelegram(ctx context.Context, cfg *models.TelegramConfig, message string) models.ChannelResult {
	res := models.ChannelResult{Channel: models.ChannelTelegram}

	if cfg == nil {
		return s.fail(res, fmt.Errorf("telegram is not configured"), "Failed to send Telegram notification")
	}

	result, err := s.telegramSvc.SendMessage(ctx, *cfg, message)
	if err == nil && result != nil {
		err = result.Error
	}
	if err != nil {
		return s.fail(res, err, "Failed to send Telegram notification")
	}

	res.Sent = true
	s.sink.Append(s.now(), "Telegram notification sent successfully")
	return res
}

func (s *Impl) sendEmail(ctx context.Context, cfg *models.EmailConfig, message string) models.ChannelResult {
	res := models.ChannelResult{Channel: models.ChannelEmail}

	if cfg == nil {
		return s.fail(res, fmt.Errorf("email is not configured"), "Failed to send email")
	}

	result, err := s.emailSvc.Send(ctx, *cfg, email.DefaultSubject, message)
	if err == nil && result != nil {
		err = result.Error
	}
	if err != nil {
		return s.fail(res, err, "Failed to send email")
	}

	res.Sent = true
	s.sink.Append(s.now(), "Email notification sent.")
	return res
}

func (s *Impl) fail(res models.ChannelResult, err error, prefix string) models.ChannelResult {
	res.Error = &models.NotificationError{Channel: res.Channel, Err: err}

	s.logger.Error().Err(err).Str("channel", string(res.Channel)).Msg("notification failed")
	s.sink.Append(s.now(), fmt.Sprintf("%s: %v", prefix, err))

	return res
}
