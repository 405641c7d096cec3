// Package telegram provides Telegram notification services.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

// MaxMessageLength is the Bot API limit for a single text message.
const MaxMessageLength = 4096

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendMessage(ctx context.Context, cfg models.TelegramConfig, text string) (*models.TelegramResult, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient *http.Client
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: tele.DefaultApiURL,
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient *http.Client, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// SendMessage sends text as one or more plain-text messages to the chat.
func (s *Impl) SendMessage(ctx context.Context, cfg models.TelegramConfig, text string) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		result.Error = fmt.Errorf("invalid chat id %q: %w", cfg.ChatID, err)
		return result, nil
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     s.baseURL,
		Token:   cfg.BotToken,
		Client:  s.httpClient,
		Offline: true,
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to create bot: %w", redactToken(err, cfg.BotToken))
		return result, nil
	}

	parts := splitMessage(text, MaxMessageLength)

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Int("parts", len(parts)).
		Msg("sending Telegram notification")

	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			result.Error = err
			return result, nil
		}
		if _, err := bot.Send(tele.ChatID(chatID), part); err != nil {
			result.Error = fmt.Errorf("failed to send message part %d/%d: %w", i+1, len(parts), redactToken(err, cfg.BotToken))
			return result, nil
		}
		result.Parts++
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent successfully")

	return result, nil
}

// splitMessage breaks text into chunks of at most limit runes, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var parts []string
	var current []rune
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(current)+len(r) > limit && len(current) > 0 {
			parts = append(parts, strings.TrimRight(string(current), "\n"))
			current = nil
		}
		// A single line longer than the limit is hard-wrapped.
		for len(r) > limit {
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		current = append(current, r...)
	}
	if len(current) > 0 {
		parts = append(parts, strings.TrimRight(string(current), "\n"))
	}

	return parts
}

// redactToken strips the bot token from err. Transport errors quote the
// request URL, which carries the token in its path.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
