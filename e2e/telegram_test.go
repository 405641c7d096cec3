//go:build e2e

package e2e

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/telegram"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func getTelegramConfig(t *testing.T) models.TelegramConfig {
	t.Helper()

	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}

	chatID := os.Getenv("TEST_TELEGRAM_CHAT_ID")
	if chatID == "" {
		t.Skip("TEST_TELEGRAM_CHAT_ID not set")
	}

	return models.TelegramConfig{
		BotToken: botToken,
		ChatID:   chatID,
	}
}

func TestTelegramSendAvailableDates_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	svc := telegram.New(testLogger())

	result, err := svc.SendMessage(context.Background(), cfg, "Available dates found:\n12 October 2026\n14 October 2026")

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Equal(t, 1, result.Parts)
	assert.Nil(t, result.Error)
}

func TestTelegramSendLongMessage_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	svc := telegram.New(testLogger())

	line := strings.Repeat("x", 100)
	lines := make([]string, 60)
	for i := range lines {
		lines[i] = line
	}

	result, err := svc.SendMessage(context.Background(), cfg, strings.Join(lines, "\n"))

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Equal(t, 2, result.Parts)
}

func TestTelegramInvalidToken_E2E(t *testing.T) {
	cfg := models.TelegramConfig{
		BotToken: "invalid:token",
		ChatID:   "-100123456789",
	}

	svc := telegram.New(testLogger())

	result, err := svc.SendMessage(context.Background(), cfg, "No available dates found.")

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.NotNil(t, result.Error)
}

func TestTelegramInvalidChatID_E2E(t *testing.T) {
	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}

	cfg := models.TelegramConfig{
		BotToken: botToken,
		ChatID:   "invalid-chat-id",
	}

	svc := telegram.New(testLogger())

	result, err := svc.SendMessage(context.Background(), cfg, "No available dates found.")

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.NotNil(t, result.Error)
}
