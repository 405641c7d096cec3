package models

// Channel selects where notifications are delivered.
type Channel string

// Supported notification channels.
const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
	ChannelBoth     Channel = "both"
)

// Includes reports whether the selection c covers the single channel other.
func (c Channel) Includes(other Channel) bool {
	return c == other || c == ChannelBoth
}

// Valid reports whether c is a supported selection.
func (c Channel) Valid() bool {
	switch c {
	case ChannelTelegram, ChannelEmail, ChannelBoth:
		return true
	}
	return false
}

// NotificationConfig holds the channel selection and per-channel settings.
type NotificationConfig struct {
	Channel  Channel
	Telegram *TelegramConfig // nil if not configured
	Email    *EmailConfig    // nil if not configured
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// EmailSecurity is the SMTP transport security mode.
type EmailSecurity string

// Supported SMTP transport security modes.
const (
	SecurityStartTLS EmailSecurity = "starttls"
	SecuritySSL      EmailSecurity = "ssl"
)

// EmailConfig holds SMTP notification configuration.
type EmailConfig struct {
	Sender    string
	Password  string
	Recipient string
	Host      string
	Port      int
	Security  EmailSecurity
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Parts       int // number of messages the text was split into
	Error       error
}

// EmailResult holds the result of an email notification.
type EmailResult struct {
	MessageSent bool
	Error       error
}

// ChannelResult is the outcome of one channel during a notification.
type ChannelResult struct {
	Channel Channel
	Sent    bool
	Error   error
}
