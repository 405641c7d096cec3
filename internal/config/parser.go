// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Defaults applied when a field is absent.
const (
	DefaultIntervalMinutes = 15
	DefaultMonthsToCheck   = 4
	DefaultBaseURL         = "https://rijbewijs.sbat.be/praktijk/examen"
	DefaultCenter          = "Sint-Denijs-Westrem"
	DefaultLicenseType     = "B - Personenauto"
	DefaultVehicle         = "Eigen voertuig"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	cfg.Account = models.AccountConfig{
		Email:    p.expandEnv(p.v.GetString("account.email")),
		Password: p.expandEnv(p.v.GetString("account.password")),
	}

	cfg.Exam = models.ExamConfig{
		Center:      p.v.GetString("exam.center"),
		LicenseType: p.v.GetString("exam.license_type"),
		Vehicle:     p.v.GetString("exam.vehicle"),
	}
	if cfg.Exam.Center == "" {
		cfg.Exam.Center = DefaultCenter
	}
	if cfg.Exam.LicenseType == "" {
		cfg.Exam.LicenseType = DefaultLicenseType
	}
	if cfg.Exam.Vehicle == "" {
		cfg.Exam.Vehicle = DefaultVehicle
	}

	// A blank, malformed or non-positive interval falls back to the default.
	minutes := p.v.GetInt("poll.interval_minutes")
	if minutes < 1 {
		minutes = DefaultIntervalMinutes
	}
	cfg.Poll = models.PollConfig{
		Interval:      time.Duration(minutes) * time.Minute,
		Schedule:      strings.TrimSpace(p.v.GetString("poll.schedule")),
		MonthsToCheck: p.v.GetInt("poll.months_to_check"),
		MaxAttempts:   p.v.GetInt("poll.max_attempts"),
		RetryBackoff:  p.v.GetDuration("poll.retry_backoff"),
	}
	if cfg.Poll.MonthsToCheck == 0 {
		cfg.Poll.MonthsToCheck = DefaultMonthsToCheck
	}
	if cfg.Poll.MaxAttempts == 0 {
		cfg.Poll.MaxAttempts = 1
	}
	if cfg.Poll.RetryBackoff == 0 {
		cfg.Poll.RetryBackoff = 30 * time.Second
	}

	cfg.Browser = models.BrowserConfig{
		BaseURL:         strings.TrimRight(p.v.GetString("browser.base_url"), "/"),
		Browser:         strings.ToLower(p.v.GetString("browser.browser")),
		Headless:        true,
		InstallBrowsers: p.v.GetBool("browser.install"),
		LoginTimeout:    p.v.GetDuration("browser.login_timeout"),
		ElementTimeout:  p.v.GetDuration("browser.element_timeout"),
		PollInterval:    p.v.GetDuration("browser.poll_interval"),
		SettleDelay:     p.v.GetDuration("browser.settle_delay"),
	}
	if p.v.IsSet("browser.headless") {
		cfg.Browser.Headless = p.v.GetBool("browser.headless")
	}
	if cfg.Browser.BaseURL == "" {
		cfg.Browser.BaseURL = DefaultBaseURL
	}
	if cfg.Browser.Browser == "" {
		cfg.Browser.Browser = "chromium"
	}
	validBrowsers := map[string]bool{"chromium": true, "firefox": true, "webkit": true}
	if !validBrowsers[cfg.Browser.Browser] {
		return nil, &models.ConfigurationError{Field: "browser.browser", Reason: "must be one of: chromium, firefox, webkit"}
	}
	if cfg.Browser.LoginTimeout == 0 {
		cfg.Browser.LoginTimeout = 20 * time.Second
	}
	if cfg.Browser.ElementTimeout == 0 {
		cfg.Browser.ElementTimeout = 10 * time.Second
	}
	if cfg.Browser.PollInterval == 0 {
		cfg.Browser.PollInterval = 250 * time.Millisecond
	}
	if !p.v.IsSet("browser.settle_delay") {
		cfg.Browser.SettleDelay = time.Second
	}

	cfg.Notification = models.NotificationConfig{
		Channel: models.Channel(strings.ToLower(p.v.GetString("notification.channel"))),
	}
	if cfg.Notification.Channel == "" {
		cfg.Notification.Channel = models.ChannelTelegram
	}
	if !cfg.Notification.Channel.Valid() {
		return nil, &models.ConfigurationError{Field: "notification.channel", Reason: "must be one of: telegram, email, both"}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("notification.telegram") {
		cfg.Notification.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("notification.telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("notification.telegram.chat_id")),
		}
	}

	// Parse optional email config.
	if p.v.IsSet("notification.email") { //nolint:nestif // config parsing with defaults
		cfg.Notification.Email = &models.EmailConfig{
			Sender:    p.expandEnv(p.v.GetString("notification.email.sender")),
			Password:  p.expandEnv(p.v.GetString("notification.email.password")),
			Recipient: p.expandEnv(p.v.GetString("notification.email.recipient")),
			Host:      p.v.GetString("notification.email.host"),
			Port:      p.v.GetInt("notification.email.port"),
			Security:  models.EmailSecurity(strings.ToLower(p.v.GetString("notification.email.security"))),
		}

		if cfg.Notification.Email.Security == "" {
			cfg.Notification.Email.Security = models.SecuritySSL
		}
		switch cfg.Notification.Email.Security {
		case models.SecuritySSL:
			if cfg.Notification.Email.Port == 0 {
				cfg.Notification.Email.Port = 465
			}
		case models.SecurityStartTLS:
			if cfg.Notification.Email.Port == 0 {
				cfg.Notification.Email.Port = 587
			}
		default:
			return nil, &models.ConfigurationError{Field: "notification.email.security", Reason: "must be one of: ssl, starttls"}
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration. Every failure
// is reported as a *models.ConfigurationError.
//
//nolint:gocognit,gocyclo // one check per required field
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return &models.ConfigurationError{Field: "configuration", Reason: "is nil"}
	}

	if cfg.Account.Email == "" {
		return required("account.email")
	}
	if cfg.Account.Password == "" {
		return required("account.password")
	}

	if !models.IsKnownCenter(cfg.Exam.Center) {
		return &models.ConfigurationError{
			Field:  "exam.center",
			Reason: "must be one of: " + strings.Join(models.KnownCenters, ", "),
		}
	}

	if cfg.Poll.Interval < time.Minute {
		return &models.ConfigurationError{Field: "poll.interval_minutes", Reason: "must be at least 1"}
	}
	if cfg.Poll.MonthsToCheck < 1 {
		return &models.ConfigurationError{Field: "poll.months_to_check", Reason: "must be at least 1"}
	}
	if cfg.Poll.MaxAttempts < 1 {
		return &models.ConfigurationError{Field: "poll.max_attempts", Reason: "must be at least 1"}
	}
	if cfg.Poll.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Poll.Schedule); err != nil {
			return &models.ConfigurationError{Field: "poll.schedule", Reason: fmt.Sprintf("is not a valid cron expression: %v", err)}
		}
	}

	n := cfg.Notification
	if !n.Channel.Valid() {
		return &models.ConfigurationError{Field: "notification.channel", Reason: "must be one of: telegram, email, both"}
	}

	if n.Channel.Includes(models.ChannelTelegram) {
		if n.Telegram == nil || n.Telegram.BotToken == "" {
			return required("notification.telegram.bot_token")
		}
		if n.Telegram.ChatID == "" {
			return required("notification.telegram.chat_id")
		}
		if _, err := strconv.ParseInt(n.Telegram.ChatID, 10, 64); err != nil {
			return &models.ConfigurationError{Field: "notification.telegram.chat_id", Reason: "must be numeric"}
		}
	}

	if n.Channel.Includes(models.ChannelEmail) {
		if n.Email == nil || n.Email.Sender == "" {
			return required("notification.email.sender")
		}
		if n.Email.Password == "" {
			return required("notification.email.password")
		}
		if n.Email.Recipient == "" {
			return required("notification.email.recipient")
		}
		if n.Email.Host == "" {
			return required("notification.email.host")
		}
		if n.Email.Port < 1 || n.Email.Port > 65535 {
			return &models.ConfigurationError{Field: "notification.email.port", Reason: "must be between 1 and 65535"}
		}
	}

	return nil
}

func required(field string) error {
	return &models.ConfigurationError{Field: field, Reason: "is required"}
}
