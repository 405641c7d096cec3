// Package models contains the data structures used throughout sbat-slotwatch.
package models

import (
	"slices"
	"time"
)

// Config holds the complete configuration for a watch run.
// It is treated as immutable once a run has started.
type Config struct {
	Account      AccountConfig
	Exam         ExamConfig
	Poll         PollConfig
	Browser      BrowserConfig
	Notification NotificationConfig
}

// AccountConfig holds the booking site credentials.
type AccountConfig struct {
	Email    string
	Password string // never logged
}

// ExamConfig holds the wizard choices.
type ExamConfig struct {
	Center      string
	LicenseType string // e.g., "B - Personenauto"
	Vehicle     string // e.g., "Eigen voertuig"
}

// PollConfig defines how often the site is checked.
type PollConfig struct {
	Interval      time.Duration
	Schedule      string // optional cron expression, overrides Interval
	MonthsToCheck int
	MaxAttempts   int // attempts per iteration, 1 means no retry
	RetryBackoff  time.Duration
}

// BrowserConfig holds browser automation settings.
type BrowserConfig struct {
	BaseURL         string
	Browser         string // "chromium" (default), "firefox", "webkit"
	Headless        bool
	InstallBrowsers bool // download the browser binaries before launching
	LoginTimeout    time.Duration
	ElementTimeout  time.Duration
	PollInterval    time.Duration
	SettleDelay     time.Duration // pause after dropdown and calendar interactions
}

// KnownCenters lists the exam centers offered by the booking wizard.
var KnownCenters = []string{
	"Brakel",
	"Eeklo",
	"Erembodegem",
	"Sint-Denijs-Westrem",
	"Sint-Niklaas",
}

// IsKnownCenter reports whether center is one of KnownCenters.
func IsKnownCenter(center string) bool {
	return slices.Contains(KnownCenters, center)
}
