package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without opening a browser or sending notifications.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig(false)
	if err != nil {
		if errors.Is(err, errConfigRequired) {
			return cmd.Help()
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Account: %s\n", cfg.Account.Email)
	fmt.Fprintf(out, "  Exam center: %s\n", cfg.Exam.Center)
	fmt.Fprintf(out, "  License type: %s\n", cfg.Exam.LicenseType)
	fmt.Fprintf(out, "  Vehicle: %s\n", cfg.Exam.Vehicle)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Polling:")
	if cfg.Poll.Schedule != "" {
		fmt.Fprintf(out, "  Schedule: %s\n", cfg.Poll.Schedule)
	} else {
		fmt.Fprintf(out, "  Interval: %s\n", cfg.Poll.Interval)
	}
	fmt.Fprintf(out, "  Months to check: %d\n", cfg.Poll.MonthsToCheck)
	fmt.Fprintf(out, "  Max attempts: %d\n", cfg.Poll.MaxAttempts)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Browser:")
	fmt.Fprintf(out, "  Engine: %s\n", cfg.Browser.Browser)
	fmt.Fprintf(out, "  Headless: %v\n", cfg.Browser.Headless)
	fmt.Fprintf(out, "  Base URL: %s\n", cfg.Browser.BaseURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Notifications:")
	fmt.Fprintf(out, "  Channel: %s\n", cfg.Notification.Channel)

	if cfg.Notification.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Notification.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	if cfg.Notification.Email != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Email Configuration:")
		fmt.Fprintf(out, "  Server: %s:%d (%s)\n", cfg.Notification.Email.Host, cfg.Notification.Email.Port, cfg.Notification.Email.Security)
		fmt.Fprintf(out, "  Sender: %s\n", cfg.Notification.Email.Sender)
		fmt.Fprintf(out, "  Recipient: %s\n", cfg.Notification.Email.Recipient)
		fmt.Fprintf(out, "  Password: (configured)\n")
	}

	return nil
}
