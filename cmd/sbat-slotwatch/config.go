package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/sbat-slotwatch/internal/config"
	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

var errConfigRequired = errors.New("config file is required")

// loadConfig parses and validates the config file. When the account
// password is empty and stdin is a terminal it is read interactively.
func loadConfig(promptPassword bool) (*models.Config, error) {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return nil, errConfigRequired
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	if promptPassword && cfg.Account.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := readPassword(cfg.Account.Email)
		if err != nil {
			return nil, err
		}
		cfg.Account.Password = password
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	return cfg, nil
}

func readPassword(email string) (string, error) {
	fmt.Fprintf(os.Stderr, "SBAT password for %s: ", email)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
