package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/sbat-slotwatch/internal/services/status"
	"github.com/fgeck/sbat-slotwatch/internal/services/worker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single availability check and exit",
	Long: `Log in, fill in the exam details, scan the calendar once and send the
result via the configured channel(s). Exits non-zero on failure, which
makes it suitable for an external scheduler (cron, systemd timer, etc.).`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		if errors.Is(err, errConfigRequired) {
			return cmd.Help()
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := status.New(log.Logger.With().Str("component", "status").Logger(), 0)
	w := worker.New(log.Logger, sink)

	slots, err := w.RunOnce(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("check failed")
		return err
	}

	log.Info().Int("slots", len(slots)).Msg("check completed successfully")
	return nil
}
