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

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch for free exam dates until interrupted",
	Long: `Start the watch loop and keep it running:
1. Log in to the booking site
2. Fill in exam center, license type and vehicle
3. Scan the calendar for free dates
4. Send the result via the configured channel(s)
5. Sleep for the poll interval (or until the next schedule tick) and repeat

The loop stops on SIGINT/SIGTERM or after an unrecoverable error.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		if errors.Is(err, errConfigRequired) {
			return cmd.Help()
		}
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("center", cfg.Exam.Center).
		Str("channel", string(cfg.Notification.Channel)).
		Dur("interval", cfg.Poll.Interval).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := status.New(log.Logger.With().Str("component", "status").Logger(), 0)
	w := worker.New(log.Logger, sink)
	w.Start(ctx, *cfg)

	if err := waitForWorker(ctx, w); err != nil {
		log.Error().Err(err).Msg("watch failed")
		return err
	}

	log.Info().Msg("watch stopped")
	return nil
}

// waitForWorker blocks until the worker has exited. ctx is the parent of the
// run, so a signal already cancels it; only the session release is awaited.
func waitForWorker(ctx context.Context, w worker.Service) error {
	select {
	case <-ctx.Done():
		log.Warn().Msg("received signal, shutting down")
		<-w.Done()
	case <-w.Done():
	}
	return w.Err()
}
