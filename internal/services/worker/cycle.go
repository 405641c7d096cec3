package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/browser"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var errNoSession = errors.New("browser factory returned no session")

// cycle is the state owned by one run. Only the run goroutine touches it.
type cycle struct {
	id       string
	cfg      models.Config
	w        *Impl
	logger   zerolog.Logger
	schedule cron.Schedule
	session  browser.Session
}

func parseSchedule(poll models.PollConfig, logger zerolog.Logger) cron.Schedule {
	if poll.Schedule == "" {
		return nil
	}
	sched, err := cron.ParseStandard(poll.Schedule)
	if err != nil {
		logger.Warn().Err(err).Str("schedule", poll.Schedule).Msg("invalid schedule, using fixed interval")
		return nil
	}
	return sched
}

// run loops until ctx is cancelled or an iteration fails. Cancellation
// yields a nil error.
func (c *cycle) run(ctx context.Context) error {
	defer c.closeSession()

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("watch stopped")
			return nil
		}

		if _, err := c.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("watch stopped during check")
				return nil
			}
			c.fail(ctx, err)
			return err
		}

		c.status("Restarting the process...")

		d := c.nextWait(c.w.now())
		c.logger.Debug().Dur("sleep", d).Msg("waiting for next check")
		if err := c.w.sleep(ctx, d); err != nil {
			c.logger.Info().Msg("watch stopped while waiting")
			return nil
		}
	}
}

// iterate performs one check with retries, then reports the result.
func (c *cycle) iterate(ctx context.Context) ([]models.Slot, error) {
	slots, err := c.checkWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	message := ComposeMessage(slots)
	dates := make([]string, len(slots))
	for i, s := range slots {
		dates[i] = s.Label()
	}
	c.logger.Info().Int("slots", len(slots)).Strs("dates", dates).Msg("check completed")
	c.status(message)
	c.w.notifier.Notify(ctx, c.cfg.Notification, message)

	return slots, nil
}

func (c *cycle) checkWithRetry(ctx context.Context) ([]models.Slot, error) {
	attempts := c.cfg.Poll.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		slots, err := c.check(ctx)
		if err == nil {
			return slots, nil
		}
		if ctx.Err() != nil || attempt >= attempts {
			return nil, err
		}

		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", c.cfg.Poll.RetryBackoff).
			Msg("check failed, retrying")
		c.status(fmt.Sprintf("Attempt %d of %d failed, retrying in %s", attempt, attempts, c.cfg.Poll.RetryBackoff))

		// The page may be in an unknown state; retry on a fresh browser.
		c.closeSession()
		if err := c.w.sleep(ctx, c.cfg.Poll.RetryBackoff); err != nil {
			return nil, err
		}
	}
}

func (c *cycle) check(ctx context.Context) ([]models.Slot, error) {
	session, err := c.acquireSession(ctx)
	if err != nil {
		return nil, err
	}

	c.status("Logging in...")
	if err := session.Login(ctx, c.cfg.Account.Email, c.cfg.Account.Password); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.status("Filling exam details...")
	if err := session.FillExamDetails(ctx, c.cfg.Exam); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.status(fmt.Sprintf("Checking availability at %s...", c.w.now().Format("2006-01-02 15:04:05")))
	return session.ScanAvailableDates(ctx, c.cfg.Poll.MonthsToCheck)
}

func (c *cycle) acquireSession(ctx context.Context) (browser.Session, error) {
	if c.session != nil {
		return c.session, nil
	}

	c.logger.Debug().Str("browser", c.cfg.Browser.Browser).Msg("opening browser session")
	session, err := c.w.factory.NewSession(ctx, c.cfg.Browser, c.w.sink)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if session == nil {
		return nil, errNoSession
	}

	c.session = session
	return session, nil
}

func (c *cycle) closeSession() {
	if c.session == nil {
		return
	}
	if err := c.session.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to close browser session")
	}
	c.session = nil
}

// fail reports a fatal error on the status sink and as a final notification.
func (c *cycle) fail(ctx context.Context, err error) {
	message := fmt.Sprintf("An error occurred: %v", err)

	event := c.logger.Error().Err(err)
	var authErr *models.AuthenticationError
	var navErr *models.NavigationError
	switch {
	case errors.As(err, &authErr):
		event = event.Str("kind", "authentication")
	case errors.As(err, &navErr):
		event = event.Str("kind", "navigation").Str("step", navErr.Step)
	}
	event.Msg("watch aborted")

	c.status(message)
	c.w.notifier.Notify(ctx, c.cfg.Notification, message)
}

func (c *cycle) nextWait(now time.Time) time.Duration {
	if c.schedule != nil {
		return c.schedule.Next(now).Sub(now)
	}
	return c.cfg.Poll.Interval
}

func (c *cycle) status(message string) {
	c.w.status(message)
}
