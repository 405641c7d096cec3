// Package worker runs the check-notify-wait cycle in the background.
package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/browser"
	"github.com/fgeck/sbat-slotwatch/internal/services/notifier"
	"github.com/fgeck/sbat-slotwatch/internal/services/status"
	"github.com/fgeck/sbat-slotwatch/internal/wait"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service defines the interface for the polling worker.
type Service interface {
	Start(ctx context.Context, cfg models.Config) bool
	Stop()
	State() models.CycleState
	Done() <-chan struct{}
	Err() error
}

// SleepFunc blocks for d or until ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Impl implements the worker Service interface. At most one cycle goroutine
// exists at any time.
type Impl struct {
	factory  browser.Factory
	notifier notifier.Service
	sink     status.Sink
	logger   zerolog.Logger
	sleep    SleepFunc
	now      func() time.Time

	mu     sync.Mutex
	state  models.CycleState
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New creates a new worker backed by playwright and the default notifier.
func New(logger zerolog.Logger, sink status.Sink) *Impl {
	return NewWithServices(
		logger,
		sink,
		browser.NewPlaywrightFactory(logger),
		notifier.New(logger, sink),
		wait.Sleep,
	)
}

// NewWithServices creates a new worker with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	sink status.Sink,
	factory browser.Factory,
	notifierSvc notifier.Service,
	sleep SleepFunc,
) *Impl {
	if sink == nil {
		sink = status.Discard
	}
	done := make(chan struct{})
	close(done)
	return &Impl{
		factory:  factory,
		notifier: notifierSvc,
		sink:     sink,
		logger:   logger,
		sleep:    sleep,
		now:      time.Now,
		state:    models.StateIdle,
		done:     done,
	}
}

// Start launches the cycle goroutine with a private copy of cfg. It returns
// false without doing anything if a cycle is already running.
func (w *Impl) Start(ctx context.Context, cfg models.Config) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == models.StateRunning || w.state == models.StateStoppingRequested {
		w.status("Search is already running.")
		return false
	}

	c := w.newCycle(cloneConfig(cfg))
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.state = models.StateRunning
	w.cancel = cancel
	w.done = done
	w.err = nil

	c.logger.Info().
		Dur("interval", cfg.Poll.Interval).
		Str("schedule", cfg.Poll.Schedule).
		Msg("starting watch")

	go func() {
		err := c.run(runCtx)
		cancel()

		w.mu.Lock()
		w.state = models.StateStopped
		w.err = err
		w.mu.Unlock()

		close(done)
	}()

	return true
}

// Stop requests cancellation and blocks until the cycle goroutine has
// closed its browser session and exited.
func (w *Impl) Stop() {
	w.mu.Lock()
	if w.state != models.StateRunning && w.state != models.StateStoppingRequested {
		w.mu.Unlock()
		w.status("Search is not running.")
		return
	}
	w.state = models.StateStoppingRequested
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	w.logger.Info().Msg("stop requested")
	cancel()
	<-done
}

// State returns the current lifecycle state.
func (w *Impl) State() models.CycleState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done returns a channel closed when the current (or last) cycle goroutine
// exits. Before the first Start it is already closed.
func (w *Impl) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Err returns the error that ended the last run, or nil if it was stopped.
func (w *Impl) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// RunOnce performs a single check-and-notify pass on a fresh session without
// sleeping, and closes the session before returning.
func (w *Impl) RunOnce(ctx context.Context, cfg models.Config) ([]models.Slot, error) {
	c := w.newCycle(cloneConfig(cfg))
	defer c.closeSession()

	slots, err := c.iterate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.fail(ctx, err)
		return nil, err
	}
	return slots, nil
}

// ComposeMessage renders the result of one scan.
func ComposeMessage(slots []models.Slot) string {
	if len(slots) == 0 {
		return "No available dates found."
	}
	labels := make([]string, len(slots))
	for i, s := range slots {
		labels[i] = s.Label()
	}
	return "Available dates found:\n" + strings.Join(labels, "\n")
}

func (w *Impl) status(message string) {
	w.sink.Append(w.now(), message)
}

func (w *Impl) newCycle(cfg models.Config) *cycle {
	id := uuid.NewString()
	return &cycle{
		id:  id,
		cfg: cfg,
		w:   w,
		logger: w.logger.With().
			Str("run_id", id).
			Str("center", cfg.Exam.Center).
			Logger(),
		schedule: parseSchedule(cfg.Poll, w.logger),
	}
}

func cloneConfig(cfg models.Config) models.Config {
	out := cfg
	if cfg.Notification.Telegram != nil {
		tg := *cfg.Notification.Telegram
		out.Notification.Telegram = &tg
	}
	if cfg.Notification.Email != nil {
		em := *cfg.Notification.Email
		out.Notification.Email = &em
	}
	return out
}

var _ Service = (*Impl)(nil)
