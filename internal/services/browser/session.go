// Package browser drives the exam booking site through a browser session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/status"
	"github.com/fgeck/sbat-slotwatch/internal/wait"
	"github.com/rs/zerolog"
)

// Session is a live browser session on the booking site.
type Session interface {
	Login(ctx context.Context, email, password string) error
	FillExamDetails(ctx context.Context, exam models.ExamConfig) error
	ScanAvailableDates(ctx context.Context, monthsToCheck int) ([]models.Slot, error)
	Close() error
}

// Site selectors.
const (
	emailInputSelector    = `input[placeholder="E-mail"]`
	passwordInputSelector = `input[placeholder="Wachtwoord"]`
	loginButtonSelector   = `button.v-btn.primary`
	nextStepSelector      = `xpath=//button[contains(@class, 'v-btn') and contains(., 'Volgende')]`
	calendarTableSelector = `.v-date-picker-table`
	calendarSelector      = `.v-picker--date`
)

// Wizard dropdown labels.
const (
	labelCenter      = "Examencentrum"
	labelLicenseType = "Type rijbewijs"
	labelVehicle     = "Voertuig"
)

// Impl implements Session on top of a Page.
type Impl struct {
	page    Page
	cfg     models.BrowserConfig
	sink    status.Sink
	logger  zerolog.Logger
	release func() error
	now     func() time.Time
}

// NewSession creates a session driving page. release, if not nil, is called
// after the page is closed to free the resources backing it.
func NewSession(logger zerolog.Logger, page Page, cfg models.BrowserConfig, sink status.Sink, release func() error) *Impl {
	if sink == nil {
		sink = status.Discard
	}
	return &Impl{
		page:    page,
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		release: release,
		now:     time.Now,
	}
}

// Login signs in and waits for the site to navigate away from the login page.
func (s *Impl) Login(ctx context.Context, email, password string) error {
	loginURL := s.cfg.BaseURL + "/login"

	if err := s.page.Goto(loginURL); err != nil {
		return &models.AuthenticationError{Err: fmt.Errorf("opening login page: %w", err)}
	}

	// The site redirects away from the login page while a session is active.
	// Landing anywhere outside the booking site is not a session.
	if landed := s.page.URL(); !strings.HasPrefix(landed, loginURL) {
		if !strings.HasPrefix(landed, s.cfg.BaseURL+"/") {
			return &models.AuthenticationError{Err: fmt.Errorf("redirected away from the booking site to %s", landed)}
		}
		s.logger.Debug().Str("url", landed).Msg("session still authenticated")
		s.status("Login successful")
		return nil
	}

	if err := s.page.Fill(emailInputSelector, email, s.cfg.ElementTimeout); err != nil {
		return &models.AuthenticationError{Err: fmt.Errorf("email field: %w", err)}
	}
	if err := s.page.Fill(passwordInputSelector, password, s.cfg.ElementTimeout); err != nil {
		return &models.AuthenticationError{Err: fmt.Errorf("password field: %w", err)}
	}
	if err := s.page.Click(loginButtonSelector, s.cfg.ElementTimeout); err != nil {
		return &models.AuthenticationError{Err: fmt.Errorf("login button: %w", err)}
	}

	err := wait.Until(ctx, s.cfg.LoginTimeout, s.cfg.PollInterval, func(context.Context) (bool, error) {
		return s.page.URL() != loginURL, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &models.AuthenticationError{Err: fmt.Errorf("still on login page: %w", err)}
	}

	s.status("Login successful")
	return nil
}

// FillExamDetails opens the exam wizard, selects the center, license type
// and vehicle, and advances to the calendar step.
func (s *Impl) FillExamDetails(ctx context.Context, exam models.ExamConfig) error {
	if err := s.page.Goto(s.cfg.BaseURL + "/exam"); err != nil {
		return &models.NavigationError{Step: "exam page", Err: err}
	}

	if err := s.page.WaitVisible(dropdownSelector(labelCenter), s.cfg.ElementTimeout); err != nil {
		return &models.NavigationError{Step: "exam page", Err: err}
	}

	choices := []struct{ label, option string }{
		{labelCenter, exam.Center},
		{labelLicenseType, exam.LicenseType},
		{labelVehicle, exam.Vehicle},
	}
	for _, c := range choices {
		if err := s.selectDropdownOption(ctx, c.label, c.option); err != nil {
			return err
		}
	}

	if err := s.page.Click(nextStepSelector, s.cfg.ElementTimeout); err != nil {
		return &models.NavigationError{Step: "Volgende", Err: err}
	}

	s.status(fmt.Sprintf("Exam details filled for %s", exam.Center))
	return nil
}

func (s *Impl) selectDropdownOption(ctx context.Context, label, option string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.Debug().Str("label", label).Str("option", option).Msg("selecting dropdown option")

	if err := s.page.Click(dropdownSelector(label), s.cfg.ElementTimeout); err != nil {
		return &models.NavigationError{Step: label, Err: err}
	}
	if err := wait.Sleep(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.page.Click(optionSelector(option), s.cfg.ElementTimeout); err != nil {
		return &models.NavigationError{Step: label, Err: fmt.Errorf("option %q: %w", option, err)}
	}
	if err := wait.Sleep(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}

	s.status(fmt.Sprintf("Selected %s for %s", option, label))
	return nil
}

// ScanAvailableDates walks up to monthsToCheck calendar months and collects
// every enabled day. A missing or disabled next-month control ends the scan
// early without an error.
func (s *Impl) ScanAvailableDates(ctx context.Context, monthsToCheck int) ([]models.Slot, error) {
	if err := s.page.WaitVisible(calendarTableSelector, s.cfg.ElementTimeout); err != nil {
		return nil, &models.NavigationError{Step: "calendar", Err: err}
	}

	var slots []models.Slot
	for i := 0; i < monthsToCheck; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cal, err := s.readCalendar()
		if err != nil {
			return nil, err
		}

		s.status(fmt.Sprintf("Checking dates for: %s", cal.Month))
		for _, day := range cal.AvailableDays {
			slots = append(slots, models.Slot{Day: day, Month: cal.Month})
		}

		if i == monthsToCheck-1 {
			break
		}
		if !cal.HasNext {
			s.status("Next month button not found")
			break
		}
		if !cal.NextEnabled {
			s.status("Next month button is disabled")
			break
		}

		if err := s.nextMonth(ctx, cal.Month); err != nil {
			return nil, err
		}
	}

	s.logger.Debug().Int("slots", len(slots)).Msg("calendar scan finished")
	return slots, nil
}

func (s *Impl) readCalendar() (CalendarPage, error) {
	html, err := s.page.InnerHTML(calendarSelector, s.cfg.ElementTimeout)
	if err != nil {
		return CalendarPage{}, &models.NavigationError{Step: "calendar", Err: err}
	}
	cal, err := ParseCalendar(html)
	if err != nil {
		return CalendarPage{}, &models.NavigationError{Step: "calendar", Err: err}
	}
	return cal, nil
}

// nextMonth clicks the next-month control and waits until the header no
// longer shows current.
func (s *Impl) nextMonth(ctx context.Context, current string) error {
	if err := s.page.Click(nextMonthSelector, s.cfg.ElementTimeout); err != nil {
		return &models.NavigationError{Step: "next month", Err: err}
	}

	err := wait.Until(ctx, s.cfg.ElementTimeout, s.cfg.PollInterval, func(context.Context) (bool, error) {
		cal, err := s.readCalendar()
		if err != nil {
			return false, nil //nolint:nilerr // the calendar may be re-rendering
		}
		return cal.Month != current, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &models.NavigationError{Step: "next month", Err: err}
	}

	return wait.Sleep(ctx, s.cfg.SettleDelay)
}

// Close closes the page and releases the browser.
func (s *Impl) Close() error {
	err := s.page.Close()
	if s.release != nil {
		err = errors.Join(err, s.release())
	}
	if err != nil {
		return fmt.Errorf("failed to close browser session: %w", err)
	}
	return nil
}

func (s *Impl) status(message string) {
	s.sink.Append(s.now(), message)
}

func dropdownSelector(label string) string {
	return fmt.Sprintf("xpath=//label[contains(text(), %s)]/ancestor::div[contains(@class, 'v-input')]", xpathLiteral(label))
}

func optionSelector(option string) string {
	return fmt.Sprintf("xpath=//div[@class='v-list-item__title' and contains(text(), %s)]", xpathLiteral(option))
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
