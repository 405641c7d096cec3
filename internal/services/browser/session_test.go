package browser

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/status"
	"github.com/fgeck/sbat-slotwatch/internal/wait"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://sbat.test/praktijk/examen"

type fakePage struct {
	url       string
	redirects map[string]string // Goto target -> landing URL
	onLogin   string            // URL after clicking the login button
	failOn    map[string]error  // selector -> error for Fill/Click/WaitVisible
	gotoErr   error
	calendars []string // one date picker HTML per month
	month     int
	fills     map[string]string
	clicks    []string
	closed    int
	closeErr  error
}

func newFakePage() *fakePage {
	return &fakePage{
		redirects: map[string]string{},
		failOn:    map[string]error{},
		fills:     map[string]string{},
	}
}

func (p *fakePage) Goto(url string) error {
	if p.gotoErr != nil {
		return p.gotoErr
	}
	p.url = url
	if to, ok := p.redirects[url]; ok {
		p.url = to
	}
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Fill(selector, value string, _ time.Duration) error {
	if err := p.failOn[selector]; err != nil {
		return err
	}
	p.fills[selector] = value
	return nil
}

func (p *fakePage) Click(selector string, _ time.Duration) error {
	if err := p.failOn[selector]; err != nil {
		return err
	}
	p.clicks = append(p.clicks, selector)
	switch selector {
	case loginButtonSelector:
		if p.onLogin != "" {
			p.url = p.onLogin
		}
	case nextMonthSelector:
		if p.month < len(p.calendars)-1 {
			p.month++
		}
	}
	return nil
}

func (p *fakePage) WaitVisible(selector string, _ time.Duration) error {
	return p.failOn[selector]
}

func (p *fakePage) InnerHTML(selector string, _ time.Duration) (string, error) {
	if err := p.failOn[selector]; err != nil {
		return "", err
	}
	if selector != calendarSelector || len(p.calendars) == 0 {
		return "", errors.New("element not found")
	}
	return p.calendars[p.month], nil
}

func (p *fakePage) Close() error {
	p.closed++
	return p.closeErr
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testBrowserConfig() models.BrowserConfig {
	return models.BrowserConfig{
		BaseURL:        testBaseURL,
		LoginTimeout:   30 * time.Millisecond,
		ElementTimeout: 30 * time.Millisecond,
		PollInterval:   time.Millisecond,
	}
}

func newTestSession(page *fakePage) (*Impl, *status.Log) {
	sink := status.New(testLogger(), 0)
	return NewSession(testLogger(), page, testBrowserConfig(), sink, nil), sink
}

func TestLogin_Success(t *testing.T) {
	page := newFakePage()
	page.onLogin = testBaseURL + "/dashboard"
	session, sink := newTestSession(page)

	err := session.Login(context.Background(), "me@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "me@example.com", page.fills[emailInputSelector])
	assert.Equal(t, "secret", page.fills[passwordInputSelector])
	assert.Equal(t, []string{loginButtonSelector}, page.clicks)
	assert.Equal(t, []string{"Login successful"}, sink.Messages())
}

func TestLogin_NoNavigation(t *testing.T) {
	page := newFakePage()
	session, sink := newTestSession(page)

	err := session.Login(context.Background(), "me@example.com", "wrong")

	require.Error(t, err)
	var authErr *models.AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, errors.Is(err, wait.ErrTimeout))
	assert.Empty(t, sink.Messages())
}

func TestLogin_AlreadyAuthenticated(t *testing.T) {
	page := newFakePage()
	page.redirects[testBaseURL+"/login"] = testBaseURL + "/overview"
	session, sink := newTestSession(page)

	err := session.Login(context.Background(), "me@example.com", "secret")

	require.NoError(t, err)
	assert.Empty(t, page.fills)
	assert.Empty(t, page.clicks)
	assert.Equal(t, []string{"Login successful"}, sink.Messages())
}

func TestLogin_RedirectOffSite(t *testing.T) {
	tests := []struct {
		name    string
		landing string
	}{
		{"other host", "https://maintenance.example.com/down"},
		{"sibling path", "https://sbat.test/praktijk/onderhoud"},
		{"base prefix without separator", testBaseURL + "-old/overview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			page.redirects[testBaseURL+"/login"] = tt.landing
			session, sink := newTestSession(page)

			err := session.Login(context.Background(), "me@example.com", "secret")

			var authErr *models.AuthenticationError
			require.True(t, errors.As(err, &authErr))
			assert.Contains(t, err.Error(), tt.landing)
			assert.Empty(t, page.fills)
			assert.NotContains(t, sink.Messages(), "Login successful")
		})
	}
}

func TestLogin_MissingEmailField(t *testing.T) {
	page := newFakePage()
	page.failOn[emailInputSelector] = errors.New("timeout 10000ms exceeded")
	session, _ := newTestSession(page)

	err := session.Login(context.Background(), "me@example.com", "secret")

	var authErr *models.AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "email field")
}

func TestLogin_GotoError(t *testing.T) {
	page := newFakePage()
	page.gotoErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	session, _ := newTestSession(page)

	err := session.Login(context.Background(), "me@example.com", "secret")

	var authErr *models.AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestLogin_Cancelled(t *testing.T) {
	page := newFakePage()
	session, _ := newTestSession(page)
	session.cfg.LoginTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := session.Login(ctx, "me@example.com", "secret")

	assert.ErrorIs(t, err, context.Canceled)
	var authErr *models.AuthenticationError
	assert.False(t, errors.As(err, &authErr))
}

func testExam() models.ExamConfig {
	return models.ExamConfig{
		Center:      "Sint-Niklaas",
		LicenseType: "B - Personenauto",
		Vehicle:     "Eigen voertuig",
	}
}

func TestFillExamDetails_Success(t *testing.T) {
	page := newFakePage()
	session, sink := newTestSession(page)

	err := session.FillExamDetails(context.Background(), testExam())

	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/exam", page.url)
	assert.Equal(t, []string{
		dropdownSelector("Examencentrum"),
		optionSelector("Sint-Niklaas"),
		dropdownSelector("Type rijbewijs"),
		optionSelector("B - Personenauto"),
		dropdownSelector("Voertuig"),
		optionSelector("Eigen voertuig"),
		nextStepSelector,
	}, page.clicks)
	assert.Equal(t, []string{
		"Selected Sint-Niklaas for Examencentrum",
		"Selected B - Personenauto for Type rijbewijs",
		"Selected Eigen voertuig for Voertuig",
		"Exam details filled for Sint-Niklaas",
	}, sink.Messages())
}

func TestFillExamDetails_MissingOption(t *testing.T) {
	page := newFakePage()
	page.failOn[optionSelector("Eigen voertuig")] = errors.New("timeout 10000ms exceeded")
	session, _ := newTestSession(page)

	err := session.FillExamDetails(context.Background(), testExam())

	var navErr *models.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "Voertuig", navErr.Step)
	assert.NotContains(t, page.clicks, nextStepSelector)
}

func TestFillExamDetails_FormNeverAppears(t *testing.T) {
	page := newFakePage()
	page.failOn[dropdownSelector("Examencentrum")] = errors.New("timeout 10000ms exceeded")
	session, _ := newTestSession(page)

	err := session.FillExamDetails(context.Background(), testExam())

	var navErr *models.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "exam page", navErr.Step)
	assert.Empty(t, page.clicks)
}

func TestFillExamDetails_NextButtonMissing(t *testing.T) {
	page := newFakePage()
	page.failOn[nextStepSelector] = errors.New("not clickable")
	session, _ := newTestSession(page)

	err := session.FillExamDetails(context.Background(), testExam())

	var navErr *models.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "Volgende", navErr.Step)
}

func TestScanAvailableDates_AllMonths(t *testing.T) {
	page := newFakePage()
	page.calendars = []string{
		calendarHTML("June 2025", []day{{"3", false}, {"4", true}, {"10", false}}, "enabled"),
		calendarHTML("July 2025", []day{{"1", true}}, "enabled"),
		calendarHTML("August 2025", []day{{"5", false}}, "enabled"),
		calendarHTML("September 2025", nil, "enabled"),
	}
	session, sink := newTestSession(page)

	slots, err := session.ScanAvailableDates(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, []models.Slot{
		{Day: "3", Month: "June 2025"},
		{Day: "10", Month: "June 2025"},
		{Day: "5", Month: "August 2025"},
	}, slots)
	assert.Equal(t, 3, countClicks(page, nextMonthSelector))
	assert.Equal(t, []string{
		"Checking dates for: June 2025",
		"Checking dates for: July 2025",
		"Checking dates for: August 2025",
		"Checking dates for: September 2025",
	}, sink.Messages())
}

func TestScanAvailableDates_NextDisabledAfterTwoMonths(t *testing.T) {
	page := newFakePage()
	page.calendars = []string{
		calendarHTML("June 2025", []day{{"3", false}}, "enabled"),
		calendarHTML("July 2025", []day{{"8", false}}, "disabled"),
		calendarHTML("August 2025", []day{{"1", false}}, "enabled"),
	}
	session, sink := newTestSession(page)

	slots, err := session.ScanAvailableDates(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, []models.Slot{
		{Day: "3", Month: "June 2025"},
		{Day: "8", Month: "July 2025"},
	}, slots)
	assert.Equal(t, 1, countClicks(page, nextMonthSelector))
	assert.Equal(t, []string{
		"Checking dates for: June 2025",
		"Checking dates for: July 2025",
		"Next month button is disabled",
	}, sink.Messages())
}

func TestScanAvailableDates_NextMissing(t *testing.T) {
	page := newFakePage()
	page.calendars = []string{
		calendarHTML("June 2025", nil, ""),
	}
	session, sink := newTestSession(page)

	slots, err := session.ScanAvailableDates(context.Background(), 4)

	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.Equal(t, 0, countClicks(page, nextMonthSelector))
	assert.Contains(t, sink.Messages(), "Next month button not found")
}

func TestScanAvailableDates_MonthDoesNotChange(t *testing.T) {
	page := newFakePage()
	page.calendars = []string{
		calendarHTML("June 2025", nil, "enabled"),
	}
	session, _ := newTestSession(page)

	_, err := session.ScanAvailableDates(context.Background(), 2)

	var navErr *models.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "next month", navErr.Step)
}

func TestScanAvailableDates_CalendarMissing(t *testing.T) {
	page := newFakePage()
	page.failOn[calendarTableSelector] = errors.New("timeout 10000ms exceeded")
	session, _ := newTestSession(page)

	_, err := session.ScanAvailableDates(context.Background(), 4)

	var navErr *models.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "calendar", navErr.Step)
}

func TestScanAvailableDates_Cancelled(t *testing.T) {
	page := newFakePage()
	page.calendars = []string{calendarHTML("June 2025", nil, "enabled")}
	session, _ := newTestSession(page)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.ScanAvailableDates(ctx, 4)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose_ReleasesResources(t *testing.T) {
	page := newFakePage()
	released := 0
	session := NewSession(testLogger(), page, testBrowserConfig(), nil, func() error {
		released++
		return nil
	})

	require.NoError(t, session.Close())
	assert.Equal(t, 1, page.closed)
	assert.Equal(t, 1, released)
}

func TestClose_JoinsErrors(t *testing.T) {
	page := newFakePage()
	page.closeErr = errors.New("page already closed")
	session := NewSession(testLogger(), page, testBrowserConfig(), nil, func() error {
		return errors.New("browser crashed")
	})

	err := session.Close()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page already closed")
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Eeklo", "'Eeklo'"},
		{"it's", `"it's"`},
		{`it's "quoted"`, `concat('it', "'", 's "quoted"')`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, xpathLiteral(tt.input))
		})
	}
}

func countClicks(p *fakePage, selector string) int {
	n := 0
	for _, c := range p.clicks {
		if strings.EqualFold(c, selector) {
			n++
		}
	}
	return n
}
