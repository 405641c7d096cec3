package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/fgeck/sbat-slotwatch/internal/services/status"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// Page wraps the browser page operations the site driver needs, so the
// navigation logic can be exercised without a real browser.
type Page interface {
	Goto(url string) error
	URL() string
	Fill(selector, value string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	InnerHTML(selector string, timeout time.Duration) (string, error)
	Close() error
}

// Factory creates browser sessions.
type Factory interface {
	NewSession(ctx context.Context, cfg models.BrowserConfig, sink status.Sink) (Session, error)
}

// PlaywrightFactory is the default Factory, backed by playwright-go.
type PlaywrightFactory struct {
	logger zerolog.Logger
}

// NewPlaywrightFactory creates a new playwright session factory.
func NewPlaywrightFactory(logger zerolog.Logger) *PlaywrightFactory {
	return &PlaywrightFactory{logger: logger}
}

// NewSession starts the playwright driver, launches a browser and opens a
// single page. Closing the returned session releases all of them.
func (f *PlaywrightFactory) NewSession(ctx context.Context, cfg models.BrowserConfig, sink status.Sink) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.InstallBrowsers {
		f.logger.Info().Str("browser", cfg.Browser).Msg("installing browser binaries")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{cfg.Browser}}); err != nil {
			return nil, fmt.Errorf("failed to install browser: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browserType := pw.Chromium
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	switch cfg.Browser {
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	default:
		opts.Args = []string{"--disable-gpu"}
	}

	b, err := browserType.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch %s: %w", cfg.Browser, err)
	}

	bctx, err := b.NewContext()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	f.logger.Debug().
		Str("browser", cfg.Browser).
		Bool("headless", cfg.Headless).
		Msg("browser session started")

	release := func() error {
		return errors.Join(bctx.Close(), b.Close(), pw.Stop())
	}

	return NewSession(f.logger, &playwrightPage{page: page}, cfg, sink, release), nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Fill(selector, value string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: millis(timeout),
	})
}

func (p *playwrightPage) Click(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: millis(timeout),
	})
}

func (p *playwrightPage) WaitVisible(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
}

func (p *playwrightPage) InnerHTML(selector string, timeout time.Duration) (string, error) {
	return p.page.Locator(selector).First().InnerHTML(playwright.LocatorInnerHTMLOptions{
		Timeout: millis(timeout),
	})
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
