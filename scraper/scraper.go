package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/plexport/config"
	"github.com/use-agent/plexport/models"
)

// Scraper owns the browser plexport launches and hands out page contexts.
// The browser is launched on first use, so runs that attach to the user's
// own Chrome never start one. It is safe for concurrent use.
type Scraper struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig

	mu      sync.Mutex
	browser *rod.Browser
}

// NewScraper returns a Scraper; no browser is started yet.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Scraper {
	return &Scraper{
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}
}

// Target identifies the page context of a run.
type Target struct {
	// URL is the page to open, or a substring of the tab URL to pick when
	// attaching over CDP.
	URL string

	// CDPURL, when set, attaches to an existing Chrome (http:// or ws:// form).
	CDPURL string
}

// Open locates the page context for a run. Every failure is an
// ErrCodeInjection error: the run cannot start without a page.
func (s *Scraper) Open(ctx context.Context, target Target) (*Page, error) {
	if target.CDPURL != "" {
		return s.attach(ctx, target)
	}
	if target.URL == "" {
		return nil, models.NewExportError(
			models.ErrCodeInjection,
			"no page to open: set a target URL or a CDP URL",
			nil,
		)
	}
	return s.openNew(ctx, target.URL)
}

// launch starts the browser once with the launcher flags plexport needs.
func (s *Scraper) launch() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	l := launcher.New().
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	// Lazy-loaded rows only render while timers and painting keep running.
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewExportError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewExportError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	s.browser = browser
	return browser, nil
}

// Close kills the launched browser, if any.
// Call this on shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return
	}
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("close browser", "error", err)
	}
	s.browser = nil
}

// injectionError wraps err as an ErrCodeInjection error, keeping a more
// specific ExportError code when err already carries one.
func injectionError(msg string, err error) *models.ExportError {
	var exportErr *models.ExportError
	if errors.As(err, &exportErr) {
		return models.NewExportError(models.ErrCodeInjection, msg, exportErr)
	}
	return models.NewExportError(models.ErrCodeInjection, msg, err)
}
