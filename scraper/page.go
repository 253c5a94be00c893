package scraper

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

const (
	// scrollJS scrolls to a fraction of the document height.
	scrollJS = `(fraction) => {
		const height = document.body.scrollHeight;
		window.scrollTo(0, height * fraction);
		return height;
	}`

	// pinHeightJS keeps the page from collapsing once rows are recycled.
	pinHeightJS = `() => {
		document.body.style.minHeight = document.body.scrollHeight + 'px';
	}`
)

// Page is a browser tab prepared for extraction. It implements extractor.Page.
type Page struct {
	page   *rod.Page
	router *rod.HijackRouter
	owned  bool   // created by plexport, closed with the run
	detach func() // drops a CDP connection without killing the user's browser
	url    string
}

// URL returns the tab URL at the time it was opened.
func (p *Page) URL() string { return p.url }

// Scroll scrolls the window to fraction * document.body.scrollHeight.
func (p *Page) Scroll(ctx context.Context, fraction float64) error {
	_, err := p.page.Context(ctx).Eval(scrollJS, fraction)
	return err
}

// PinMinHeight forces body.style.minHeight to the current scrollHeight.
func (p *Page) PinMinHeight(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(pinHeightJS)
	return err
}

// HTML returns the rendered document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Close releases the tab. Tabs plexport created are closed; tabs of the
// user's browser are left open and only the connection is dropped.
func (p *Page) Close() {
	if p.router != nil {
		_ = p.router.Stop()
	}
	if p.owned {
		if err := p.page.Close(); err != nil {
			slog.Warn("cleanup: failed to close page", "error", err)
		}
	}
	if p.detach != nil {
		p.detach()
	}
}

// openNew creates a tab in the launched browser and navigates it to url.
//
// Stealth and resource blocking must be installed before Navigate: they only
// apply to navigations that happen after they are set up.
func (s *Scraper) openNew(ctx context.Context, url string) (*Page, error) {
	browser, err := s.launch()
	if err != nil {
		return nil, injectionError("failed to start browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, injectionError("failed to create page", err)
	}

	if s.scraperCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if len(s.scraperCfg.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(s.scraperCfg.Headers),
		}.Call(page)
	}

	router := setupHijack(page, s.scraperCfg.BlockedResourceTypes)
	out := &Page{page: page, router: router, owned: true, url: url}

	navCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(url); err != nil {
		out.Close()
		return nil, injectionError("navigation to library page failed", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}

	slog.Info("library page opened", "url", url)
	return out, nil
}

// attach connects to the user's browser and picks the library tab. With an
// empty URL the first tab is used, which is the active one in a single-window
// session.
func (s *Scraper) attach(ctx context.Context, target Target) (*Page, error) {
	wsURL, err := launcher.ResolveURL(target.CDPURL)
	if err != nil {
		return nil, injectionError("failed to resolve CDP URL", err)
	}

	// The connection lives on its own context so it outlives the request that
	// started the run; cancelling it closes the websocket only.
	connCtx, detach := context.WithCancel(context.Background())
	browser := rod.New().Context(connCtx).ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		detach()
		return nil, injectionError("failed to connect to CDP URL", err)
	}

	page, err := pickTab(browser, target.URL)
	if err != nil {
		detach()
		return nil, err
	}
	if _, err := page.Context(ctx).Activate(); err != nil {
		slog.Debug("failed to activate tab", "error", err)
	}

	url := target.URL
	if info, infoErr := page.Info(); infoErr == nil {
		url = info.URL
	}
	slog.Info("attached to browser tab", "url", url)

	return &Page{page: page, detach: detach, url: url}, nil
}

// pickTab returns the tab whose URL contains match, or the first tab.
func pickTab(browser *rod.Browser, match string) (*rod.Page, error) {
	pages, err := browser.Pages()
	if err != nil {
		return nil, injectionError("failed to list browser tabs", err)
	}
	if len(pages) == 0 {
		return nil, injectionError("no open tab in the attached browser", nil)
	}
	if match == "" {
		return pages.First(), nil
	}
	page, err := pages.FindByURL(regexp.QuoteMeta(match))
	if err != nil {
		return nil, injectionError("no tab matches "+match, err)
	}
	return page, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
