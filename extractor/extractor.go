package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/text/language"

	"github.com/use-agent/plexport/config"
	"github.com/use-agent/plexport/models"
)

// Page is the page context the extractor drives.
type Page interface {
	// Scroll scrolls the window to fraction * document.body.scrollHeight.
	Scroll(ctx context.Context, fraction float64) error

	// PinMinHeight sets body.style.minHeight to the current scrollHeight so the
	// layout does not collapse after scrolling.
	PinMinHeight(ctx context.Context) error

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)
}

// Result is the outcome of a finished run.
type Result struct {
	Records  []models.MovieRecord // sorted by title
	Filename string
	Path     string
}

// Extractor runs the scroll-scan-collect loop and exports the CSV.
// One Extractor can serve many runs; each run owns its own State.
type Extractor struct {
	cfg     config.ExtractorConfig
	scanner *Scanner
	locale  language.Tag

	sleep func(ctx context.Context, d time.Duration) error
	delay func() time.Duration
	now   func() time.Time
}

// New builds an Extractor from cfg.
func New(cfg config.ExtractorConfig) (*Extractor, error) {
	scanner, err := NewScanner(cfg.LabelSelector)
	if err != nil {
		return nil, err
	}

	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		slog.Warn("invalid collation locale, using root collation",
			"locale", cfg.Locale, "error", err)
		tag = language.Und
	}

	e := &Extractor{
		cfg:     cfg,
		scanner: scanner,
		locale:  tag,
		sleep:   sleepCtx,
		now:     time.Now,
	}
	e.delay = e.randomDelay
	return e, nil
}

// randomDelay returns a duration in [DelayMin, DelayMin+DelayJitter).
func (e *Extractor) randomDelay() time.Duration {
	d := e.cfg.DelayMin
	if e.cfg.DelayJitter > 0 {
		d += rand.N(e.cfg.DelayJitter)
	}
	return d
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run collects records from page until MaxNoProgress consecutive passes add
// nothing, then exports them through dl. Status events are sent on events in
// emission order; Run never closes the channel.
//
// A finalize failure is reported as a warning event and returned as an
// ErrCodeFinalize error. Cancelling ctx is the only way to stop a run early.
func (e *Extractor) Run(ctx context.Context, page Page, dl Downloader, events chan<- models.StatusEvent) (*Result, error) {
	emit := func(ev models.StatusEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	state, err := e.collect(ctx, page, emit)
	if err != nil {
		emit(models.ErrorStatus(err))
		return nil, err
	}

	res, err := e.finalize(ctx, state, dl, emit)
	if err != nil {
		exportErr := models.NewExportError(models.ErrCodeFinalize, "export failed", err)
		emit(models.ErrorStatus(exportErr))
		return nil, exportErr
	}
	return res, nil
}

// collect is the loop state. It returns when collection completes or the
// page becomes unusable.
func (e *Extractor) collect(ctx context.Context, page Page, emit func(models.StatusEvent)) (*State, error) {
	state := NewState(e.cfg.MaxNoProgress)
	emit(models.Info(msgCollecting))

	for pass := 1; ; pass++ {
		// ── a. Scroll ───────────────────────────────────────────────
		fraction := 1.0
		dir := state.NextDirection()
		if dir == Up {
			fraction = e.cfg.UpFraction
		}
		if err := page.Scroll(ctx, fraction); err != nil {
			return nil, pageError(ctx, "scroll", err)
		}

		// ── b. Let lazy content load ────────────────────────────────
		if err := e.sleep(ctx, e.delay()); err != nil {
			return nil, pageError(ctx, "wait", err)
		}

		// ── c. Keep the layout from collapsing ──────────────────────
		if err := page.PinMinHeight(ctx); err != nil {
			return nil, pageError(ctx, "pin height", err)
		}

		// ── d. Scan ─────────────────────────────────────────────────
		rawHTML, err := page.HTML(ctx)
		if err != nil {
			return nil, pageError(ctx, "read page", err)
		}
		foundNew, err := e.scanner.Collect(rawHTML, state.Records)
		if err != nil {
			return nil, err
		}

		slog.Debug("scan pass finished",
			"pass", pass,
			"direction", dir.String(),
			"records", state.Records.Len(),
			"foundNew", foundNew,
		)

		// ── e-g. Report and decide ──────────────────────────────────
		passEvents, done := state.EndPass(foundNew)
		for _, ev := range passEvents {
			emit(ev)
		}
		if done {
			return state, nil
		}
	}
}

// finalize sorts, formats and downloads the collected records.
func (e *Extractor) finalize(ctx context.Context, state *State, dl Downloader, emit func(models.StatusEvent)) (*Result, error) {
	records := state.Records.Records()
	emit(models.Info(fmt.Sprintf("Total movies collected: %d", len(records))))

	SortRecords(records, e.locale)
	data := BuildCSV(records)
	filename := Filename(len(records), e.now())

	path, err := dl.Download(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	emit(models.Success("Movie collection complete! File saved as: " + filename))
	return &Result{Records: records, Filename: filename, Path: path}, nil
}

// pageError classifies a failed page step: cancellation is a timeout-class
// error, anything else means the tab went away.
func pageError(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewExportError(models.ErrCodeTimeout, "run canceled during "+step, err)
	}
	return models.NewExportError(models.ErrCodeNavigation, step+" failed", err)
}

