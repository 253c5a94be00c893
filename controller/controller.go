// Package controller owns the export trigger. It locates the page context,
// starts the extractor on it and renders the status events the extractor
// sends back into the session log.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/plexport/extractor"
	"github.com/use-agent/plexport/history"
	"github.com/use-agent/plexport/models"
	"github.com/use-agent/plexport/scraper"
)

// eventBuffer is the capacity of the extractor -> controller channel.
const eventBuffer = 32

// PageContext is a page the extractor can drive and the controller releases.
type PageContext interface {
	extractor.Page
	Close()
}

// OpenFunc locates and prepares the page context for a run.
type OpenFunc func(ctx context.Context, target scraper.Target) (PageContext, error)

// FromScraper adapts a *scraper.Scraper to an OpenFunc.
func FromScraper(sc *scraper.Scraper) OpenFunc {
	return func(ctx context.Context, target scraper.Target) (PageContext, error) {
		p, err := sc.Open(ctx, target)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Runner executes one extraction run.
type Runner interface {
	Run(ctx context.Context, page extractor.Page, dl extractor.Downloader, events chan<- models.StatusEvent) (*extractor.Result, error)
}

// Notifier is called with a copy of every finished run.
type Notifier func(run models.ExportRun)

// Controller owns the trigger and the session log. At most one run is active
// at a time; the trigger is disabled while it runs.
type Controller struct {
	baseCtx context.Context
	open    OpenFunc
	runner  Runner
	history *history.History
	notify  Notifier

	mu      sync.Mutex
	enabled bool
	log     []models.LogMessage
	done    map[string]chan struct{}
}

// New creates a Controller. Runs are bound to ctx: cancelling it stops the
// active run, the equivalent of closing the page.
func New(ctx context.Context, open OpenFunc, runner Runner, hist *history.History) *Controller {
	return &Controller{
		baseCtx: ctx,
		open:    open,
		runner:  runner,
		history: hist,
		enabled: true,
		done:    make(map[string]chan struct{}),
	}
}

// SetNotifier sets the callback invoked when a run finishes.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	c.notify = n
	c.mu.Unlock()
}

// Enabled reports whether the trigger accepts a new run.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Start disables the trigger, locates the page context and launches the
// extractor on it. The returned run is a snapshot in the running state.
//
// When the page cannot be located the error is reported as a warning status,
// the trigger is re-enabled and an ErrCodeInjection error is returned.
func (c *Controller) Start(ctx context.Context, req models.ExportRequest) (*models.ExportRun, error) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil, models.NewExportError(models.ErrCodeBusy, "an export is already running", nil)
	}
	c.enabled = false
	c.mu.Unlock()

	page, err := c.open(ctx, scraper.Target{URL: req.URL, CDPURL: req.CDPURL})
	if err != nil {
		var exportErr *models.ExportError
		if !errors.As(err, &exportErr) || exportErr.Code != models.ErrCodeInjection {
			err = models.NewExportError(models.ErrCodeInjection, "failed to open library page", err)
		}
		c.OnStatus(models.ErrorStatus(err))
		c.setEnabled(true)
		return nil, err
	}

	run := &models.ExportRun{
		ID:        uuid.NewString(),
		URL:       req.URL,
		State:     models.RunRunning,
		StartedAt: time.Now(),
	}
	done := make(chan struct{})

	c.mu.Lock()
	c.done[run.ID] = done
	c.mu.Unlock()
	c.history.Put(run)

	slog.Info("export started", "run", run.ID, "url", req.URL, "outputDir", req.OutputDir)

	// Taken before the run goroutine starts: finish mutates run.
	snapshot := *run

	events := make(chan models.StatusEvent, eventBuffer)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for ev := range events {
			c.OnStatus(ev)
		}
	}()

	go func() {
		defer close(done)
		res, runErr := c.runner.Run(c.baseCtx, page, extractor.DirDownloader{Dir: req.OutputDir}, events)
		close(events)
		<-consumed
		page.Close()
		c.finish(run, res, runErr)
	}()

	return &snapshot, nil
}

// finish records the outcome, re-enables the trigger and notifies.
func (c *Controller) finish(run *models.ExportRun, res *extractor.Result, err error) {
	now := time.Now()
	run.FinishedAt = &now
	if err != nil {
		run.State = models.RunFailed
		run.Error = err.Error()
	} else {
		run.State = models.RunCompleted
		run.Records = len(res.Records)
		run.Filename = res.Filename
		run.Path = res.Path
	}
	c.history.Put(run)

	c.mu.Lock()
	c.enabled = true
	delete(c.done, run.ID)
	notify := c.notify
	c.mu.Unlock()

	slog.Info("export finished",
		"run", run.ID,
		"state", run.State,
		"records", run.Records,
		"file", run.Path,
		"duration", now.Sub(run.StartedAt).Round(time.Millisecond).String(),
	)

	if notify != nil {
		notify(*run)
	}
}

// OnStatus appends the event to the session log, tagged with its severity.
// Nothing is filtered or deduplicated; the log grows for the whole session.
func (c *Controller) OnStatus(ev models.StatusEvent) {
	c.mu.Lock()
	c.log = append(c.log, ev.ToLogMessage())
	c.mu.Unlock()

	switch ev.Kind {
	case models.StatusWarning:
		slog.Warn(ev.Message, "kind", ev.Kind)
	default:
		slog.Info(ev.Message, "kind", ev.Kind)
	}
}

// Log returns a copy of the session log.
func (c *Controller) Log() []models.LogMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.LogMessage, len(c.log))
	copy(out, c.log)
	return out
}

// Run returns a snapshot of the run with the given ID.
func (c *Controller) Run(id string) (*models.ExportRun, bool) {
	return c.history.Get(id)
}

// Runs returns snapshots of the known runs, most recent first.
func (c *Controller) Runs() []*models.ExportRun {
	return c.history.List()
}

// Wait blocks until the run finishes or ctx is done, then returns its snapshot.
func (c *Controller) Wait(ctx context.Context, id string) (*models.ExportRun, error) {
	c.mu.Lock()
	done, running := c.done[id]
	c.mu.Unlock()

	if running {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	run, ok := c.history.Get(id)
	if !ok {
		return nil, models.NewExportError(models.ErrCodeNotFound, "export run not found", nil)
	}
	return run, nil
}

func (c *Controller) setEnabled(v bool) {
	c.mu.Lock()
	c.enabled = v
	c.mu.Unlock()
}
