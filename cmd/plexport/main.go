package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/plexport/config"
	"github.com/use-agent/plexport/controller"
	"github.com/use-agent/plexport/extractor"
	"github.com/use-agent/plexport/history"
	"github.com/use-agent/plexport/models"
	"github.com/use-agent/plexport/scraper"
	"github.com/use-agent/plexport/webhook"
)

var (
	targetURL string
	cdpURL    string
	outputDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "plexport",
	Short: "Export a Plex movie library to CSV",
	Long: `plexport scrolls a Plex library page in a Chrome tab, collects every
"Title (Year)" it sees and saves the result as a UTF-8 CSV file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&targetURL, "url", "", "Plex library page (or tab URL substring when attaching); overrides PLEXPORT_TARGET_URL")
	rootCmd.PersistentFlags().StringVar(&cdpURL, "cdp-url", "", "attach to a running Chrome at this remote debugging URL; overrides PLEXPORT_CDP_URL")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "directory the CSV is written to; overrides PLEXPORT_OUTPUT_DIR")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error; overrides PLEXPORT_LOG_LEVEL")

	rootCmd.AddCommand(runCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if targetURL != "" {
		cfg.Scraper.TargetURL = targetURL
	}
	if cdpURL != "" {
		cfg.Browser.CDPURL = cdpURL
	}
	if outputDir != "" {
		cfg.Extractor.OutputDir = outputDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg
}

// app is the wired object graph shared by run and serve.
type app struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	ctrl    *controller.Controller
}

// newApp wires scraper, extractor, history and controller. Runs are bound to
// ctx; call close to kill the launched browser.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	// ── 1. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 2. Initialise extractor ─────────────────────────────────────
	ext, err := extractor.New(cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	// ── 3. Initialise scraper (browser launches on first run) ──────
	sc := scraper.NewScraper(cfg.Browser, cfg.Scraper)

	// ── 4. Initialise run history and controller ────────────────────
	hist := history.New(cfg.History.MaxEntries)
	ctrl := controller.New(ctx, controller.FromScraper(sc), ext, hist)

	if cfg.Webhook.URL != "" {
		ctrl.SetNotifier(webhook.NewSender(cfg.Webhook.URL, cfg.Webhook.Secret).Notify)
		slog.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	}

	return &app{cfg: cfg, scraper: sc, ctrl: ctrl}, nil
}

// request builds the export request from the configuration.
func (a *app) request() models.ExportRequest {
	var req models.ExportRequest
	req.Defaults(a.cfg.Scraper.TargetURL, a.cfg.Browser.CDPURL, a.cfg.Extractor.OutputDir)
	return req
}

func (a *app) close() {
	a.scraper.Close()
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
