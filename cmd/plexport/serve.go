package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/plexport/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export trigger over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		// Runs outlive the request that started them; shutdown cancels them.
		runCtx, cancelRuns := context.WithCancel(context.Background())
		defer cancelRuns()

		a, err := newApp(runCtx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		slog.Info("plexport starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"target", cfg.Scraper.TargetURL,
			"cdp", cfg.Browser.CDPURL != "",
		)

		router := api.NewRouter(a.ctrl, cfg, time.Now())

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			slog.Info("shutdown signal received", "signal", sig.String())
		case err := <-errCh:
			return fmt.Errorf("HTTP server: %w", err)
		}

		// Give in-flight requests 5 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}

		// An active run stops at its next step and closes its page.
		cancelRuns()
		for _, run := range a.ctrl.Runs() {
			if _, err := a.ctrl.Wait(ctx, run.ID); err != nil {
				slog.Warn("run did not stop before shutdown", "run", run.ID, "error", err)
			}
		}

		slog.Info("plexport stopped")
		return nil
	},
}
