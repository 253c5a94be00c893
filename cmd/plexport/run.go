package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/plexport/models"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one export and exit",
	Long: `Opens the library page (or attaches to a running Chrome with --cdp-url),
collects movies until the page stops yielding new ones and writes the CSV.
Interrupting the command stops the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, loadConfig())
		if err != nil {
			return err
		}
		defer a.close()

		run, err := a.ctrl.Start(ctx, a.request())
		if err != nil {
			return err
		}

		// The run observes ctx itself; Wait must outlive it to see the outcome.
		final, err := a.ctrl.Wait(context.WithoutCancel(ctx), run.ID)
		if err != nil {
			return err
		}
		if final.State != models.RunCompleted {
			return fmt.Errorf("export %s: %s", final.State, final.Error)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d movies written to %s\n", final.Records, final.Path)
		return nil
	},
}
