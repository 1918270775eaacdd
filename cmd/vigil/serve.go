package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/vigil"
	"github.com/aretw0/vigil/internal/presentation/tui"
	httpAdapter "github.com/aretw0/vigil/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the catalog over a JSON API: schema listing and description,
validation, stored reports and their diffs, and an SSE stream of report diffs.
Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, logger, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()

		port, _ := cmd.Flags().GetString("port")
		watch, _ := cmd.Flags().GetBool("watch")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watch {
			changes, err := setup.Engine.Watch(ctx)
			if err != nil {
				return err
			}
			go func() {
				for name := range changes {
					logger.Info("catalog reloaded", "changed", name)
				}
			}()
		}

		handler := httpAdapter.NewHandler(setup.Engine,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(setup.Metrics.Handler()),
			httpAdapter.WithVersion(strings.TrimSpace(vigil.Version)),
		)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			if isTerminal() {
				tui.PrintBanner(cmd.OutOrStdout())
			}
			dir, _ := cmd.Flags().GetString("dir")
			fmt.Fprintf(cmd.OutOrStdout(), "Starting Vigil Server on %s\n", srv.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %d schemas from: %s\n", len(setup.Engine.Schemas()), dir)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "\nStart shutdown...")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Vigil Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("watch", false, "Reload the catalog when definitions change")
}
