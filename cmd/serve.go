package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sistema-agil/vistoria/internal/handlers"
	"github.com/sistema-agil/vistoria/internal/session"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		listen     string
		sessionTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local capture API",
		Long: `Starts the capture API that browser and camera surfaces talk to.

Each session holds one inspection: form fields, photos, the optional
document and the client signature. Finalized inspections are sent to the
configured inspection service.`,
		Example: `  # Start server on the configured address (default :8888)
  vistoria serve

  # Start server on a custom address
  vistoria serve --listen :3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if listen != "" {
				cfg.Listen = listen
			}

			deps := session.Deps{
				Submitter: opts.client(),
				Throttle:  cfg.Throttle,
			}
			j, err := opts.openJournal()
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
				deps.Recorder = j
			}

			handler := handlers.New(deps, cfg.Device)
			server := &http.Server{
				Addr:              cfg.Listen,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx := cmd.Context()
			if sessionTTL > 0 {
				go pruneSessions(ctx, handler, sessionTTL)
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Vistoria capture API available", "addr", cfg.Listen, "service_url", cfg.ServiceURL, "device", cfg.Device)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 12*time.Hour, "Drop sessions unused for this long (0 keeps them forever)")

	return cmd
}

func pruneSessions(ctx context.Context, h *handlers.Handler, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Prune(ttl)
		}
	}
}
