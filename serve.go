package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the /streets and /route HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadCore(cfg, logger)
		if err != nil {
			return err
		}
		if err := a.connect(ctx); err != nil {
			_ = a.Close()
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Warn("closing services", "error", err)
			}
		}()

		return serve(ctx, a)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides LOOPWALK_ADDR)")
}

// serve runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func serve(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: a.router(),
	}

	serverErrs := make(chan error, 1)
	go func() {
		a.logger.Info("loop walk server starting", "addr", a.cfg.Addr)
		serverErrs <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
