package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the model API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				if addr != "" {
					a.cm.Override(func(c *Config) { c.ServerAddr = addr })
				}
				return serve(a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Override the configured listen address")
	return cmd
}

// serve runs the HTTP server until an OS signal or the shutdown endpoint asks
// it to stop, then saves every loaded model.
func serve(a *app) error {
	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan
		a.logger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	server := NewServer(a, actionChan)
	httpServer := &http.Server{
		Addr:              a.cm.Get().ServerAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting wordchain api server", "address", httpServer.Addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case action := <-actionChan:
		a.logger.Info("Stopping server for " + action + "...")
	case err := <-errChan:
		a.logger.Error("Api server failed", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Api server shutdown failed", "error", err)
	}
	a.logger.Info("HTTP server stopped.")

	if err := a.registry.SaveAll(ctx); err != nil {
		a.logger.Error("Failed to save models", "error", err)
		return err
	}
	a.logger.Info("wordchain has shut down.")
	return nil
}
