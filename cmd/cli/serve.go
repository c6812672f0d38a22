// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"webqa/internal/api"
	"webqa/internal/discovery"
	"webqa/internal/logger"
	"webqa/internal/runner"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts an HTTP server exposing endpoint resolution, test discovery and runs as
a JSON API. GET /api/run/stream runs the suite and streams its output as
Server-Sent Events.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Note: SSH manager is already initialized in PersistentPreRunE of rootCmd
		planner, err := newPlanner()
		if err != nil {
			return err
		}
		warnMissingConfig(cmd.ErrOrStderr())

		server := &api.Server{
			Planner: planner,
			Finder:  discovery.NewFinder(sshManager, cfg.Runner),
			Config:  cfg,
			Runner:  runner.New(sshManager),
		}
		router := mux.NewRouter()
		server.RegisterRoutes(router)

		return runWebServer(cmd.Context(), router, func(addr string) {
			statusColor.Fprintf(cmd.OutOrStdout(), "Starting web server on %s\n", addr)
		})
	},
}

// runWebServer serves until ctx is cancelled, then shuts down gracefully.
func runWebServer(ctx context.Context, handler http.Handler, started func(addr string)) error {
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	started(serveAddr)

	select {
	case err := <-errChan:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down web server", "addr", serveAddr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown failed: %w", err)
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
