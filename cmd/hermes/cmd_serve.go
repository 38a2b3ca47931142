package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/server"
	"github.com/stwalsh4118/hermes-playout/internal/telemetry"
	"github.com/stwalsh4118/hermes-playout/internal/worker"
)

const shutdownTimeout = 30 * time.Second

var serveNoWorkers bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and channel workers",
	Long:  "Start the HTTP API and one background worker per channel that keeps each timeline built ahead of the wall clock.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWorkers, "no-workers", false, "Serve the API without background builds")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Log.Info().Msg("Hermes playout engine starting")

	database, err := openDatabase()
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("path", cfg.Database.Path).
		Msg("Database ready")

	publisher, err := newPublisher()
	if err != nil {
		closeAll(database, nil)
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}
	defer closeAll(database, publisher)

	repos := db.NewRepositories(database)
	metrics := telemetry.NewMetrics()
	service := newService(repos, metrics, publisher)

	var workers *worker.Manager
	if !serveNoWorkers {
		workers = worker.NewManager(service, repos.Channels, worker.Options{
			Lookahead: cfg.Playout.Lookahead,
			Interval:  cfg.Playout.BuildInterval,
			Retention: cfg.Playout.HistoryRetention,
		})
	}

	srv := server.New(cfg, database, service, metrics, workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
