package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/hermes-playout/internal/config"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/enumerator"
	"github.com/stwalsh4118/hermes-playout/internal/events"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
	"github.com/stwalsh4118/hermes-playout/internal/telemetry"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "Hermes playout engine",
	Long:  "Hermes builds and serves the broadcast timelines of virtual TV channels from their schedules and collections.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and initializes the global logger
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	return nil
}

// openDatabase opens the configured database and applies pending migrations
func openDatabase() (*db.DB, error) {
	database, err := db.Open(cfg.Database.Path, db.Options{
		EnableWAL:         cfg.Database.EnableWAL,
		ConnectionTimeout: cfg.Database.ConnectionTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}

// newPublisher connects to NATS when a URL is configured
func newPublisher() (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		return events.Noop{}, nil
	}
	natsCfg := events.DefaultNATSConfig()
	natsCfg.URL = cfg.Events.NATSURL
	natsCfg.SubjectPrefix = cfg.Events.SubjectPrefix
	return events.NewNATSPublisher(natsCfg)
}

// newService wires the playout service from configuration
func newService(repos *db.Repositories, metrics *telemetry.Metrics, publisher events.Publisher) *playout.Service {
	builder := playout.NewBuilder(playout.BuilderOptions{
		DefaultOrder: models.PlaybackOrder(cfg.Playout.DefaultOrder),
		AvoidRepeats: cfg.Playout.AvoidRepeats,
		ReleaseOrder: enumerator.ByEpisode,
	})
	return playout.NewService(repos, playout.ServiceOptions{
		Builder:   builder,
		Metrics:   metrics,
		Publisher: publisher,
	})
}

// resolveChannel accepts a channel ID or name
func resolveChannel(ctx context.Context, repos *db.Repositories, ref string) (*models.Channel, error) {
	if id, err := uuid.Parse(ref); err == nil {
		ch, err := repos.Channels.GetByID(ctx, id)
		if err == nil {
			return ch, nil
		}
		if !db.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get channel: %w", err)
		}
	}
	ch, err := repos.Channels.GetByName(ctx, ref)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", playout.ErrChannelNotFound, ref)
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

// closeAll closes resources, logging failures
func closeAll(database *db.DB, publisher events.Publisher) {
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}
	if database != nil {
		if err := database.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
