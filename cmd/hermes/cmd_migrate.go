package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
	Long: `Apply all pending database migrations, or roll back the most recent ones.

Examples:
  # Apply pending migrations
  hermes migrate

  # Roll back the last migration
  hermes migrate --down 1
`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "Number of migrations to roll back")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	database, err := db.Open(cfg.Database.Path, db.Options{
		EnableWAL:         cfg.Database.EnableWAL,
		ConnectionTimeout: cfg.Database.ConnectionTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeAll(database, nil)

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if migrateDown > 0 {
		if err := db.RollbackMigrations(sqlDB, cfg.Database.MigrationsPath, migrateDown); err != nil {
			return err
		}
	} else if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	version, dirty, err := db.MigrationVersion(sqlDB, cfg.Database.MigrationsPath)
	if err != nil {
		return err
	}
	logger.Log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Database schema version")
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
