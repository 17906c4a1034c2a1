package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/config"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/logger"
	"github.com/shoppyshops/shoppyshops.shop/internal/infrastructure/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Connect to the configured database and bring the schema up to date.
Configuration is read the same way the server reads it (config.toml plus
SHOPPY_* environment variables).`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	log.Info("Schema is up to date", zap.String("driver", cfg.Database.Driver))
	return nil
}
