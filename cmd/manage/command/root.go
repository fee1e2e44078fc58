package command

// root.go defines the administrative CLI. Every subcommand talks to the
// database named by DATABASE_URL and applies migrations first.

import (
	"fmt"
	"os"

	"mediareview/database"
	"mediareview/internal/config"
	"mediareview/internal/logging"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "manage",
	Short: "manage - administrative tasks for the media review API",
	Long: `manage runs one-off maintenance tasks against the review database:
- apply schema migrations
- create or promote the bootstrap superuser
- import catalog fixtures from CSV files

Configuration is read from the environment (and .env) like the API server.`,
	SilenceUsage: true,
}

// Execute runs the selected subcommand and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, createSuperuserCmd, importCSVCmd)
}

// openDB loads config, sets up logging and returns a migrated connection.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}
	return cfg, db, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		return database.Close(db)
	},
}
