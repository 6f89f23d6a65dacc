package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/runstore"
	"github.com/qualitytrend/sonarscrape/schema"
)

// runsBackend holds the run-store settings for the runs subcommands.
var runsBackend struct {
	backend schema.DatabaseBackend
	connStr string
}

// runsConfig loads the minimal configuration needed for run-store operations.
func runsConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	backend, err := contract.ParseBackend(viper.GetString("runs-backend"))
	if err != nil {
		return err
	}
	connStr := viper.GetString("runs-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}
	runsBackend.backend = backend
	runsBackend.connStr = connStr
	return nil
}

// runsSetup loads the run-store configuration and opens the store.
// This is used by commands that need run access without the full shared setup.
func runsSetup() error {
	if err := runsConfig(); err != nil {
		return err
	}
	store, err := runstore.NewRunStore(runsBackend.backend, runsBackend.connStr)
	if err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	runStore = store
	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetupWrapper only loads configuration, so migrations can run on a fresh database.
func runsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsConfig()
}

// runsCmd focused on export run bookkeeping.
//
// Note: runs subcommands skip the full sharedSetup. They never talk to the server.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the record of past export runs",
	Long: `Manage the optional record of export runs.

When a runs backend is configured, sonarscrape stores one row per export:
kind, project, output file, start and end time, rows, columns and status.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show run statistics
  list    - Show the most recent runs
  export  - Export runs to Parquet
  clear   - Remove all run data
  migrate - Run database schema migrations

Examples:
  SONARSCRAPE_RUNS_BACKEND=sqlite sonarscrape runs status
  sonarscrape runs export --runs-backend sqlite --output-file runs.parquet`,
}

// runsStatusCmd shows run-store status.
var runsStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display run statistics and connection details",
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := runStore.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		runstore.PrintStatus(os.Stdout, status)
	},
}

// runsListCmd shows the most recent runs.
var runsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "Show the most recent export runs",
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := runStore.GetAllRuns()
		if err != nil {
			contract.LogFatal("Failed to list runs", err)
		}
		if err := runstore.PrintRuns(os.Stdout, runs, viper.GetInt("limit")); err != nil {
			contract.LogFatal("Error writing runs", err)
		}
	},
}

// runsClearCmd clears the run data.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded export runs",
	Long: `Delete all recorded export runs.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the runs and migration tables

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dbFile := runsBackend.connStr
		if dbFile == "" {
			dbFile = contract.GetRunsDBFilePath()
		}
		if err := runstore.Clear(runsBackend.backend, dbFile, runsBackend.connStr); err != nil {
			contract.LogFatal("Failed to clear runs", err)
		}
		fmt.Println("Run data cleared successfully.")
	},
}

// runsExportCmd exports runs to a Parquet file.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet",
	Long: `Export all recorded runs to a Parquet file for DuckDB, pandas or BI tools.

Requires: --output-file parameter

Examples:
  sonarscrape runs export --output-file runs.parquet
  duckdb -c "SELECT kind, avg(run_duration_ms) FROM 'runs.parquet' GROUP BY kind"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runstore.Export(os.Stdout, runStore, viper.GetString("output-file")); err != nil {
			contract.LogFatal("Failed to export runs", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  sonarscrape runs migrate

  # Rollback to initial state
  sonarscrape runs migrate --target-version 0`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		connStr := runsBackend.connStr
		if runsBackend.backend == schema.SQLiteBackend && connStr == "" {
			connStr = contract.GetRunsDBFilePath()
		}
		if err := runstore.Migrate(os.Stdout, runsBackend.backend, connStr, viper.GetInt("target-version")); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
