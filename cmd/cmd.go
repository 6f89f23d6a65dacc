// Package cmd defines the command-line interface for sonarscrape.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(nonemptyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("server", contract.DefaultServer, "SonarQube server address")
	rootCmd.PersistentFlags().String("language", contract.DefaultLanguage, "Language of the rules to query")
	rootCmd.PersistentFlags().String("timeout", "", "Timeout of each request (e.g. 30s, 0 = none)")
	rootCmd.PersistentFlags().StringP("output-dir", "d", ".", "Directory the tables are written to")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Console report format: text or csv or json")
	rootCmd.PersistentFlags().Bool("parquet", false, "Also write a Parquet copy of every table")
	rootCmd.PersistentFlags().Int("preview", 0, "Print the first N rows of each written table")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every request to stderr")
	rootCmd.PersistentFlags().StringP("filter", "f", contract.DefaultProjectFilter, "Select projects whose name contains this text")
	rootCmd.PersistentFlags().StringP("project", "p", contract.DefaultHistoryProject, "Project key for history, issues and merge")
	rootCmd.PersistentFlags().String("statuses", contract.DefaultIssueStatuses, "Comma-separated issue statuses to export")
	rootCmd.PersistentFlags().String("runs-backend", string(schema.NoneBackend), "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("runs-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("env-file", "", "Path to a .env file loaded before reading SONARSCRAPE_* variables")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runsListCmd to Viper
	runsListCmd.Flags().IntP("limit", "l", 20, "Number of runs to display (0 = all)")
	if err := viper.BindPFlags(runsListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs list flags", err)
	}

	// Bind all flags of runsExportCmd to Viper
	runsExportCmd.Flags().String("output-file", "", "Parquet file to write")
	if err := viper.BindPFlags(runsExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs export flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
