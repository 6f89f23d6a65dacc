package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qualitytrend/sonarscrape/core"
	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/outwriter"
	"github.com/qualitytrend/sonarscrape/internal/runstore"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. It is cancelled on SIGINT/SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger traces requests to the server.
var logger = contract.DiscardLogger()

// runStore records export runs. It is a no-op store unless a runs backend is configured.
var runStore *runstore.Store

// tableStore is where every output table is written and read back from.
var tableStore *outwriter.FileStore

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "sonarscrape",
	Short: "Scrape measures, history and issues from a SonarQube server.",
	Long: `Sonarscrape pulls code-quality data out of a SonarQube server into CSV tables
ready for analysis: current measures and issue counts per project, the measure
history of a project, its issue log and a daily open-issue series per rule.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeRunStore()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("SONARSCRAPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("server", contract.DefaultServer)
	viper.SetDefault("language", contract.DefaultLanguage)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("output-dir", ".")
	viper.SetDefault("filter", contract.DefaultProjectFilter)
	viper.SetDefault("project", contract.DefaultHistoryProject)
	viper.SetDefault("statuses", contract.DefaultIssueStatuses)
	viper.SetDefault("runs-backend", schema.NoneBackend)
	viper.SetDefault("runs-db-connect", "")
	viper.SetDefault("color", "yes")
}

// setConfigFile points viper at --config or the default .sonarscrape.yaml locations.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".sonarscrape") // Name of config file (without extension)
	viper.SetConfigType("yaml")         // We'll use YAML format
	viper.AddConfigPath(".")            // Look in the current directory
	viper.AddConfigPath("$HOME")        // Look in the home directory
}

// loadConfigFile loads the env file and the config file, both optional.
func loadConfigFile() error {
	if err := contract.LoadEnvFile(viper.GetString("env-file")); err != nil {
		return err
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read env and config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	if !cfg.UseColors {
		color.NoColor = true
	}
	logger = contract.NewLogger(os.Stderr, cfg.Verbose)
	tableStore = outwriter.NewFileStore(cfg.OutputDir, outwriter.WithParquetSidecars(cfg.Parquet))

	// 4. Initialize run tracking with validated config
	store, err := runstore.NewRunStore(cfg.RunsBackend, cfg.RunsDBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	runStore = store
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// exporterOptions are the exporter settings shared by the CLI and the MCP session.
func exporterOptions() []core.ExporterOption {
	return []core.ExporterOption{
		core.WithLimits(cfg.Limits),
		core.WithRunStore(runStore),
		core.WithLogger(logger),
	}
}

// newExporter wires the fetcher, table store and run store from cfg.
func newExporter() *core.Exporter {
	fetcher := sonar.NewHTTPFetcher(cfg.Timeout, logger)
	opts := append(exporterOptions(), core.WithStatus(printStatus))
	return core.NewExporter(fetcher, sonar.NewAPI(cfg.Server, cfg.Language), tableStore, opts...)
}

// printStatus shows exporter progress on stderr so stdout stays parseable.
func printStatus(msg string) {
	logger.Debug("status", slog.String("message", msg))
	if cfg.Output == schema.TextOut {
		_, _ = fmt.Fprintln(os.Stderr, msg)
	}
}

func closeRunStore() {
	if runStore == nil {
		return
	}
	if err := runStore.Close(); err != nil {
		contract.LogWarn("Failed to close run store", err)
	}
	runStore = nil
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	return rootCmd.Execute()
}
