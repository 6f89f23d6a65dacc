package contract

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/qualitytrend/sonarscrape/schema"
)

// Default values for configuration.
const (
	DefaultServer         = "http://sonar.inf.unibz.it"
	DefaultLanguage       = "java"
	DefaultMaxURLLength   = 2000
	DefaultResultWindow   = 10000
	DefaultRuleBatchSize  = 40
	DefaultIssuePageSize  = 500
	DefaultRulesPageSize  = 500
	DefaultMetricsPage    = 1000
	DefaultHistoryPage    = 1000
	DefaultProjectsPage   = 1000
	DefaultProjectFilter  = "QC - col"
	DefaultHistoryProject = "org.apache:commons-cli"
	DefaultIssueStatuses  = "CLOSED,OPEN"
)

// Default output file names, matching the layout the analysis notebooks expect.
const (
	SnapshotFile = "current-measures-and-issues.csv"
	NonemptyFile = "nonempty-past-measures.txt"
	HistoryFile  = "measures.csv"
	IssuesFile   = "issues.csv"
	MergedFile   = "measures-and-issues.csv"
)

// Limits holds the server-side ceilings the batcher and paginator work under.
type Limits struct {
	MaxURLLength  int
	ResultWindow  int
	RuleBatchSize int
	IssuePageSize int
	RulesPageSize int
	MetricsPage   int
	HistoryPage   int
	ProjectsPage  int
}

// DefaultLimits returns the limits of a stock server.
func DefaultLimits() Limits {
	return Limits{
		MaxURLLength:  DefaultMaxURLLength,
		ResultWindow:  DefaultResultWindow,
		RuleBatchSize: DefaultRuleBatchSize,
		IssuePageSize: DefaultIssuePageSize,
		RulesPageSize: DefaultRulesPageSize,
		MetricsPage:   DefaultMetricsPage,
		HistoryPage:   DefaultHistoryPage,
		ProjectsPage:  DefaultProjectsPage,
	}
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Server   string
	Language string
	Limits   Limits
	Timeout  time.Duration

	OutputDir string
	Output    schema.OutputMode
	Parquet   bool
	Preview   int
	Width     int // Terminal width override (0 = auto-detect)
	UseColors bool
	Verbose   bool

	Project       string
	ProjectFilter string
	Statuses      string

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Server        string `mapstructure:"server"`
	Language      string `mapstructure:"language"`
	Timeout       string `mapstructure:"timeout"`
	OutputDir     string `mapstructure:"output-dir"`
	Output        string `mapstructure:"output"`
	Parquet       bool   `mapstructure:"parquet"`
	Preview       int    `mapstructure:"preview"`
	Width         int    `mapstructure:"width"`
	Color         string `mapstructure:"color"`
	Verbose       bool   `mapstructure:"verbose"`
	RunsBackend   string `mapstructure:"runs-backend"`
	RunsDBConnect string `mapstructure:"runs-db-connect"`

	// --- Fields from the export commands ---
	Project       string `mapstructure:"project"`
	ProjectFilter string `mapstructure:"filter"`
	Statuses      string `mapstructure:"statuses"`

	// --- Server limits from config file ---
	Limits LimitsRawInput `mapstructure:"limits"`
}

// LimitsRawInput holds optional overrides of the server ceilings.
type LimitsRawInput struct {
	MaxURLLength  *int `mapstructure:"max_url_length"`
	ResultWindow  *int `mapstructure:"result_window"`
	RuleBatchSize *int `mapstructure:"rule_batch_size"`
	IssuePageSize *int `mapstructure:"issue_page_size"`
	HistoryPage   *int `mapstructure:"history_page_size"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateServer(cfg, input); err != nil {
		return err
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processLimits(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// validateServer checks the server address and strips a trailing slash.
func validateServer(cfg *Config, input *ConfigRawInput) error {
	server, err := NormalizeServer(input.Server)
	if err != nil {
		return err
	}
	cfg.Server = server
	return nil
}

// NormalizeServer checks a server address and strips trailing slashes.
// An empty address selects DefaultServer.
func NormalizeServer(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		server = DefaultServer
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server address %q. must start with http:// or https://", server)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server address %q. missing host", server)
	}
	return strings.TrimRight(server, "/"), nil
}

// validateSimpleInputs processes and validates all non-limit fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Language = strings.TrimSpace(input.Language)
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	cfg.Parquet = input.Parquet
	cfg.Verbose = input.Verbose
	cfg.Width = input.Width
	cfg.Project = strings.TrimSpace(input.Project)
	cfg.ProjectFilter = input.ProjectFilter

	cfg.Statuses = strings.ToUpper(strings.ReplaceAll(input.Statuses, " ", ""))
	if cfg.Statuses == "" {
		cfg.Statuses = DefaultIssueStatuses
	}

	if input.Preview < 0 {
		return fmt.Errorf("preview must not be negative (received %d)", input.Preview)
	}
	cfg.Preview = input.Preview

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Timeout = 0
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", input.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must not be negative (received %s)", d)
		}
		cfg.Timeout = d
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	cfg.OutputDir = input.OutputDir
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	return nil
}

// processLimits applies config-file overrides on top of the stock limits.
func processLimits(cfg *Config, input *ConfigRawInput) error {
	cfg.Limits = DefaultLimits()
	overrides := []struct {
		name   string
		value  *int
		target *int
	}{
		{"max_url_length", input.Limits.MaxURLLength, &cfg.Limits.MaxURLLength},
		{"result_window", input.Limits.ResultWindow, &cfg.Limits.ResultWindow},
		{"rule_batch_size", input.Limits.RuleBatchSize, &cfg.Limits.RuleBatchSize},
		{"issue_page_size", input.Limits.IssuePageSize, &cfg.Limits.IssuePageSize},
		{"history_page_size", input.Limits.HistoryPage, &cfg.Limits.HistoryPage},
	}
	for _, o := range overrides {
		if o.value == nil {
			continue
		}
		if *o.value <= 0 {
			return fmt.Errorf("limits.%s must be greater than 0 (received %d)", o.name, *o.value)
		}
		*o.target = *o.value
	}
	if cfg.Limits.IssuePageSize > cfg.Limits.ResultWindow {
		return fmt.Errorf("limits.issue_page_size (%d) cannot exceed limits.result_window (%d)", cfg.Limits.IssuePageSize, cfg.Limits.ResultWindow)
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("runs-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("runs-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the run-store backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend, err := ParseBackend(input.RunsBackend)
	if err != nil {
		return err
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = input.RunsDBConnect
	return ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect)
}

// ParseBackend maps a backend name to a DatabaseBackend. Empty means none.
func ParseBackend(s string) (schema.DatabaseBackend, error) {
	if strings.TrimSpace(s) == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid runs backend '%s'. must be sqlite, mysql, postgresql, none", s)
	}
	return backend, nil
}
