package contract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitytrend/sonarscrape/schema"
)

func intPtr(i int) *int { return &i }

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       *ConfigRawInput
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:        "valid minimal config",
			input:       &ConfigRawInput{},
			expectError: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultServer, cfg.Server)
				assert.Equal(t, DefaultLanguage, cfg.Language)
				assert.Equal(t, schema.TextOut, cfg.Output)
				assert.Equal(t, schema.NoneBackend, cfg.RunsBackend)
				assert.Equal(t, DefaultLimits(), cfg.Limits)
				assert.Equal(t, DefaultIssueStatuses, cfg.Statuses)
				assert.Equal(t, ".", cfg.OutputDir)
				assert.True(t, cfg.UseColors)
			},
		},
		{
			name: "trailing slash is stripped",
			input: &ConfigRawInput{
				Server: "https://sonar.example.org/",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://sonar.example.org", cfg.Server)
			},
		},
		{
			name:        "server without scheme",
			input:       &ConfigRawInput{Server: "sonar.example.org"},
			expectError: true,
		},
		{
			name:        "invalid output",
			input:       &ConfigRawInput{Output: "xml"},
			expectError: true,
		},
		{
			name:        "invalid timeout",
			input:       &ConfigRawInput{Timeout: "soon"},
			expectError: true,
		},
		{
			name:  "timeout parsed",
			input: &ConfigRawInput{Timeout: "30s"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*time.Second, cfg.Timeout)
			},
		},
		{
			name:  "statuses normalized",
			input: &ConfigRawInput{Statuses: "open, closed"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "OPEN,CLOSED", cfg.Statuses)
			},
		},
		{
			name: "limit override",
			input: &ConfigRawInput{Limits: LimitsRawInput{
				MaxURLLength: intPtr(120),
				ResultWindow: intPtr(1000),
			}},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 120, cfg.Limits.MaxURLLength)
				assert.Equal(t, 1000, cfg.Limits.ResultWindow)
				assert.Equal(t, DefaultIssuePageSize, cfg.Limits.IssuePageSize)
			},
		},
		{
			name:        "zero limit rejected",
			input:       &ConfigRawInput{Limits: LimitsRawInput{RuleBatchSize: intPtr(0)}},
			expectError: true,
		},
		{
			name: "page size above window rejected",
			input: &ConfigRawInput{Limits: LimitsRawInput{
				ResultWindow:  intPtr(100),
				IssuePageSize: intPtr(500),
			}},
			expectError: true,
		},
		{
			name:        "negative preview",
			input:       &ConfigRawInput{Preview: -1},
			expectError: true,
		},
		{
			name:        "invalid color",
			input:       &ConfigRawInput{Color: "maybe"},
			expectError: true,
		},
		{
			name:        "invalid backend",
			input:       &ConfigRawInput{RunsBackend: "oracle"},
			expectError: true,
		},
		{
			name:        "mysql without connection string",
			input:       &ConfigRawInput{RunsBackend: "mysql"},
			expectError: true,
		},
		{
			name: "postgres with connection string",
			input: &ConfigRawInput{
				RunsBackend:   "postgresql",
				RunsDBConnect: "host=localhost port=5432 user=u password=p dbname=runs sslmode=disable",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.PostgreSQLBackend, cfg.RunsBackend)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := ProcessAndValidate(cfg, tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite ignores connection", schema.SQLiteBackend, "", false},
		{"none ignores connection", schema.NoneBackend, "garbage", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/runs", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/runs", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost user=u", true},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=runs", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Server: "http://a", Limits: DefaultLimits()}
	clone := cfg.Clone()
	clone.Server = "http://b"
	clone.Limits.ResultWindow = 1

	assert.Equal(t, "http://a", cfg.Server)
	assert.Equal(t, DefaultResultWindow, cfg.Limits.ResultWindow)
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("empty path is a no-op", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(""))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	})

	t.Run("sets variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("SONARSCRAPE_TEST_ENV_FILE=loaded\n"), 0o644))
		t.Cleanup(func() { _ = os.Unsetenv("SONARSCRAPE_TEST_ENV_FILE") })

		require.NoError(t, LoadEnvFile(path))
		assert.Equal(t, "loaded", os.Getenv("SONARSCRAPE_TEST_ENV_FILE"))
	})
}
