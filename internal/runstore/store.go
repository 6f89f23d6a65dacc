// Package runstore keeps a record of every export in a SQL database.
package runstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"             // sqlite driver

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

// RunsTable is the table holding one row per export run.
const RunsTable = "sonarscrape_export_runs"

// Store implements contract.RunStore on top of database/sql.
type Store struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &Store{} // Compile-time check

// driverFor returns the database/sql driver name registered for a backend.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// openDB opens and pings the database behind backend.
// An empty SQLite connection string selects the default file in the home directory.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunsDBFilePath()
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check the connection string format: user:password@tcp(host:port)/dbname"
		case schema.PostgreSQLBackend:
			connDetail = "Check the connection string format: host=... port=... user=... password=... dbname=..."
		default:
			connDetail = "Check that the directory is writable."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// NewRunStore opens the run store for backend. The none backend returns a
// store that records nothing.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	if backend == schema.NoneBackend || backend == "" {
		return &Store{backend: schema.NoneBackend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createRunsQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", RunsTable, err)
	}
	return &Store{db: db, backend: backend}, nil
}

// createRunsQuery returns the CREATE TABLE statement for the runs table.
// It matches the first migration of each backend.
func createRunsQuery(backend schema.DatabaseBackend) string {
	table := quoteTableName(RunsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				kind VARCHAR(32) NOT NULL,
				project_key VARCHAR(400) NOT NULL,
				output_file TEXT NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				row_count BIGINT NOT NULL DEFAULT 0,
				column_count BIGINT NOT NULL DEFAULT 0,
				status VARCHAR(16),
				error_message TEXT
			);
		`, table)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				kind TEXT NOT NULL,
				project_key TEXT NOT NULL,
				output_file TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				row_count BIGINT NOT NULL DEFAULT 0,
				column_count BIGINT NOT NULL DEFAULT 0,
				status TEXT,
				error_message TEXT
			);
		`, table)
	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				kind TEXT NOT NULL,
				project_key TEXT NOT NULL,
				output_file TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				row_count INTEGER NOT NULL DEFAULT 0,
				column_count INTEGER NOT NULL DEFAULT 0,
				status TEXT,
				error_message TEXT
			);
		`, table)
	}
}

// Backend reports which backend the store writes to.
func (s *Store) Backend() schema.DatabaseBackend { return s.backend }

func (s *Store) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// BeginRun inserts a new run row and returns its ID.
func (s *Store) BeginRun(startTime time.Time, kind schema.ExportKind, projectKey, outputFile string) (int64, error) {
	if s.disabled() {
		return 0, nil
	}

	table := quoteTableName(RunsTable, s.backend)
	var runID int64
	var err error
	switch s.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (kind, project_key, output_file, start_time) VALUES ($1, $2, $3, $4) RETURNING run_id`, table)
		err = s.db.QueryRow(query, string(kind), projectKey, outputFile, startTime).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (kind, project_key, output_file, start_time) VALUES (?, ?, ?, ?)`, table)
		var result sql.Result
		result, err = s.db.Exec(query, string(kind), projectKey, outputFile, formatTime(startTime, s.backend))
		if err != nil {
			return 0, fmt.Errorf("failed to insert export run: %w", err)
		}
		runID, err = result.LastInsertId()
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert export run: %w", err)
	}
	return runID, nil
}

// EndRun stores the outcome of a run started with BeginRun.
func (s *Store) EndRun(runID int64, outcome schema.RunOutcome) error {
	if s.disabled() {
		return nil
	}

	table := quoteTableName(RunsTable, s.backend)
	var selectQuery string
	if s.backend == schema.PostgreSQLBackend {
		selectQuery = fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = $1`, table)
	} else {
		selectQuery = fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, table)
	}
	startTime, err := s.scanTime(s.db.QueryRow(selectQuery, runID))
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := outcome.EndTime.Sub(startTime).Milliseconds()
	var errMsg *string
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		errMsg = &msg
	}

	var updateQuery string
	var endTime any
	if s.backend == schema.PostgreSQLBackend {
		updateQuery = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, row_count = $3, column_count = $4, status = $5, error_message = $6 WHERE run_id = $7`, table)
		endTime = outcome.EndTime
	} else {
		updateQuery = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, row_count = ?, column_count = ?, status = ?, error_message = ? WHERE run_id = ?`, table)
		endTime = formatTime(outcome.EndTime, s.backend)
	}
	if _, err := s.db.Exec(updateQuery, endTime, durationMs, outcome.Rows, outcome.Columns, string(outcome.Status), errMsg, runID); err != nil {
		return fmt.Errorf("failed to update export run: %w", err)
	}
	return nil
}

// scanTime reads a single time column, parsing SQLite's text form.
func (s *Store) scanTime(row *sql.Row) (time.Time, error) {
	if s.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var str string
	if err := row.Scan(&str); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, str)
}

// GetStatus summarizes what the store holds.
func (s *Store) GetStatus() (schema.RunStoreStatus, error) {
	status := schema.RunStoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.disabled() {
		return status, nil
	}

	table := quoteTableName(RunsTable, s.backend)
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	status.TableSizes[RunsTable] = int64(status.TotalRuns)
	if status.TotalRuns == 0 {
		return status, nil
	}

	failedQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = '%s'", table, schema.RunFailed)
	if err := s.db.QueryRow(failedQuery).Scan(&status.FailedRuns); err != nil {
		return status, fmt.Errorf("failed to get failed runs: %w", err)
	}

	lastQuery := fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", table)
	if err := s.db.QueryRow(lastQuery).Scan(&status.LastRunID); err != nil {
		return status, fmt.Errorf("failed to get last run id: %w", err)
	}

	var err error
	lastTimeQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", table)
	if status.LastRunTime, err = s.scanTime(s.db.QueryRow(lastTimeQuery)); err != nil {
		return status, fmt.Errorf("failed to get last run time: %w", err)
	}
	oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", table)
	if status.OldestRunTime, err = s.scanTime(s.db.QueryRow(oldestQuery)); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}

	rowsQuery := fmt.Sprintf("SELECT COALESCE(SUM(row_count), 0) FROM %s", table)
	if err := s.db.QueryRow(rowsQuery).Scan(&status.TotalRows); err != nil {
		return status, fmt.Errorf("failed to get total rows: %w", err)
	}
	return status, nil
}

// GetAllRuns returns every recorded run ordered by ID.
func (s *Store) GetAllRuns() ([]schema.RunRecord, error) {
	if s.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, kind, project_key, output_file, start_time, end_time,
		run_duration_ms, row_count, column_count, status, error_message
		FROM %s ORDER BY run_id`, quoteTableName(RunsTable, s.backend))
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord
		switch s.backend {
		case schema.SQLiteBackend:
			var startStr string
			var endStr *string
			if err := rows.Scan(&r.RunID, &r.Kind, &r.ProjectKey, &r.OutputFile, &startStr, &endStr,
				&r.RunDurationMs, &r.RowCount, &r.ColumnCount, &r.Status, &r.ErrorMessage); err != nil {
				return nil, fmt.Errorf("failed to scan export run: %w", err)
			}
			if r.StartTime, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endStr != nil {
				end, err := time.Parse(time.RFC3339Nano, *endStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				r.EndTime = &end
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&r.RunID, &r.Kind, &r.ProjectKey, &r.OutputFile, &r.StartTime, &r.EndTime,
				&r.RunDurationMs, &r.RowCount, &r.ColumnCount, &r.Status, &r.ErrorMessage); err != nil {
				return nil, fmt.Errorf("failed to scan export run: %w", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export runs: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// quoteTableName quotes a table name for the backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return fmt.Sprintf("`%s`", name)
	}
	return fmt.Sprintf("%q", name)
}

// formatTime renders a time for an INSERT or UPDATE. SQLite stores text.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.Format(time.RFC3339Nano)
	}
	return t
}
