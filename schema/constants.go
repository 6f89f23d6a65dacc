package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the console report.
	OutputMode string

	// DatabaseBackend represents the database backend for run bookkeeping.
	DatabaseBackend string

	// ExportKind identifies which table an export produced.
	ExportKind string

	// RunStatus is the terminal state of a recorded export run.
	RunStatus string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All run-store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// All export kinds.
const (
	SnapshotExport ExportKind = "snapshot"
	HistoryExport  ExportKind = "history"
	IssuesExport   ExportKind = "issues"
	MergedExport   ExportKind = "merged"
	NonemptyExport ExportKind = "nonempty"
)

// Run states recorded by the run store.
const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Issue statuses understood by the issues endpoint.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Placeholders used for cells that have no value.
const (
	MissingMeasure = "null" // snapshot cells and history entries without a value
	MissingCount   = "0"    // issue counts and unseen history cells
)

// Column names with fixed meaning.
const (
	ProjectColumn = "_project"
	DateColumn    = "date"
)

// IssueLogHeader is the header row of every issue log table.
var IssueLogHeader = []string{"creation_date", "update_date", "rule", "component"}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid run-store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
