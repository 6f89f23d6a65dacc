package schema

import "time"

// RunRecord represents a row from the sonarscrape_export_runs table.
type RunRecord struct {
	RunID         int64
	Kind          string
	ProjectKey    string
	OutputFile    string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	RowCount      int64
	ColumnCount   int64
	Status        *string
	ErrorMessage  *string
}

// RunOutcome is what an export reports back when it finishes.
type RunOutcome struct {
	EndTime time.Time
	Rows    int
	Columns int
	Status  RunStatus
	Err     error
}
