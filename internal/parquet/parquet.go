// Package parquet provides data structures and functions for exporting sonarscrape
// tables and run records to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/qualitytrend/sonarscrape/schema"
)

// ExportRun represents a single recorded export.
// This struct maps to the sonarscrape_export_runs database table.
type ExportRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Kind is the table the run produced (snapshot, history, issues, merged, nonempty)
	Kind string `parquet:"kind,snappy"`

	// ProjectKey is the project of single-project exports (empty for snapshot and merge)
	ProjectKey string `parquet:"project_key,snappy"`

	// OutputFile is the name the table was written under
	OutputFile string `parquet:"output_file,snappy"`

	// StartTime is when the export began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the export finished (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// RowCount is the number of data rows written
	RowCount int64 `parquet:"row_count,snappy"`

	// ColumnCount is the number of columns written
	ColumnCount int64 `parquet:"column_count,snappy"`

	// Status is succeeded, failed or cancelled (nullable while running)
	Status *string `parquet:"status,optional,snappy"`

	// ErrorMessage is the error of a failed run (nullable)
	ErrorMessage *string `parquet:"error_message,optional,snappy"`
}

// TableCell is one cell of an output table in long format.
// Tables have a column set that is only known at run time, so the sidecar
// stores (row, column, value) triples instead of one Parquet column per header.
type TableCell struct {
	// Row is the zero-based data row index
	Row int64 `parquet:"row,delta"`

	// Column is the header of the cell's column
	Column string `parquet:"column,dict,snappy"`

	// Value is the cell exactly as written to the CSV table
	Value string `parquet:"value,snappy"`
}

// WriteExportRunsParquet writes a slice of ExportRun structs to a Parquet file.
func WriteExportRunsParquet(data []ExportRun, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeRows(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteTableCells writes table to w in long format.
func WriteTableCells(w io.Writer, table schema.Table) error {
	return writeRows(w, TableCells(table))
}

// writeRows writes data with a schema inferred from the struct tags of T.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// TableCells flattens table row by row.
func TableCells(table schema.Table) []TableCell {
	cells := make([]TableCell, 0, len(table.Rows)*len(table.Header))
	for i, row := range table.Rows {
		for j, value := range row {
			if j >= len(table.Header) {
				break
			}
			cells = append(cells, TableCell{Row: int64(i), Column: table.Header[j], Value: value})
		}
	}
	return cells
}

// ConvertRunRecords converts schema.RunRecord to ExportRun for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []ExportRun {
	result := make([]ExportRun, len(records))
	for i, record := range records {
		result[i] = ExportRun{
			RunID:         record.RunID,
			Kind:          record.Kind,
			ProjectKey:    record.ProjectKey,
			OutputFile:    record.OutputFile,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			RowCount:      record.RowCount,
			ColumnCount:   record.ColumnCount,
			Status:        record.Status,
			ErrorMessage:  record.ErrorMessage,
		}
	}
	return result
}
