// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/qualitytrend/sonarscrape/schema"
)

// Fetcher performs a single GET against the server and returns the raw body.
// This allows the batching, paging and export logic to be tested without a network.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// TableSink receives finished tables. A write is all-or-nothing.
type TableSink interface {
	WriteTable(name string, table schema.Table) (string, error)
	WriteLines(name string, lines []string) (string, error)
}

// TableSource reads back tables and line lists written by a TableSink.
type TableSource interface {
	ReadTable(name string) (schema.Table, error)
	ReadLines(name string) ([]string, error)
}

// TableStore is a sink and a source over the same location.
type TableStore interface {
	TableSink
	TableSource
}

// RunStore defines the interface for recording export runs.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, kind schema.ExportKind, projectKey, outputFile string) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, outcome schema.RunOutcome) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStoreStatus, error)

	// GetAllRuns returns every recorded run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// Close closes the underlying connection
	Close() error
}

// StatusFunc receives coarse-grained progress messages.
type StatusFunc func(msg string)
