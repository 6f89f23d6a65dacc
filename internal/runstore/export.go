package runstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/parquet"
)

// ErrNoRuns is returned when there is nothing to export.
var ErrNoRuns = errors.New("no export runs found")

// Export writes every recorded run to a Parquet file at outputFile.
func Export(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return ErrNoRuns
	}
	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	records, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve export runs: %w", err)
	}
	runs := parquet.ConvertRunRecords(records)
	if err := parquet.WriteExportRunsParquet(runs, outputFile); err != nil {
		return fmt.Errorf("failed to write export runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d export runs to: %s\n", len(runs), outputFile)
	return nil
}
