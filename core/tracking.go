package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

// beginRun records the start of an export. It returns 0 when nothing is recorded.
func (e *Exporter) beginRun(start time.Time, kind schema.ExportKind, projectKey, name string) int64 {
	if e.runs == nil {
		return 0
	}
	runID, err := e.runs.BeginRun(start, kind, projectKey, name)
	if err != nil {
		logTrackingError("BeginRun", name, err)
		return 0
	}
	return runID
}

// endRun records how an export ended.
func (e *Exporter) endRun(runID int64, result schema.ExportResult, err error) {
	if e.runs == nil || runID == 0 {
		return
	}
	outcome := schema.RunOutcome{
		EndTime: e.now(),
		Rows:    result.Rows,
		Columns: result.Columns,
		Status:  runStatus(err),
		Err:     err,
	}
	if trackErr := e.runs.EndRun(runID, outcome); trackErr != nil {
		logTrackingError("EndRun", fmt.Sprintf("run %d", runID), trackErr)
	}
}

func runStatus(err error) schema.RunStatus {
	switch {
	case err == nil:
		return schema.RunSucceeded
	case errors.Is(err, context.Canceled):
		return schema.RunCancelled
	default:
		return schema.RunFailed
	}
}

// logTrackingError logs run store errors to stderr without disrupting the export.
func logTrackingError(operation, target string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, target), err)
}
