package runstore

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

const timeLayout = "2006-01-02 15:04:05"

// PrintStatus prints run store status information.
func PrintStatus(w io.Writer, status schema.RunStoreStatus) {
	_, _ = fmt.Fprintf(w, "Runs Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Failed Runs: %d\n", status.FailedRuns)
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format(timeLayout))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format(timeLayout))
		_, _ = fmt.Fprintf(w, "Total Rows Written: %s\n", humanize.Comma(status.TotalRows))
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// PrintRuns renders the most recent runs as a table, newest last.
// A limit of zero or less prints every run.
func PrintRuns(w io.Writer, runs []schema.RunRecord, limit int) error {
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}

	data := make([][]string, len(runs))
	for i, r := range runs {
		status := ""
		if r.Status != nil {
			status = *r.Status
		}
		took := "-"
		if r.RunDurationMs != nil {
			took = strconv.FormatInt(*r.RunDurationMs, 10) + "ms"
		}
		data[i] = []string{
			strconv.FormatInt(r.RunID, 10),
			r.Kind,
			contract.TruncateCell(r.ProjectKey, 40),
			contract.TruncatePath(r.OutputFile, 40),
			r.StartTime.Local().Format(timeLayout),
			took,
			humanize.Comma(r.RowCount),
			contract.GetColorStatus(status),
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Kind", "Project", "File", "Started", "Took", "Rows", "Status"})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
