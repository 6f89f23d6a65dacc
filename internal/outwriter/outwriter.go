// Package outwriter has the table stores and the console reports of sonarscrape.
package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSV writes header and rows with the standard CSV writer.
// Console reports are quoted; only the exported tables use the literal layout.
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// renderTable draws a right-aligned tablewriter table.
func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// jsonResult is the console form of one export result.
type jsonResult struct {
	Kind       schema.ExportKind `json:"kind"`
	Project    string            `json:"project,omitempty"`
	File       string            `json:"file"`
	Rows       int               `json:"rows"`
	Columns    int               `json:"columns"`
	DurationMs int64             `json:"duration_ms"`
}

// WriteExportResults prints a summary of finished exports in the configured output format.
func WriteExportResults(w io.Writer, results []schema.ExportResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		out := make([]jsonResult, len(results))
		for i, r := range results {
			out[i] = jsonResult{
				Kind:       r.Kind,
				Project:    r.Project,
				File:       r.File,
				Rows:       r.Rows,
				Columns:    r.Columns,
				DurationMs: r.Duration.Milliseconds(),
			}
		}
		return writeJSON(w, out)
	case schema.CSVOut:
		rows := make([][]string, len(results))
		for i, r := range results {
			rows[i] = []string{
				string(r.Kind), r.Project, r.File,
				strconv.Itoa(r.Rows), strconv.Itoa(r.Columns),
				strconv.FormatInt(r.Duration.Milliseconds(), 10),
			}
		}
		return writeCSV(w, []string{"kind", "project", "file", "rows", "columns", "duration_ms"}, rows)
	default:
		width := GetMaxCellWidth(cfg, 5)
		data := make([][]string, len(results))
		for i, r := range results {
			data[i] = []string{
				string(r.Kind),
				contract.TruncateCell(r.Project, width),
				contract.TruncatePath(r.File, width),
				humanize.Comma(int64(r.Rows)),
				humanize.Comma(int64(r.Columns)),
				r.Duration.Round(time.Millisecond).String(),
			}
		}
		if err := renderTable(w, []string{"Kind", "Project", "File", "Rows", "Columns", "Took"}, data); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d export(s) completed in %v. Server: %s\n", len(results), duration.Round(time.Millisecond), cfg.Server)
		return err
	}
}

// WritePreview prints the header and the first cfg.Preview rows of table.
// Nothing is printed when the preview is disabled.
func WritePreview(w io.Writer, name string, table schema.Table, cfg *contract.Config) error {
	if cfg.Preview <= 0 || len(table.Header) == 0 {
		return nil
	}
	limit := min(cfg.Preview, len(table.Rows))
	rows := table.Rows[:limit]

	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, schema.Table{Header: table.Header, Rows: rows})
	case schema.CSVOut:
		return writeCSV(w, table.Header, rows)
	default:
		width := GetMaxCellWidth(cfg, len(table.Header))
		headers := make([]string, len(table.Header))
		for i, h := range table.Header {
			headers[i] = contract.TruncateCell(h, width)
		}
		data := make([][]string, len(rows))
		for i, row := range rows {
			data[i] = make([]string, len(row))
			for j, c := range row {
				data[i][j] = contract.TruncateCell(c, width)
			}
		}
		if _, err := fmt.Fprintf(w, "Preview of %s\n", name); err != nil {
			return err
		}
		if err := renderTable(w, headers, data); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Showing %d of %s rows\n", limit, humanize.Comma(int64(len(table.Rows))))
		return err
	}
}

// WriteProjects prints the projects found on the server.
func WriteProjects(w io.Writer, projects []schema.Project, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if projects == nil {
			projects = []schema.Project{}
		}
		return writeJSON(w, projects)
	case schema.CSVOut:
		rows := make([][]string, len(projects))
		for i, p := range projects {
			rows[i] = []string{p.Key, p.Name}
		}
		return writeCSV(w, []string{"key", "name"}, rows)
	default:
		width := GetMaxCellWidth(cfg, 2)
		data := make([][]string, len(projects))
		for i, p := range projects {
			data[i] = []string{strconv.Itoa(i + 1), contract.TruncateCell(p.Key, width), contract.TruncateCell(p.Name, width)}
		}
		if err := renderTable(w, []string{"#", "Key", "Name"}, data); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d project(s) on %s\n", len(projects), cfg.Server)
		return err
	}
}

// GetMaxCellWidth calculates the maximum width of one table cell based on the
// terminal width and the number of columns sharing it.
func GetMaxCellWidth(cfg *contract.Config, columns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	if columns < 1 {
		columns = 1
	}
	// Each column costs three characters of borders and padding
	available := (termWidth - 3*columns - 1) / columns
	if available < 8 {
		return 8
	}
	if available > 70 {
		return 70
	}
	return available
}
