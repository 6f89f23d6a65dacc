// Package schema has the models and constants shared by all parts of sonarscrape.
package schema

import (
	"fmt"
	"strings"
	"time"
)

// Project is a component with the TRK qualifier on the server.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// IssueEvent is the lifecycle of one static-analysis finding.
// ClosedDate is empty while the issue is still open.
type IssueEvent struct {
	CreationDate string `json:"creation_date"`
	ClosedDate   string `json:"closed_date"`
	Rule         string `json:"rule"`
	Component    string `json:"component"`
}

// HistoryPoint is one dated value of a metric.
type HistoryPoint struct {
	Date     string
	Value    string
	HasValue bool
}

// MetricHistory is the series of one metric for one component.
type MetricHistory struct {
	Metric string
	Points []HistoryPoint
}

// IssuePage is one page of the issues endpoint.
type IssuePage struct {
	Total  int
	Issues []IssueEvent
}

// Table is a rectangular, header-first dataset ready to be written out.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Validate checks that every row has the same arity as the header.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i+1, len(row), len(t.Header))
		}
	}
	return nil
}

// Column returns the index of the named column, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ExportResult summarizes one finished export.
type ExportResult struct {
	Kind     ExportKind    `json:"kind"`
	Project  string        `json:"project,omitempty"`
	File     string        `json:"file"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Duration time.Duration `json:"duration"`
}

// NormalizeValue replaces commas so a value can sit in an unquoted comma-separated row.
func NormalizeValue(v string) string {
	return strings.ReplaceAll(v, ",", ";")
}

// IssueLogTable flattens issue events into the four-column issue log.
func IssueLogTable(events []IssueEvent) Table {
	t := Table{Header: append([]string(nil), IssueLogHeader...)}
	t.Rows = make([][]string, 0, len(events))
	for _, e := range events {
		t.Rows = append(t.Rows, []string{
			NormalizeValue(e.CreationDate),
			NormalizeValue(e.ClosedDate),
			NormalizeValue(e.Rule),
			NormalizeValue(e.Component),
		})
	}
	return t
}

// IssueEventsFromTable is the inverse of IssueLogTable.
func IssueEventsFromTable(t Table) ([]IssueEvent, error) {
	if len(t.Header) < len(IssueLogHeader) {
		return nil, fmt.Errorf("issue log needs %d columns, got %d", len(IssueLogHeader), len(t.Header))
	}
	events := make([]IssueEvent, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) < len(IssueLogHeader) {
			return nil, fmt.Errorf("issue log row %d has %d cells", i+1, len(row))
		}
		events = append(events, IssueEvent{
			CreationDate: row[0],
			ClosedDate:   row[1],
			Rule:         row[2],
			Component:    row[3],
		})
	}
	return events, nil
}
