package core

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/qualitytrend/sonarscrape/schema"
)

// MergeSeries widens a date-first history table with one column per rule, holding the
// number of issues of that rule open as of each row's date. Dates are compared as
// plain strings. Counts may go negative when an issue closes before any retained
// measurement saw it open; that is reported as computed.
func MergeSeries(history schema.Table, events []schema.IssueEvent) (schema.Table, error) {
	if len(history.Header) == 0 || history.Header[0] != schema.DateColumn {
		return schema.Table{}, fmt.Errorf("history table must start with a %q column", schema.DateColumn)
	}
	if err := history.Validate(); err != nil {
		return schema.Table{}, fmt.Errorf("history table: %w", err)
	}

	opened := make(map[string][]string)
	closed := make(map[string][]string)
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[e.Rule] = struct{}{}
		opened[e.CreationDate] = append(opened[e.CreationDate], e.Rule)
		if e.ClosedDate != "" {
			closed[e.ClosedDate] = append(closed[e.ClosedDate], e.Rule)
		}
	}

	rules := make([]string, 0, len(seen))
	for r := range seen {
		rules = append(rules, r)
	}
	slices.Sort(rules)

	counts := make(map[string]int, len(rules))
	merged := schema.Table{
		Header: append(slices.Clone(history.Header), rules...),
		Rows:   make([][]string, 0, len(history.Rows)),
	}
	for _, row := range history.Rows {
		date := row[0]
		for _, r := range opened[date] {
			counts[r]++
		}
		for _, r := range closed[date] {
			counts[r]--
		}
		out := make([]string, 0, len(merged.Header))
		out = append(out, row...)
		for _, r := range rules {
			out = append(out, strconv.Itoa(counts[r]))
		}
		merged.Rows = append(merged.Rows, out)
	}
	return merged, nil
}
