package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// History builds the date-indexed measure table of one project. Columns are "date"
// followed by metricKeys in the given order, repeated keys kept once. Cells the server never reported are "0";
// reported entries without a value are "null". Only one page of history is read.
func (e *Exporter) History(ctx context.Context, projectKey string, metricKeys []string) (schema.Table, error) {
	metricKeys = uniqueKeys(metricKeys)
	series, err := e.fetchHistory(ctx, projectKey, metricKeys)
	if err != nil {
		return schema.Table{}, err
	}

	column := make(map[string]int, len(metricKeys))
	for i, k := range metricKeys {
		column[k] = i
	}

	byDate := make(map[string][]string)
	for _, mh := range series {
		col, ok := column[mh.Metric]
		if !ok {
			continue
		}
		for _, p := range mh.Points {
			row, ok := byDate[p.Date]
			if !ok {
				row = make([]string, len(metricKeys))
				for i := range row {
					row[i] = schema.MissingCount
				}
				byDate[p.Date] = row
			}
			if p.HasValue {
				row[col] = schema.NormalizeValue(p.Value)
			} else {
				row[col] = schema.MissingMeasure
			}
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	slices.Sort(dates)

	table := schema.Table{
		Header: append([]string{schema.DateColumn}, metricKeys...),
		Rows:   make([][]string, 0, len(dates)),
	}
	for _, d := range dates {
		table.Rows = append(table.Rows, append([]string{schema.NormalizeValue(d)}, byDate[d]...))
	}
	e.report(fmt.Sprintf("History of %s: %d dates, %d metrics", projectKey, len(dates), len(metricKeys)))
	return table, nil
}

// NonemptyMetricKeys returns the metrics whose history on projectKey has at least two
// points, in server order. The result narrows a later History call.
func (e *Exporter) NonemptyMetricKeys(ctx context.Context, projectKey string, metricKeys []string) ([]string, error) {
	series, err := e.fetchHistory(ctx, projectKey, metricKeys)
	if err != nil {
		return nil, err
	}
	var kept []string
	for _, mh := range series {
		if len(mh.Points) > 1 {
			kept = append(kept, mh.Metric)
		}
	}
	e.report(fmt.Sprintf("Nonempty past measures: %d of %d", len(kept), len(metricKeys)))
	return kept, nil
}

// fetchHistory runs the batched search_history query and concatenates the series.
func (e *Exporter) fetchHistory(ctx context.Context, projectKey string, metricKeys []string) ([]schema.MetricHistory, error) {
	joiner := func(keys []string) string { return e.api.HistoryURL(projectKey, keys, e.limits.HistoryPage) }
	bodies, err := LengthBatcher(e.limits.MaxURLLength).Fetch(ctx, e.fetcher, metricKeys, joiner)
	if err != nil {
		return nil, fmt.Errorf("fetching history of %s: %w", projectKey, err)
	}
	var series []schema.MetricHistory
	for _, body := range bodies {
		batch, err := sonar.ParseHistory(body)
		if err != nil {
			return nil, fmt.Errorf("fetching history of %s: %w", projectKey, err)
		}
		series = append(series, batch...)
	}
	return series, nil
}

// uniqueKeys drops repeated keys, keeping the first occurrence.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
