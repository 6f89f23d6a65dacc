package core

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// projectSnapshot is the current state of one project before it is widened into a row.
type projectSnapshot struct {
	measures map[string]string
	counts   map[string]int
}

// Snapshot builds one row per project with its current measures and its open issue
// count per rule. The header is the sorted union of observed measure columns followed
// by the sorted union of observed rule columns. Missing measures are "null" and
// missing counts are "0".
func (e *Exporter) Snapshot(ctx context.Context, projectKeys, metricKeys, ruleKeys []string) (schema.Table, error) {
	measureCols := map[string]struct{}{schema.ProjectColumn: {}}
	ruleCols := make(map[string]struct{})
	snapshots := make([]projectSnapshot, 0, len(projectKeys))

	for i, key := range projectKeys {
		e.report(fmt.Sprintf("Fetching current state of %s (%d/%d)", key, i+1, len(projectKeys)))

		measures, err := e.CurrentMeasures(ctx, key, metricKeys)
		if err != nil {
			return schema.Table{}, err
		}
		measures[schema.ProjectColumn] = key
		for m := range measures {
			measureCols[m] = struct{}{}
		}

		events, err := e.fetchIssues(ctx, key, schema.StatusOpen, ruleKeys)
		if err != nil {
			return schema.Table{}, err
		}
		counts := make(map[string]int)
		for _, ev := range events {
			counts[ev.Rule]++
			ruleCols[ev.Rule] = struct{}{}
		}

		snapshots = append(snapshots, projectSnapshot{measures: measures, counts: counts})
	}

	measureHeader := sortedKeys(measureCols)
	ruleHeader := sortedKeys(ruleCols)

	table := schema.Table{
		Header: append(slices.Clone(measureHeader), ruleHeader...),
		Rows:   make([][]string, 0, len(snapshots)),
	}
	for _, s := range snapshots {
		row := make([]string, 0, len(table.Header))
		for _, m := range measureHeader {
			if v, ok := s.measures[m]; ok {
				row = append(row, schema.NormalizeValue(v))
			} else {
				row = append(row, schema.MissingMeasure)
			}
		}
		for _, r := range ruleHeader {
			row = append(row, strconv.Itoa(s.counts[r]))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// CurrentMeasures returns metric -> raw value for one project, batching metric keys
// under the URL length ceiling. No request is made for an empty key list.
func (e *Exporter) CurrentMeasures(ctx context.Context, projectKey string, metricKeys []string) (map[string]string, error) {
	joiner := func(keys []string) string { return e.api.MeasuresURL(projectKey, keys) }
	bodies, err := LengthBatcher(e.limits.MaxURLLength).Fetch(ctx, e.fetcher, metricKeys, joiner)
	if err != nil {
		return nil, fmt.Errorf("fetching measures of %s: %w", projectKey, err)
	}
	measures := make(map[string]string)
	for _, body := range bodies {
		batch, err := sonar.ParseComponentMeasures(body)
		if err != nil {
			return nil, fmt.Errorf("fetching measures of %s: %w", projectKey, err)
		}
		for k, v := range batch {
			measures[k] = v
		}
	}
	return measures, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
