package core

import (
	"context"
	"fmt"

	"github.com/qualitytrend/sonarscrape/schema"
)

// buildFunc produces a complete table in memory.
type buildFunc func(ctx context.Context) (schema.Table, error)

// ExportSnapshot writes the current snapshot of projectKeys to name.
func (e *Exporter) ExportSnapshot(ctx context.Context, name string, projectKeys, metricKeys, ruleKeys []string) (schema.ExportResult, error) {
	return e.exportTable(ctx, schema.SnapshotExport, "", name, func(ctx context.Context) (schema.Table, error) {
		return e.Snapshot(ctx, projectKeys, metricKeys, ruleKeys)
	})
}

// ExportHistory writes the measure history of projectKey to name.
func (e *Exporter) ExportHistory(ctx context.Context, name, projectKey string, metricKeys []string) (schema.ExportResult, error) {
	return e.exportTable(ctx, schema.HistoryExport, projectKey, name, func(ctx context.Context) (schema.Table, error) {
		return e.History(ctx, projectKey, metricKeys)
	})
}

// ExportIssueLog writes the issue log of projectKey to name.
func (e *Exporter) ExportIssueLog(ctx context.Context, name, projectKey, statuses string, ruleKeys []string) (schema.ExportResult, error) {
	return e.exportTable(ctx, schema.IssuesExport, projectKey, name, func(ctx context.Context) (schema.Table, error) {
		return e.IssueLog(ctx, projectKey, statuses, ruleKeys)
	})
}

// ExportMerged reads measuresName and issuesName from the store and writes the merged table to name.
func (e *Exporter) ExportMerged(ctx context.Context, name, measuresName, issuesName string) (schema.ExportResult, error) {
	return e.exportTable(ctx, schema.MergedExport, "", name, func(ctx context.Context) (schema.Table, error) {
		return e.Merge(ctx, measuresName, issuesName)
	})
}

// ExportNonempty writes the metric keys with a usable history on projectKey to name, one per line.
func (e *Exporter) ExportNonempty(ctx context.Context, name, projectKey string, metricKeys []string) (schema.ExportResult, error) {
	start := e.now()
	runID := e.beginRun(start, schema.NonemptyExport, projectKey, name)

	result := schema.ExportResult{Kind: schema.NonemptyExport, Project: projectKey, Columns: 1}
	keys, err := e.NonemptyMetricKeys(ctx, projectKey, metricKeys)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		result.File, err = e.store.WriteLines(name, keys)
	}
	result.Rows = len(keys)
	result.Duration = e.now().Sub(start)
	e.endRun(runID, result, err)
	if err != nil {
		return schema.ExportResult{}, err
	}
	return result, nil
}

// exportTable builds the whole table before anything is written, so a failed or
// cancelled export leaves no partial output behind.
func (e *Exporter) exportTable(ctx context.Context, kind schema.ExportKind, projectKey, name string, build buildFunc) (schema.ExportResult, error) {
	start := e.now()
	runID := e.beginRun(start, kind, projectKey, name)

	result := schema.ExportResult{Kind: kind, Project: projectKey}
	table, err := build(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = table.Validate()
	}
	if err == nil {
		result.File, err = e.store.WriteTable(name, table)
	}
	if err == nil {
		result.Rows = len(table.Rows)
		result.Columns = len(table.Header)
	}
	result.Duration = e.now().Sub(start)
	e.endRun(runID, result, err)
	if err != nil {
		return schema.ExportResult{}, fmt.Errorf("%s export: %w", kind, err)
	}
	return result, nil
}
