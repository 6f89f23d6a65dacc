package core

import (
	"context"
	"fmt"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

// PipelineConfig names the inputs and outputs of a full scrape.
type PipelineConfig struct {
	ProjectFilter  string // substring of the project names in the snapshot
	HistoryProject string // project whose history, issues and merge are exported
	Statuses       string // issue statuses of the issue log

	SnapshotFile string
	NonemptyFile string
	HistoryFile  string
	IssuesFile   string
	MergedFile   string
}

// DefaultPipelineConfig returns the stock pipeline of the tool.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ProjectFilter:  contract.DefaultProjectFilter,
		HistoryProject: contract.DefaultHistoryProject,
		Statuses:       contract.DefaultIssueStatuses,
		SnapshotFile:   contract.SnapshotFile,
		NonemptyFile:   contract.NonemptyFile,
		HistoryFile:    contract.HistoryFile,
		IssuesFile:     contract.IssuesFile,
		MergedFile:     contract.MergedFile,
	}
}

// RunPipeline fetches the metric and rule universe once, then writes the snapshot,
// the nonempty metric list, the history narrowed by that list, the issue log and the
// merged table, in that order. The first error stops the run.
func (e *Exporter) RunPipeline(ctx context.Context, pc PipelineConfig) ([]schema.ExportResult, error) {
	metricKeys, err := e.MetricKeys(ctx)
	if err != nil {
		return nil, err
	}
	ruleKeys, err := e.RuleKeys(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := e.Projects(ctx, pc.ProjectFilter)
	if err != nil {
		return nil, err
	}
	e.report(fmt.Sprintf("Projects matching %q: %d", pc.ProjectFilter, len(projects)))

	var results []schema.ExportResult
	record := func(r schema.ExportResult, err error) error {
		if err != nil {
			return err
		}
		e.report(fmt.Sprintf("Saved %s", r.File))
		results = append(results, r)
		return nil
	}

	if err := record(e.ExportSnapshot(ctx, pc.SnapshotFile, ProjectKeys(projects), metricKeys, ruleKeys)); err != nil {
		return results, err
	}
	if err := record(e.ExportNonempty(ctx, pc.NonemptyFile, pc.HistoryProject, metricKeys)); err != nil {
		return results, err
	}
	usefulKeys, err := e.store.ReadLines(pc.NonemptyFile)
	if err != nil {
		return results, fmt.Errorf("reading %s: %w", pc.NonemptyFile, err)
	}
	if err := record(e.ExportHistory(ctx, pc.HistoryFile, pc.HistoryProject, usefulKeys)); err != nil {
		return results, err
	}
	if err := record(e.ExportIssueLog(ctx, pc.IssuesFile, pc.HistoryProject, pc.Statuses, ruleKeys)); err != nil {
		return results, err
	}
	if err := record(e.ExportMerged(ctx, pc.MergedFile, pc.HistoryFile, pc.IssuesFile)); err != nil {
		return results, err
	}
	return results, nil
}
