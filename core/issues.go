package core

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/qualitytrend/sonarscrape/schema"
)

// IssueLog builds the four-column issue table of one project.
func (e *Exporter) IssueLog(ctx context.Context, projectKey, statuses string, ruleKeys []string) (schema.Table, error) {
	events, err := e.fetchIssues(ctx, projectKey, statuses, ruleKeys)
	if err != nil {
		return schema.Table{}, err
	}
	e.report(fmt.Sprintf("Issues of %s: %s", projectKey, humanize.Comma(int64(len(events)))))
	return schema.IssueLogTable(events), nil
}

// Merge reads a history table and an issue log from the store and widens the
// history with running open-issue counts.
func (e *Exporter) Merge(ctx context.Context, measuresName, issuesName string) (schema.Table, error) {
	history, err := e.store.ReadTable(measuresName)
	if err != nil {
		return schema.Table{}, fmt.Errorf("reading %s: %w", measuresName, err)
	}
	issues, err := e.store.ReadTable(issuesName)
	if err != nil {
		return schema.Table{}, fmt.Errorf("reading %s: %w", issuesName, err)
	}
	events, err := schema.IssueEventsFromTable(issues)
	if err != nil {
		return schema.Table{}, fmt.Errorf("reading %s: %w", issuesName, err)
	}
	if err := ctx.Err(); err != nil {
		return schema.Table{}, err
	}
	return MergeSeries(history, events)
}

// fetchIssues splits ruleKeys into fixed-size batches and pages through each one.
func (e *Exporter) fetchIssues(ctx context.Context, projectKey, statuses string, ruleKeys []string) ([]schema.IssueEvent, error) {
	paginator := e.paginator()
	var events []schema.IssueEvent
	for _, batch := range CountBatcher(e.limits.RuleBatchSize).Split(ruleKeys, nil) {
		batchEvents, err := paginator.FetchAllIssues(ctx, projectKey, statuses, batch)
		if err != nil {
			return nil, fmt.Errorf("fetching issues of %s: %w", projectKey, err)
		}
		events = append(events, batchEvents...)
	}
	return events, nil
}
