package core

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// MetricKeys returns every metric key known to the server.
// A count that differs from the reported total is logged, not fatal.
func (e *Exporter) MetricKeys(ctx context.Context) ([]string, error) {
	body, err := e.fetcher.Get(ctx, e.api.MetricsURL(e.limits.MetricsPage))
	if err != nil {
		return nil, fmt.Errorf("fetching metrics: %w", err)
	}
	keys, total, err := sonar.ParseMetricKeys(body)
	if err != nil {
		return nil, fmt.Errorf("fetching metrics: %w", err)
	}
	if len(keys) != total {
		e.logger.Warn("metric count differs from reported total", "received", len(keys), "total", total)
	}
	e.report(fmt.Sprintf("Metrics found: %s", humanize.Comma(int64(len(keys)))))
	return keys, nil
}

// RuleKeys returns every rule key of the configured language, paging until
// page*pageSize reaches the reported total.
func (e *Exporter) RuleKeys(ctx context.Context) ([]string, error) {
	pageSize := e.limits.RulesPageSize
	if pageSize <= 0 {
		return nil, fmt.Errorf("rules page size must be greater than 0 (received %d)", pageSize)
	}
	var keys []string
	for page := 1; ; page++ {
		body, err := e.fetcher.Get(ctx, e.api.RulesURL(pageSize, page))
		if err != nil {
			return nil, fmt.Errorf("fetching rules page %d: %w", page, err)
		}
		pageKeys, total, err := sonar.ParseRuleKeys(body)
		if err != nil {
			return nil, fmt.Errorf("fetching rules page %d: %w", page, err)
		}
		keys = append(keys, pageKeys...)
		if total <= page*pageSize {
			break
		}
	}
	e.report(fmt.Sprintf("Rules found: %s", humanize.Comma(int64(len(keys)))))
	return keys, nil
}

// Projects returns the projects whose name contains substring.
// An empty substring lists every project visible in one page.
func (e *Exporter) Projects(ctx context.Context, substring string) ([]schema.Project, error) {
	body, err := e.fetcher.Get(ctx, e.api.ComponentsURL(substring, e.limits.ProjectsPage))
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	projects, err := sonar.ParseComponents(body)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	return projects, nil
}

// ProjectKeys returns the keys of projects.
func ProjectKeys(projects []schema.Project) []string {
	keys := make([]string, len(projects))
	for i, p := range projects {
		keys[i] = p.Key
	}
	return keys
}
