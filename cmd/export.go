package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/qualitytrend/sonarscrape/core"
	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/outwriter"
	"github.com/qualitytrend/sonarscrape/schema"
)

// exportFunc produces the results of one export command.
type exportFunc func(e *core.Exporter) ([]schema.ExportResult, error)

// runExport executes fn, previews the written tables and prints the summary.
func runExport(action string, fn exportFunc) {
	start := time.Now()
	results, err := fn(newExporter())
	if err != nil {
		contract.LogFatal("Cannot "+action, err)
	}
	for _, r := range results {
		if r.Kind == schema.NonemptyExport {
			continue
		}
		name := filepath.Base(r.File)
		table, err := tableStore.ReadTable(name)
		if err != nil {
			contract.LogWarn("Cannot preview "+name, err)
			continue
		}
		if err := outwriter.WritePreview(os.Stdout, name, table, cfg); err != nil {
			contract.LogFatal("Error writing preview", err)
		}
	}
	if err := outwriter.WriteExportResults(os.Stdout, results, cfg, time.Since(start)); err != nil {
		contract.LogFatal("Error writing results", err)
	}
}

// single adapts a one-table export to exportFunc.
func single(r schema.ExportResult, err error) ([]schema.ExportResult, error) {
	if err != nil {
		return nil, err
	}
	return []schema.ExportResult{r}, nil
}

// projectsCmd lists the projects on the server.
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects whose name contains --filter.",
	Long: `List the projects on the server whose name contains --filter.

Examples:
  # Projects of the default analysis set
  sonarscrape projects

  # Every project on the server
  sonarscrape projects --filter ""`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		projects, err := newExporter().Projects(rootCtx, cfg.ProjectFilter)
		if err != nil {
			contract.LogFatal("Cannot list projects", err)
		}
		if err := outwriter.WriteProjects(os.Stdout, projects, cfg); err != nil {
			contract.LogFatal("Error writing projects", err)
		}
	},
}

// snapshotCmd writes the current measures and issue counts of many projects.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export current measures and open issue counts per project.",
	Long: `Export one row per project with the current value of every metric and the number
of issues per rule.

Projects are selected by --filter. Missing measures are written as null, missing
issue counts as 0.

Examples:
  sonarscrape snapshot --filter "QC - col" --output-dir data`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExport("export snapshot", func(e *core.Exporter) ([]schema.ExportResult, error) {
			metricKeys, err := e.MetricKeys(rootCtx)
			if err != nil {
				return nil, err
			}
			ruleKeys, err := e.RuleKeys(rootCtx)
			if err != nil {
				return nil, err
			}
			projects, err := e.Projects(rootCtx, cfg.ProjectFilter)
			if err != nil {
				return nil, err
			}
			return single(e.ExportSnapshot(rootCtx, contract.SnapshotFile, core.ProjectKeys(projects), metricKeys, ruleKeys))
		})
	},
}

// nonemptyCmd writes the metrics with a usable history.
var nonemptyCmd = &cobra.Command{
	Use:   "nonempty",
	Short: "List the metrics that have more than one history point.",
	Long: `Write the keys of every metric whose history for --project has more than one point,
one per line. The history command can be narrowed to this list.`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExport("export nonempty metrics", func(e *core.Exporter) ([]schema.ExportResult, error) {
			metricKeys, err := e.MetricKeys(rootCtx)
			if err != nil {
				return nil, err
			}
			return single(e.ExportNonempty(rootCtx, contract.NonemptyFile, cfg.Project, metricKeys))
		})
	},
}

// historyCmd writes the measure history of one project.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Export the measure history of one project.",
	Long: `Export one row per analysis date of --project with a column per metric.

When the nonempty metric list exists in --output-dir it narrows the columns;
otherwise every metric is requested.

Examples:
  sonarscrape nonempty --project org.apache:commons-cli
  sonarscrape history --project org.apache:commons-cli`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExport("export history", func(e *core.Exporter) ([]schema.ExportResult, error) {
			metricKeys, err := tableStore.ReadLines(contract.NonemptyFile)
			if err != nil || len(metricKeys) == 0 {
				if metricKeys, err = e.MetricKeys(rootCtx); err != nil {
					return nil, err
				}
			}
			return single(e.ExportHistory(rootCtx, contract.HistoryFile, cfg.Project, metricKeys))
		})
	},
}

// issuesCmd writes the issue log of one project.
var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Export the issue log of one project.",
	Long: `Export every issue of --project with one of --statuses, as creation date,
update date, rule and component.

Queries above the server's result window are split by rule until every part fits.

Examples:
  sonarscrape issues --project org.apache:commons-cli --statuses OPEN,CLOSED`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExport("export issues", func(e *core.Exporter) ([]schema.ExportResult, error) {
			ruleKeys, err := e.RuleKeys(rootCtx)
			if err != nil {
				return nil, err
			}
			return single(e.ExportIssueLog(rootCtx, contract.IssuesFile, cfg.Project, cfg.Statuses, ruleKeys))
		})
	},
}

// mergeCmd joins the history and the issue log.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Add a daily open-issue count per rule to the measure history.",
	Long: `Read the history and issue tables from --output-dir and write the history with
one extra column per rule: the number of issues of that rule open on each date.

Run history and issues first.`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExport("merge history and issues", func(e *core.Exporter) ([]schema.ExportResult, error) {
			return single(e.ExportMerged(rootCtx, contract.MergedFile, contract.HistoryFile, contract.IssuesFile))
		})
	},
}

// runCmd runs the whole scrape.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full scrape: snapshot, nonempty, history, issues and merge.",
	Long: `Run every export in order, fetching the metric and rule lists once.
The first failure stops the run; tables already written are kept.

Examples:
  sonarscrape run --output-dir data --parquet
  SONARSCRAPE_RUNS_BACKEND=sqlite sonarscrape run`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExport("run pipeline", func(e *core.Exporter) ([]schema.ExportResult, error) {
			pc := core.DefaultPipelineConfig()
			pc.ProjectFilter = cfg.ProjectFilter
			pc.HistoryProject = cfg.Project
			pc.Statuses = cfg.Statuses
			return e.RunPipeline(rootCtx, pc)
		})
	},
}
