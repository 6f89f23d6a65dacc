// Package core has the batching, paging, series and export logic of sonarscrape.
package core

import (
	"log/slog"
	"time"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
)

// Exporter builds output tables from the server and writes them through a table store.
type Exporter struct {
	fetcher contract.Fetcher
	api     sonar.API
	store   contract.TableStore
	limits  contract.Limits
	runs    contract.RunStore
	status  contract.StatusFunc
	logger  *slog.Logger
	now     func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithLimits overrides the stock server limits.
func WithLimits(limits contract.Limits) ExporterOption {
	return func(e *Exporter) { e.limits = limits }
}

// WithRunStore records every export in runs.
func WithRunStore(runs contract.RunStore) ExporterOption {
	return func(e *Exporter) { e.runs = runs }
}

// WithStatus receives progress messages at coarse milestones.
func WithStatus(fn contract.StatusFunc) ExporterOption {
	return func(e *Exporter) { e.status = fn }
}

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = logger }
}

// NewExporter creates an Exporter. The store is used as both the sink of new tables
// and the source of tables that are merged.
func NewExporter(fetcher contract.Fetcher, api sonar.API, store contract.TableStore, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		fetcher: fetcher,
		api:     api,
		store:   store,
		limits:  contract.DefaultLimits(),
		logger:  contract.DiscardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the limits the exporter works under.
func (e *Exporter) Limits() contract.Limits {
	return e.limits
}

func (e *Exporter) report(msg string) {
	if e.status != nil {
		e.status(msg)
	}
}

func (e *Exporter) paginator() Paginator {
	return NewPaginator(e.fetcher, e.api, e.limits)
}
