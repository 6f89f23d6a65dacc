package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// ErrCannotNarrow is returned when a single rule key still matches more issues
// than the server will page through. Results are never truncated.
var ErrCannotNarrow = errors.New("issue query cannot be narrowed below the result window")

// Paginator pages through issues/search and splits rule sets that exceed the result window.
type Paginator struct {
	Fetcher      contract.Fetcher
	API          sonar.API
	PageSize     int
	ResultWindow int
}

// NewPaginator returns a paginator with the stock page size and result window.
func NewPaginator(fetcher contract.Fetcher, api sonar.API, limits contract.Limits) Paginator {
	return Paginator{
		Fetcher:      fetcher,
		API:          api,
		PageSize:     limits.IssuePageSize,
		ResultWindow: limits.ResultWindow,
	}
}

// FetchAllIssues returns every issue of component with one of statuses and one of ruleKeys,
// in server order. When the reported total exceeds the result window the rule keys are
// halved and each half is fetched on its own. An empty rule list performs no request.
func (p Paginator) FetchAllIssues(ctx context.Context, component, statuses string, ruleKeys []string) ([]schema.IssueEvent, error) {
	if len(ruleKeys) == 0 {
		return nil, nil
	}
	if p.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be greater than 0 (received %d)", p.PageSize)
	}

	first, err := p.page(ctx, component, statuses, ruleKeys, 1)
	if err != nil {
		return nil, err
	}

	if first.Total > p.ResultWindow {
		if len(ruleKeys) == 1 {
			return nil, fmt.Errorf("%w: %d issues of rule %s on %s (window %d)",
				ErrCannotNarrow, first.Total, ruleKeys[0], component, p.ResultWindow)
		}
		mid := len(ruleKeys) / 2
		left, err := p.FetchAllIssues(ctx, component, statuses, ruleKeys[:mid])
		if err != nil {
			return nil, err
		}
		right, err := p.FetchAllIssues(ctx, component, statuses, ruleKeys[mid:])
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}

	events := first.Issues
	// A full page always triggers one more request, even when total is an exact multiple.
	for n, page := len(first.Issues), 2; n >= p.PageSize; page++ {
		next, err := p.page(ctx, component, statuses, ruleKeys, page)
		if err != nil {
			return nil, err
		}
		events = append(events, next.Issues...)
		n = len(next.Issues)
	}
	return events, nil
}

func (p Paginator) page(ctx context.Context, component, statuses string, ruleKeys []string, page int) (schema.IssuePage, error) {
	body, err := p.Fetcher.Get(ctx, p.API.IssuesURL(component, statuses, ruleKeys, p.PageSize, page))
	if err != nil {
		return schema.IssuePage{}, err
	}
	result, err := sonar.ParseIssuePage(body)
	if err != nil {
		return schema.IssuePage{}, fmt.Errorf("issues page %d of %s: %w", page, component, err)
	}
	return result, nil
}
