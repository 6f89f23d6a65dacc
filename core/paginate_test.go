package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

const testComponent = "org.apache:commons-cli"

func testPaginator(f contract.Fetcher) Paginator {
	return NewPaginator(f, testAPI(), contract.DefaultLimits())
}

func TestPaginator_EmptyRuleKeys(t *testing.T) {
	fetcher := &contract.MockFetcher{}
	events, err := testPaginator(fetcher).FetchAllIssues(context.Background(), testComponent, "OPEN", nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	fetcher.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestPaginator_InvalidPageSize(t *testing.T) {
	p := testPaginator(newFakeServer())
	p.PageSize = 0
	_, err := p.FetchAllIssues(context.Background(), testComponent, "OPEN", []string{"r"})
	assert.Error(t, err)
}

func TestPaginator_PageCounts(t *testing.T) {
	tests := []struct {
		name     string
		issues   int
		requests int
	}{
		{"no issues", 0, 1},
		{"partial page", 120, 1},
		{"exact multiple costs a trailing empty page", 1000, 3},
		{"one over", 1001, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeServer()
			server.addIssues(testComponent, "squid:S1", "2020-01-01", tt.issues)

			events, err := testPaginator(server).FetchAllIssues(context.Background(), testComponent, "OPEN", []string{"squid:S1"})
			require.NoError(t, err)
			assert.Len(t, events, tt.issues)
			assert.Equal(t, tt.requests, server.count("issues/search"))
		})
	}
}

func TestPaginator_SplitsAboveResultWindow(t *testing.T) {
	// 12000 issues spread over 40 rules, 300 each
	server := newFakeServer()
	rules := makeKeys(40, "squid:S")
	for i, r := range rules {
		server.addIssues(testComponent, r, fmt.Sprintf("2020-01-%02d", i%28+1), 300)
	}

	for _, n := range []int{1, 5, 33, 34, 40} {
		t.Run(fmt.Sprintf("%d rules", n), func(t *testing.T) {
			keys := rules[:n]
			events, err := testPaginator(server).FetchAllIssues(context.Background(), testComponent, "OPEN", keys)
			require.NoError(t, err)
			assert.Len(t, events, 300*n)

			perRule := make(map[string]int)
			for _, e := range events {
				perRule[e.Rule]++
			}
			assert.Len(t, perRule, n)
			for _, k := range keys {
				assert.Equal(t, 300, perRule[k])
			}
		})
	}
}

func TestPaginator_ConcatenatesHalvesInOrder(t *testing.T) {
	server := newFakeServer()
	server.window = 100
	server.addIssues(testComponent, "a", "2020-01-01", 60)
	server.addIssues(testComponent, "b", "2020-01-02", 60)

	p := testPaginator(server)
	p.ResultWindow = 100
	p.PageSize = 50
	events, err := p.FetchAllIssues(context.Background(), testComponent, "OPEN", []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, events, 120)
	assert.Equal(t, "a", events[0].Rule)
	assert.Equal(t, "b", events[119].Rule)
}

func TestPaginator_CannotNarrow(t *testing.T) {
	server := newFakeServer()
	server.addIssues(testComponent, "squid:S1", "2020-01-01", 10001)
	server.addIssues(testComponent, "squid:S2", "2020-01-01", 10)

	_, err := testPaginator(server).FetchAllIssues(context.Background(), testComponent, "OPEN", []string{"squid:S1", "squid:S2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCannotNarrow)
	assert.Contains(t, err.Error(), "squid:S1")
}

func TestPaginator_ClosedIssues(t *testing.T) {
	server := newFakeServer()
	server.issues = []fakeIssue{
		{Component: testComponent, Rule: "r", Created: "2019-01-01", Status: schema.StatusClosed, UpdateDate: "2019-06-01"},
		{Component: testComponent, Rule: "r", Created: "2019-02-01", Status: schema.StatusOpen, UpdateDate: "2019-03-01"},
	}

	events, err := testPaginator(server).FetchAllIssues(context.Background(), testComponent, "CLOSED,OPEN", []string{"r"})
	require.NoError(t, err)
	assert.Equal(t, []schema.IssueEvent{
		{CreationDate: "2019-01-01", ClosedDate: "2019-06-01", Rule: "r", Component: testComponent},
		{CreationDate: "2019-02-01", Rule: "r", Component: testComponent},
	}, events)
}

func TestPaginator_PropagatesErrors(t *testing.T) {
	server := newFakeServer()
	server.failPath = "issues/search"
	_, err := testPaginator(server).FetchAllIssues(context.Background(), testComponent, "OPEN", []string{"r"})
	var statusErr *sonar.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 404, statusErr.Code)
}

func TestPaginator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testPaginator(newFakeServer()).FetchAllIssues(ctx, testComponent, "OPEN", []string{"r"})
	assert.ErrorIs(t, err, context.Canceled)
}
