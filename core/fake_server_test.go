package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

const testServer = "http://sonar.test"

// fakeIssue is one issue stored by fakeServer.
type fakeIssue struct {
	Component  string
	Rule       string
	Created    string
	Status     string
	UpdateDate string
}

// fakeServer answers the endpoints used by the exporter from in-memory data.
// It enforces the result window the way the real server does.
type fakeServer struct {
	mu       sync.Mutex
	requests []string

	metrics  []string
	rules    []string
	projects []schema.Project
	measures map[string]map[string]string                // project -> metric -> value
	history  map[string]map[string][]schema.HistoryPoint // project -> metric -> points
	issues   []fakeIssue
	window   int
	failPath string // endpoint answering 404
}

var _ contract.Fetcher = &fakeServer{} // Compile-time check

func newFakeServer() *fakeServer {
	return &fakeServer{
		measures: make(map[string]map[string]string),
		history:  make(map[string]map[string][]schema.HistoryPoint),
		window:   contract.DefaultLimits().ResultWindow,
	}
}

func testAPI() sonar.API {
	return sonar.NewAPI(testServer, "java")
}

// count returns how many requests hit the endpoint.
func (f *fakeServer) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.Contains(r, "/api/"+endpoint+"?") {
			n++
		}
	}
	return n
}

func (f *fakeServer) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, rawURL)
	f.mu.Unlock()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimPrefix(u.Path, "/api/")
	if endpoint == f.failPath {
		return nil, &sonar.StatusError{Code: 404, URL: rawURL}
	}
	q := u.Query()
	switch endpoint {
	case "metrics/search":
		return f.metricsSearch()
	case "rules/search":
		return f.rulesSearch(q)
	case "components/search":
		return f.componentsSearch(q)
	case "measures/component":
		return f.measuresComponent(q)
	case "measures/search_history":
		return f.searchHistory(q)
	case "issues/search":
		return f.issuesSearch(q)
	default:
		return nil, &sonar.StatusError{Code: 404, URL: rawURL}
	}
}

func intParam(q url.Values, name string) int {
	n, _ := strconv.Atoi(q.Get(name))
	return n
}

func listParam(q url.Values, name string) []string {
	return contract.SplitList(q.Get(name))
}

func keyed(keys []string) []map[string]string {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = map[string]string{"key": k}
	}
	return out
}

func (f *fakeServer) metricsSearch() ([]byte, error) {
	return json.Marshal(map[string]any{"total": len(f.metrics), "metrics": keyed(f.metrics)})
}

func (f *fakeServer) rulesSearch(q url.Values) ([]byte, error) {
	ps, p := intParam(q, "ps"), intParam(q, "p")
	lo := min((p-1)*ps, len(f.rules))
	hi := min(lo+ps, len(f.rules))
	return json.Marshal(map[string]any{"total": len(f.rules), "rules": keyed(f.rules[lo:hi])})
}

func (f *fakeServer) componentsSearch(q url.Values) ([]byte, error) {
	components := []map[string]string{}
	for _, p := range f.projects {
		if strings.Contains(p.Name, q.Get("q")) {
			components = append(components, map[string]string{"key": p.Key, "name": p.Name})
		}
	}
	return json.Marshal(map[string]any{"components": components})
}

func (f *fakeServer) measuresComponent(q url.Values) ([]byte, error) {
	values := f.measures[q.Get("componentKey")]
	measures := []map[string]string{}
	for _, m := range listParam(q, "metricKeys") {
		if v, ok := values[m]; ok {
			measures = append(measures, map[string]string{"metric": m, "value": v})
		}
	}
	return json.Marshal(map[string]any{"component": map[string]any{"measures": measures}})
}

func (f *fakeServer) searchHistory(q url.Values) ([]byte, error) {
	series := f.history[q.Get("component")]
	measures := []map[string]any{}
	for _, m := range listParam(q, "metrics") {
		points, ok := series[m]
		if !ok {
			continue
		}
		history := make([]map[string]string, len(points))
		for i, p := range points {
			history[i] = map[string]string{"date": p.Date}
			if p.HasValue {
				history[i]["value"] = p.Value
			}
		}
		measures = append(measures, map[string]any{"metric": m, "history": history})
	}
	return json.Marshal(map[string]any{
		"paging":   map[string]int{"pageIndex": 1, "pageSize": intParam(q, "ps"), "total": len(measures)},
		"measures": measures,
	})
}

func (f *fakeServer) issuesSearch(q url.Values) ([]byte, error) {
	rules := listParam(q, "rules")
	statuses := listParam(q, "statuses")
	component := q.Get("componentKeys")
	var matched []fakeIssue
	for _, is := range f.issues {
		if is.Component == component && slices.Contains(rules, is.Rule) && slices.Contains(statuses, is.Status) {
			matched = append(matched, is)
		}
	}

	ps, p := intParam(q, "ps"), intParam(q, "p")
	if p*ps > f.window {
		return nil, fmt.Errorf("page %d of size %d is beyond the result window", p, ps)
	}
	lo := min((p-1)*ps, len(matched))
	hi := min(lo+ps, len(matched))
	issues := make([]map[string]string, 0, hi-lo)
	for _, is := range matched[lo:hi] {
		issues = append(issues, map[string]string{
			"rule":         is.Rule,
			"component":    is.Component,
			"creationDate": is.Created,
			"updateDate":   is.UpdateDate,
			"status":       is.Status,
		})
	}
	return json.Marshal(map[string]any{"total": len(matched), "issues": issues})
}

// addIssues stores n open issues of rule on component, all created on date.
func (f *fakeServer) addIssues(component, rule, date string, n int) {
	for range n {
		f.issues = append(f.issues, fakeIssue{Component: component, Rule: rule, Created: date, Status: schema.StatusOpen})
	}
}

func point(date, value string) schema.HistoryPoint {
	return schema.HistoryPoint{Date: date, Value: value, HasValue: true}
}
