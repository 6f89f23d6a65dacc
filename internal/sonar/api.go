// Package sonar talks to the web API of a SonarQube-compatible server.
package sonar

import (
	"net/url"
	"strconv"
	"strings"
)

// API builds request URLs for one server.
type API struct {
	Server   string // scheme and host, no trailing slash
	Language string // language filter for rules/search
}

// NewAPI returns an API rooted at server.
func NewAPI(server, language string) API {
	return API{Server: strings.TrimRight(server, "/"), Language: language}
}

func (a API) endpoint(path string) string {
	return a.Server + "/api/" + path
}

// joinKeys escapes each key and joins them with literal commas.
func joinKeys(keys []string) string {
	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = url.QueryEscape(k)
	}
	return strings.Join(escaped, ",")
}

// MetricsURL lists all metrics on the server.
func (a API) MetricsURL(pageSize int) string {
	return a.endpoint("metrics/search") + "?ps=" + strconv.Itoa(pageSize)
}

// RulesURL returns one page of the rules for the configured language.
func (a API) RulesURL(pageSize, page int) string {
	return a.endpoint("rules/search") +
		"?ps=" + strconv.Itoa(pageSize) +
		"&p=" + strconv.Itoa(page) +
		"&f=lang" +
		"&languages=" + url.QueryEscape(a.Language)
}

// ComponentsURL searches projects whose name contains q. An empty q lists all projects.
func (a API) ComponentsURL(q string, pageSize int) string {
	u := a.endpoint("components/search") +
		"?qualifiers=TRK" +
		"&ps=" + strconv.Itoa(pageSize)
	if q != "" {
		u += "&q=" + url.QueryEscape(q)
	}
	return u
}

// MeasuresURL asks for the current value of metricKeys on component.
func (a API) MeasuresURL(component string, metricKeys []string) string {
	return a.endpoint("measures/component") +
		"?componentKey=" + url.QueryEscape(component) +
		"&metricKeys=" + joinKeys(metricKeys)
}

// HistoryURL asks for the past values of metricKeys on component.
func (a API) HistoryURL(component string, metricKeys []string, pageSize int) string {
	return a.endpoint("measures/search_history") +
		"?component=" + url.QueryEscape(component) +
		"&ps=" + strconv.Itoa(pageSize) +
		"&metrics=" + joinKeys(metricKeys)
}

// IssuesURL returns one page of issues of component restricted to ruleKeys.
func (a API) IssuesURL(component, statuses string, ruleKeys []string, pageSize, page int) string {
	return a.endpoint("issues/search") +
		"?componentKeys=" + url.QueryEscape(component) +
		"&s=CREATION_DATE" +
		"&statuses=" + url.QueryEscape(statuses) +
		"&rules=" + joinKeys(ruleKeys) +
		"&ps=" + strconv.Itoa(pageSize) +
		"&p=" + strconv.Itoa(page)
}
