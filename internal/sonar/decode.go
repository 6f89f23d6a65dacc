package sonar

import (
	"github.com/tidwall/gjson"

	"github.com/qualitytrend/sonarscrape/schema"
)

// parse validates body and returns its root.
func parse(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, malformed("body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, malformed("body is not a JSON object")
	}
	return root, nil
}

// requireArray returns the array at path or ErrMalformedJSON.
func requireArray(root gjson.Result, path string) (gjson.Result, error) {
	arr := root.Get(path)
	if !arr.IsArray() {
		return gjson.Result{}, malformed("missing array %q", path)
	}
	return arr, nil
}

// requireInt returns the integer at path or ErrMalformedJSON.
func requireInt(root gjson.Result, path string) (int, error) {
	v := root.Get(path)
	if v.Type != gjson.Number {
		return 0, malformed("missing number %q", path)
	}
	return int(v.Int()), nil
}

// keysOf collects the "key" field of every element.
func keysOf(arr gjson.Result, what string) ([]string, error) {
	var keys []string
	var err error
	arr.ForEach(func(_, item gjson.Result) bool {
		key := item.Get("key")
		if !key.Exists() {
			err = malformed("%s entry without key", what)
			return false
		}
		keys = append(keys, key.String())
		return true
	})
	return keys, err
}

// ParseMetricKeys decodes metrics/search.
func ParseMetricKeys(body []byte) ([]string, int, error) {
	root, err := parse(body)
	if err != nil {
		return nil, 0, err
	}
	total, err := requireInt(root, "total")
	if err != nil {
		return nil, 0, err
	}
	arr, err := requireArray(root, "metrics")
	if err != nil {
		return nil, 0, err
	}
	keys, err := keysOf(arr, "metric")
	return keys, total, err
}

// ParseRuleKeys decodes one page of rules/search.
func ParseRuleKeys(body []byte) ([]string, int, error) {
	root, err := parse(body)
	if err != nil {
		return nil, 0, err
	}
	total, err := requireInt(root, "total")
	if err != nil {
		return nil, 0, err
	}
	arr, err := requireArray(root, "rules")
	if err != nil {
		return nil, 0, err
	}
	keys, err := keysOf(arr, "rule")
	return keys, total, err
}

// ParseComponents decodes components/search.
func ParseComponents(body []byte) ([]schema.Project, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	arr, err := requireArray(root, "components")
	if err != nil {
		return nil, err
	}
	var projects []schema.Project
	arr.ForEach(func(_, item gjson.Result) bool {
		key := item.Get("key")
		if !key.Exists() {
			err = malformed("component entry without key")
			return false
		}
		projects = append(projects, schema.Project{Key: key.String(), Name: item.Get("name").String()})
		return true
	})
	return projects, err
}

// ParseComponentMeasures decodes measures/component into metric -> raw value.
func ParseComponentMeasures(body []byte) (map[string]string, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	arr, err := requireArray(root, "component.measures")
	if err != nil {
		return nil, err
	}
	measures := make(map[string]string)
	arr.ForEach(func(_, item gjson.Result) bool {
		metric := item.Get("metric")
		if !metric.Exists() {
			err = malformed("measure entry without metric")
			return false
		}
		value := item.Get("value")
		if value.Exists() {
			measures[metric.String()] = value.String()
		} else {
			measures[metric.String()] = schema.MissingMeasure
		}
		return true
	})
	return measures, err
}

// ParseHistory decodes measures/search_history.
func ParseHistory(body []byte) ([]schema.MetricHistory, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	if _, err := requireInt(root, "paging.total"); err != nil {
		return nil, err
	}
	arr, err := requireArray(root, "measures")
	if err != nil {
		return nil, err
	}
	var series []schema.MetricHistory
	arr.ForEach(func(_, item gjson.Result) bool {
		metric := item.Get("metric")
		history := item.Get("history")
		if !metric.Exists() || !history.IsArray() {
			err = malformed("history entry without metric or history")
			return false
		}
		mh := schema.MetricHistory{Metric: metric.String()}
		history.ForEach(func(_, point gjson.Result) bool {
			date := point.Get("date")
			if !date.Exists() {
				err = malformed("history point of %s without date", mh.Metric)
				return false
			}
			value := point.Get("value")
			mh.Points = append(mh.Points, schema.HistoryPoint{
				Date:     date.String(),
				Value:    value.String(),
				HasValue: value.Exists(),
			})
			return true
		})
		if err != nil {
			return false
		}
		series = append(series, mh)
		return true
	})
	return series, err
}

// ParseIssuePage decodes one page of issues/search.
// The closed date is the update date of CLOSED issues and empty otherwise.
func ParseIssuePage(body []byte) (schema.IssuePage, error) {
	root, err := parse(body)
	if err != nil {
		return schema.IssuePage{}, err
	}
	total, err := requireInt(root, "total")
	if err != nil {
		return schema.IssuePage{}, err
	}
	arr, err := requireArray(root, "issues")
	if err != nil {
		return schema.IssuePage{}, err
	}
	page := schema.IssuePage{Total: total}
	arr.ForEach(func(_, item gjson.Result) bool {
		rule := item.Get("rule")
		if !rule.Exists() {
			err = malformed("issue entry without rule")
			return false
		}
		event := schema.IssueEvent{
			CreationDate: item.Get("creationDate").String(),
			Rule:         rule.String(),
			Component:    item.Get("component").String(),
		}
		if item.Get("status").String() == schema.StatusClosed {
			event.ClosedDate = item.Get("updateDate").String()
		}
		page.Issues = append(page.Issues, event)
		return true
	})
	return page, err
}
