package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitytrend/sonarscrape/schema"
)

func fourDates() schema.Table {
	return schema.Table{
		Header: []string{"date", "bugs"},
		Rows: [][]string{
			{"2020-01-01", "1"},
			{"2020-02-01", "2"},
			{"2020-03-01", "3"},
			{"2020-04-01", "4"},
		},
	}
}

func column(t *testing.T, table schema.Table, name string) []string {
	t.Helper()
	idx := table.Column(name)
	require.GreaterOrEqual(t, idx, 0, "missing column %s", name)
	out := make([]string, len(table.Rows))
	for i, row := range table.Rows {
		out[i] = row[idx]
	}
	return out
}

func TestMergeSeries_NoEvents(t *testing.T) {
	merged, err := MergeSeries(fourDates(), nil)
	require.NoError(t, err)
	assert.Equal(t, fourDates(), merged)
}

func TestMergeSeries_OpenThenClosed(t *testing.T) {
	events := []schema.IssueEvent{
		{CreationDate: "2020-01-01", ClosedDate: "2020-03-01", Rule: "squid:S1", Component: "p:A.java"},
	}
	merged, err := MergeSeries(fourDates(), events)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "bugs", "squid:S1"}, merged.Header)
	assert.Equal(t, []string{"1", "1", "0", "0"}, column(t, merged, "squid:S1"))
	// Original columns are untouched
	assert.Equal(t, []string{"1", "2", "3", "4"}, column(t, merged, "bugs"))
}

func TestMergeSeries_RulesSorted(t *testing.T) {
	events := []schema.IssueEvent{
		{CreationDate: "2020-02-01", Rule: "squid:S9"},
		{CreationDate: "2020-01-01", Rule: "squid:S1"},
		{CreationDate: "2020-02-01", Rule: "squid:S1"},
	}
	merged, err := MergeSeries(fourDates(), events)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "bugs", "squid:S1", "squid:S9"}, merged.Header)
	assert.Equal(t, []string{"1", "2", "2", "2"}, column(t, merged, "squid:S1"))
	assert.Equal(t, []string{"0", "1", "1", "1"}, column(t, merged, "squid:S9"))
}

func TestMergeSeries_DatesOutsideHistory(t *testing.T) {
	// Opened on a date with no measurement, closed on one that has it
	events := []schema.IssueEvent{
		{CreationDate: "2019-12-15", ClosedDate: "2020-02-01", Rule: "r"},
	}
	merged, err := MergeSeries(fourDates(), events)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "-1", "-1", "-1"}, column(t, merged, "r"))
}

func TestMergeSeries_SameDayOpenAndClose(t *testing.T) {
	events := []schema.IssueEvent{
		{CreationDate: "2020-02-01", ClosedDate: "2020-02-01", Rule: "r"},
	}
	merged, err := MergeSeries(fourDates(), events)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0", "0", "0"}, column(t, merged, "r"))
}

func TestMergeSeries_InvalidHistory(t *testing.T) {
	_, err := MergeSeries(schema.Table{Header: []string{"when", "bugs"}}, nil)
	assert.Error(t, err)

	_, err = MergeSeries(schema.Table{Header: []string{"date"}, Rows: [][]string{{"2020-01-01", "x"}}}, nil)
	assert.Error(t, err)
}
