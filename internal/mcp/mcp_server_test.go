package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	mcp_internal "github.com/qualitytrend/sonarscrape/internal/mcp"
	"github.com/qualitytrend/sonarscrape/internal/outwriter"
	"github.com/qualitytrend/sonarscrape/internal/session"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

func newSonarServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/components/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"components":[{"key":"org.apache:commons-cli","name":"Commons CLI"},{"key":"org.apache:commons-io","name":"Commons IO"}]}`)
	})
	mux.HandleFunc("/api/rules/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"total":1,"rules":[{"key":"squid:S1"}]}`)
	})
	mux.HandleFunc("/api/issues/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"total":1,"issues":[{"rule":"squid:S1","component":"org.apache:commons-cli:A.java","creationDate":"2020-01-01","status":"OPEN"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, sonarURL string) (*server.MCPServer, string) {
	t.Helper()
	dir := t.TempDir()
	sess := session.New(sonar.NewHTTPFetcher(0, contract.DiscardLogger()), outwriter.NewFileStore(dir), "java")
	t.Cleanup(sess.Close)
	baseCfg := &contract.Config{Server: sonarURL, Language: "java"}
	return mcp_internal.NewMCPServer(baseCfg, sess), dir
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s, _ := newTestServer(t, "http://sonar.test")

	t.Run("list_projects before connect", func(t *testing.T) {
		res := call(t, s, "list_projects", map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "not connected")
	})

	t.Run("export_issues missing project_key", func(t *testing.T) {
		res := call(t, s, "export_issues", map[string]any{"project_key": ""})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "project_key is required")
	})

	t.Run("export_measures before connect", func(t *testing.T) {
		res := call(t, s, "export_measures", map[string]any{"project_key": "org.apache:commons-cli"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "export not started")
	})

	t.Run("task_status unknown task", func(t *testing.T) {
		res := call(t, s, "task_status", map[string]any{"task_id": "task-42"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), `unknown task "task-42"`)
	})

	t.Run("cancel_task unknown task", func(t *testing.T) {
		res := call(t, s, "cancel_task", map[string]any{"task_id": "nope"})
		assert.True(t, res.IsError)
	})

	t.Run("connect_server bad scheme", func(t *testing.T) {
		res := call(t, s, "connect_server", map[string]any{"server": "ftp://sonar"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "connection failed")
	})
}

func TestMCPServer_CancelDescription(t *testing.T) {
	s, _ := newTestServer(t, "http://sonar.test")
	tool := s.GetTool("cancel_task")
	require.NotNil(t, tool)
	assert.Contains(t, tool.Tool.Description, "cancelled before its table is complete writes nothing")
}

func TestMCPServerHandlers_ExportFlow(t *testing.T) {
	sonarServer := newSonarServer(t)
	s, dir := newTestServer(t, sonarServer.URL)

	// Falls back to the configured server
	res := call(t, s, "connect_server", map[string]any{})
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), "Retrieved 2 projects")

	res = call(t, s, "list_projects", map[string]any{"filter": "CLI"})
	require.False(t, res.IsError)
	var projects []schema.Project
	require.NoError(t, json.Unmarshal([]byte(text(res)), &projects))
	assert.Equal(t, []schema.Project{{Key: "org.apache:commons-cli", Name: "Commons CLI"}}, projects)

	res = call(t, s, "export_issues", map[string]any{"project_key": "org.apache:commons-cli", "wait": true})
	require.False(t, res.IsError, text(res))
	var status session.TaskStatus
	require.NoError(t, json.Unmarshal([]byte(text(res)), &status))
	assert.Equal(t, "task-1", status.ID)
	assert.Equal(t, session.TaskSucceeded, status.State)
	assert.Equal(t, 1, status.Rows)

	_, err := os.Stat(filepath.Join(dir, "org.apache_commons-cli-issues.csv"))
	assert.NoError(t, err)

	res = call(t, s, "task_status", map[string]any{})
	require.False(t, res.IsError)
	var statuses []session.TaskStatus
	require.NoError(t, json.Unmarshal([]byte(text(res)), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "task-1", statuses[0].ID)

	// Cancelling a finished task leaves its state alone
	res = call(t, s, "cancel_task", map[string]any{"task_id": "task-1"})
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal([]byte(text(res)), &status))
	assert.Equal(t, session.TaskSucceeded, status.State)
}
