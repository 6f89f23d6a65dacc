// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/session"
)

// NewMCPServer initializes and configures the sonarscrape MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, sess *session.Session) *server.MCPServer {
	s := server.NewMCPServer(
		"SonarQube Scraper Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		sess:    sess,
	}

	// --- 1. Tool: connect_server ---
	s.AddTool(mcp.NewTool("connect_server",
		mcp.WithDescription("Connect to a SonarQube server and load its project list."),
		mcp.WithString("server", mcp.Description("Server address such as http://sonar.example.org (defaults to the configured server).")),
	), h.handleConnectServer)

	// --- 2. Tool: list_projects ---
	s.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the projects of the connected server."),
		mcp.WithString("filter", mcp.Description("Only projects whose key or name contains this text.")),
	), h.handleListProjects)

	// --- 3. Tool: export_issues ---
	s.AddTool(mcp.NewTool("export_issues",
		mcp.WithDescription("Export the currently open issues of a project to <project>-issues.csv."),
		mcp.WithString("project_key", mcp.Description("Key of a project returned by list_projects."), mcp.Required()),
		mcp.WithBoolean("wait", mcp.Description("Block until the export has finished.")),
	), h.handleExportIssues)

	// --- 4. Tool: export_measures ---
	s.AddTool(mcp.NewTool("export_measures",
		mcp.WithDescription("Export the current measures and open issue counts of a project to <project>-measures.csv."),
		mcp.WithString("project_key", mcp.Description("Key of a project returned by list_projects."), mcp.Required()),
		mcp.WithBoolean("wait", mcp.Description("Block until the export has finished.")),
	), h.handleExportMeasures)

	// --- 5. Tool: task_status ---
	s.AddTool(mcp.NewTool("task_status",
		mcp.WithDescription("Show the status of one export task, or of all tasks when no ID is given."),
		mcp.WithString("task_id", mcp.Description("Task ID returned by an export tool.")),
	), h.handleTaskStatus)

	// --- 6. Tool: cancel_task ---
	s.AddTool(mcp.NewTool("cancel_task",
		mcp.WithDescription("Cancel a running export. An export cancelled before its table is complete writes nothing."),
		mcp.WithString("task_id", mcp.Description("Task ID returned by an export tool."), mcp.Required()),
	), h.handleCancelTask)

	return s
}

// StartMCPServer starts the sonarscrape MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, sess *session.Session) error {
	s := NewMCPServer(baseCfg, sess)
	return server.ServeStdio(s)
}
