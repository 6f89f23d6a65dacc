package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/session"
	"github.com/qualitytrend/sonarscrape/internal/sonar"
	"github.com/qualitytrend/sonarscrape/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	sess    *session.Session
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleConnectServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	server := request.GetString("server", "")
	if server == "" {
		server = h.baseCfg.Server
	}

	projects, err := h.sess.Connect(ctx, server)
	if err != nil {
		msg := fmt.Sprintf("connection failed: %s", sonar.Describe(err))
		if errors.Is(err, sonar.ErrHostNotFound) {
			msg = h.sess.Status()
		}
		return mcp.NewToolResultError(msg), nil
	}
	return jsonResult(map[string]any{
		"server":   h.sess.Server(),
		"status":   h.sess.Status(),
		"projects": projects,
	}), nil
}

func (h *toolHandler) handleListProjects(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.sess.Server() == "" {
		return mcp.NewToolResultError(session.ErrNotConnected.Error() + ". Call connect_server first"), nil
	}
	filter := strings.ToLower(request.GetString("filter", ""))

	projects := []schema.Project{}
	for _, p := range h.sess.Projects() {
		if filter == "" || strings.Contains(strings.ToLower(p.Key), filter) || strings.Contains(strings.ToLower(p.Name), filter) {
			projects = append(projects, p)
		}
	}
	return jsonResult(projects), nil
}

type startFunc func(key string) (*session.Task, error)

func (h *toolHandler) handleExport(ctx context.Context, request mcp.CallToolRequest, start startFunc) (*mcp.CallToolResult, error) {
	key := request.GetString("project_key", "")
	if key == "" {
		return mcp.NewToolResultError("project_key is required"), nil
	}

	task, err := start(key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export not started: %v", err)), nil
	}

	if request.GetBool("wait", false) {
		select {
		case <-task.Done():
		case <-ctx.Done():
			return mcp.NewToolResultError(fmt.Sprintf("stopped waiting for %s: %v", task.ID(), ctx.Err())), nil
		}
	}
	return jsonResult(task.Status()), nil
}

func (h *toolHandler) handleExportIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.handleExport(ctx, request, h.sess.ExportIssues)
}

func (h *toolHandler) handleExportMeasures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.handleExport(ctx, request, h.sess.ExportMeasures)
}

func (h *toolHandler) handleTaskStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("task_id", "")
	if id == "" {
		tasks := h.sess.Tasks()
		statuses := make([]session.TaskStatus, len(tasks))
		for i, t := range tasks {
			statuses[i] = t.Status()
		}
		return jsonResult(statuses), nil
	}

	task, ok := h.sess.Task(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown task %q", id)), nil
	}
	return jsonResult(task.Status()), nil
}

func (h *toolHandler) handleCancelTask(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("task_id", "")
	task, ok := h.sess.Task(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown task %q", id)), nil
	}
	task.Cancel()
	<-task.Done()
	return jsonResult(task.Status()), nil
}
