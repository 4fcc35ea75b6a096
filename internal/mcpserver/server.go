// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the workspace analyses to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/insights"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/workspace"
)

// DefaultTodayLimit is the number of tasks today_tasks returns when no limit
// is given.
const DefaultTodayLimit = 10

// Analyses are the insight operations the tools expose.
type Analyses interface {
	TodayTasks(ctx context.Context, limit int) ([]insights.ScoredTask, error)
	HealthCheck(ctx context.Context) (*insights.HealthReport, error)
	StrategyAnalysis(ctx context.Context) (*insights.StrategyAnalysis, error)
	WeeklyReview(ctx context.Context, weekStart string) (*insights.WeeklyReview, error)
}

// Invalidator drops cached collections.
type Invalidator interface {
	Invalidate(c workspace.Collection) error
}

var (
	_ Analyses    = (*insights.Service)(nil)
	_ Invalidator = (*workspace.Repository)(nil)
)

// Server wraps the MCP server with the workspace tools.
type Server struct {
	mcp      *server.MCPServer
	analyses Analyses
	cache    Invalidator
}

// New creates a new MCP server with all tools registered.
func New(name, version string, analyses Analyses, cache Invalidator) *Server {
	s := &Server{analyses: analyses, cache: cache}

	s.mcp = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("today_tasks",
		mcp.WithDescription("Open tasks ranked by urgency (due date, schedule, priority and status)."),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum number of tasks (default %d)", DefaultTodayLimit))),
	), s.todayTasks)

	s.mcp.AddTool(mcp.NewTool("health_check",
		mcp.WithDescription("Audit the workspace for orphaned tasks, projects without goals, "+
			"overdue work and records missing required fields."),
		mcp.WithString("format", mcp.Description("json (default) or text"), mcp.Enum("json", "text")),
	), s.healthCheck)

	s.mcp.AddTool(mcp.NewTool("strategy_analysis",
		mcp.WithDescription("Stalled goals, zombie projects, goal progress and a 0-100 focus score."),
	), s.strategyAnalysis)

	s.mcp.AddTool(mcp.NewTool("weekly_review",
		mcp.WithDescription("Tasks, projects and goals completed in a Monday-to-Sunday week."),
		mcp.WithString("week_start", mcp.Description("Monday of the week as YYYY-MM-DD (default: current week)")),
	), s.weeklyReview)

	s.mcp.AddTool(mcp.NewTool("invalidate_cache",
		mcp.WithDescription("Drop cached collections so the next call refetches. "+
			"Read the "+ConventionsURI+" resource for property names."),
		mcp.WithString("key", mcp.Description("tasks, projects or goals (empty for all)")),
	), s.invalidateCache)

	s.mcp.AddResource(
		mcp.NewResource(ConventionsURI, "Workspace Conventions",
			mcp.WithResourceDescription("Property names and status vocabulary the analyses rely on."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventions,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) todayTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", DefaultTodayLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be a positive integer"), nil
	}
	tasks, err := s.analyses.TodayTasks(ctx, limit)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(tasks)
}

func (s *Server) healthCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.analyses.HealthCheck(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if req.GetString("format", "json") == "text" {
		return mcp.NewToolResultText(insights.FormatHealthReport(report)), nil
	}
	return jsonResult(report)
}

func (s *Server) strategyAnalysis(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	analysis, err := s.analyses.StrategyAnalysis(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(analysis)
}

func (s *Server) weeklyReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	review, err := s.analyses.WeeklyReview(ctx, req.GetString("week_start", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(review)
}

func (s *Server) invalidateCache(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := workspace.Collection(req.GetString("key", ""))
	if err := s.cache.Invalidate(key); err != nil {
		return toolError(err), nil
	}
	scope := string(key)
	if scope == "" {
		scope = "all"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Invalidated cache: %s", scope)), nil
}

func (s *Server) readConventions(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConventionsURI,
			MIMEType: "text/markdown",
			Text:     Conventions(),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError reports a failure to the client. Upstream failures carry the
// retry hint so the model can decide whether to call again.
func toolError(err error) *mcp.CallToolResult {
	var ue *apperr.UpstreamError
	if errors.As(err, &ue) && ue.Retryable() {
		return mcp.NewToolResultError(err.Error() + " (retryable)")
	}
	return mcp.NewToolResultError(err.Error())
}

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
