// Package mcpserver exposes a tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"universal-mcp-serpapi/internal/domain"
)

const instructions = "Web, Google Maps and Google Maps review search backed by SerpApi. " +
	"Use google_maps_search to find a place, then get_google_maps_reviews with its place_id or data_id."

// Server wraps an mcp-go server whose tools are backed by a domain.ToolExecutor.
type Server struct {
	mcp    *server.MCPServer
	tools  domain.ToolExecutor
	logger *slog.Logger
}

// New creates an MCP server and registers every tool of tools on it.
func New(name, version string, tools domain.ToolExecutor, logger *slog.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
		tools:  tools,
		logger: logger,
	}
	for _, schema := range tools.Schemas() {
		s.mcp.AddTool(toMCPTool(schema), s.handler(schema.Name))
	}
	logger.Debug("mcp tools registered", "count", len(tools.Schemas()))
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio speaks MCP over in/out until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("mcp server listening", "transport", "stdio")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

func toMCPTool(schema domain.ToolSchema) mcp.Tool {
	params := schema.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object"}`)
	}
	t := mcp.NewToolWithRawSchema(schema.Name, schema.Description, params)
	t.Annotations = mcp.ToolAnnotation{
		Title:           schema.Title,
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return t
}

// handler adapts a registry tool to an mcp-go tool handler. Tool failures
// are reported in the result; a protocol error is returned only when the
// tool itself is missing or returns a Go error.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := s.tools.Get(name)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("INVALID_INPUT: arguments are not a JSON object"), nil
		}

		res, err := t.Execute(ctx, raw)
		if err != nil {
			s.logger.Error("tool execution failed", "tool", name, "error", err)
			return nil, err
		}
		return toCallResult(res), nil
	}
}

func toCallResult(res *domain.ToolResult) *mcp.CallToolResult {
	if res == nil {
		return mcp.NewToolResultError("UNKNOWN: tool returned no result")
	}
	out := &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(res.Content)},
		IsError: res.IsError,
	}
	if !res.IsError && res.Structured != nil {
		out.StructuredContent = res.Structured
	}
	return out
}
