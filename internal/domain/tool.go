package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool for the MCP tools/list response.
type ToolSchema struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolResult is the outcome of executing a tool.
type ToolResult struct {
	Content     string    `json:"content"`
	Structured  any       `json:"structured,omitempty"` // machine-readable copy of Content, if any
	IsError     bool      `json:"is_error"`
	IsRetryable bool      `json:"is_retryable,omitempty"`
	Code        ErrorCode `json:"code,omitempty"` // set when IsError
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup and execution.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	List() []Tool
	Schemas() []ToolSchema
}
