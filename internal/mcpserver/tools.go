package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleWatchStatus handles the watch_status tool invocation.
func (s *Server) handleWatchStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, last := s.watcher.Snapshot()

	response := map[string]interface{}{
		"changed_count": len(paths),
		"last_changed":  last,
		"escalations":   s.watcher.Escalations(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListChanges handles the list_changes tool invocation.
func (s *Server) handleListChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, _ := s.watcher.Snapshot()

	response := map[string]interface{}{
		"changes": paths,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleTriggerRepack handles the trigger_repack tool invocation.
func (s *Server) handleTriggerRepack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.watcher.TriggerRepack(ctx, s.repack); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "repack failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"repacked": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// MCP error codes.
const (
	ErrorCodeInternalError = -32603
)

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
