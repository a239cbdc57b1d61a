package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// watchStatusTool returns the tool definition for watch_status.
func watchStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "watch_status",
		Description: "Report the live watcher's current changed-file count and the most recently changed path",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listChangesTool returns the tool definition for list_changes.
func listChangesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_changes",
		Description: "List every path in the watcher's current changed set, sorted",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// triggerRepackTool returns the tool definition for trigger_repack.
func triggerRepackTool() mcp.Tool {
	return mcp.Tool{
		Name:        "trigger_repack",
		Description: "Force the watcher's escalation path immediately, clearing the changed set and running a full repack",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
