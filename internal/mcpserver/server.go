// Package mcpserver exposes a running watcher over the Model Context
// Protocol, so an editor or agent can ask what changed without tailing
// the .qgc changes file itself. An mcp-go MCPServer wraps the watcher
// dependency, with one AddTool call per tool exposed.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/memkit/packdex/internal/watcher"
)

const (
	// ServerName is the MCP server name advertised during the
	// initialize handshake.
	ServerName = "packdex-mcp"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the watcher it reports on.
type Server struct {
	mcp     *server.MCPServer
	watcher *watcher.Watcher
	repack  watcher.RepackFunc
}

// NewServer creates an MCP server that reports on w and, when asked to
// trigger_repack, runs repack.
func NewServer(w *watcher.Watcher, repack watcher.RepackFunc) *Server {
	mcpServer := server.NewMCPServer(ServerName, ServerVersion)

	s := &Server{
		mcp:     mcpServer,
		watcher: w,
		repack:  repack,
	}

	s.registerTools()

	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers every tool this server exposes.
func (s *Server) registerTools() {
	s.mcp.AddTool(watchStatusTool(), s.handleWatchStatus)
	s.mcp.AddTool(listChangesTool(), s.handleListChanges)
	s.mcp.AddTool(triggerRepackTool(), s.handleTriggerRepack)
}
