// Package mcp exposes the cleanup pipeline as Model Context Protocol tools
// so assistants can plan cleanups, log events and draft reports.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AlBaraa63/Clean-City/internal/service"
)

// Server wraps the mcp-go MCPServer with the CleanCity tools registered.
type Server struct {
	mcp    *server.MCPServer
	svc    service.CleanupService
	logger *slog.Logger
}

// NewServer creates an MCP server and registers every tool.
func NewServer(name, version string, svc service.CleanupService, logger *slog.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		svc:    svc,
		logger: logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves requests on stdin/stdout until EOF or a signal.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.addTool(planCleanupTool(), s.planCleanup)
	s.addTool(logEventTool(), s.logEvent)
	s.addTool(queryEventsTool(), s.queryEvents)
	s.addTool(getHotspotsTool(), s.getHotspots)
	s.addTool(markCleanedTool(), s.markCleaned)
	s.addTool(generateReportTool(), s.generateReport)
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
