package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes telemetry tools.
type Server struct {
	files telemetry.Files
	mcp   *server.MCPServer
}

// NewServer creates a new MCP server reading the given telemetry files.
func NewServer(files telemetry.Files) *Server {
	s := &Server{files: files}

	s.mcp = server.NewMCPServer(
		"neurosphere",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listDevicesTool, s.handleListDevices)
	s.mcp.AddTool(getPairStatsTool, s.handleGetPairStats)
	s.mcp.AddTool(getSceneTool, s.handleGetScene)
	s.mcp.AddTool(getParseReportTool, s.handleGetParseReport)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
