// ABOUTME: MCP server implementation for inkreader
// ABOUTME: Provides tools, resources, and prompts for AI agents to read feeds through the reader core

package mcp

import (
	"github.com/harper/inkreader/internal/reader"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// Server wraps the MCP server with inkreader-specific context
type Server struct {
	mcpServer *server.MCPServer
	core      *reader.Core
	syncKey   string // used when a tool call names no key
}

// NewServer creates a new MCP server instance. syncKey may be empty, in which
// case read-state tools require an explicit sync_key argument.
func NewServer(core *reader.Core, syncKey string) *Server {
	s := &Server{
		core:    core,
		syncKey: syncKey,
	}

	s.mcpServer = server.NewMCPServer(
		"inkreader",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer exposes the underlying server for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// registerTools is implemented in tools.go
// registerResources is implemented in resources.go
// registerPrompts is implemented in prompts.go
