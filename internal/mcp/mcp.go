// Package mcp exposes Worldview link resolution over the Model Context
// Protocol.
//
// The MCP server offers the same worldview_link tool the chat model uses,
// plus the layer catalog as resources, so MCP-compatible agents can build
// Worldview URLs without going through the conversational API.
package mcp

import (
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/luma-agent/luma/internal/worldview"
)

// ServerName is the MCP implementation name.
const ServerName = "luma"

// Server wraps the MCP server with the Worldview resolver.
type Server struct {
	mcpServer *mcpserver.MCPServer
	resolver  *worldview.Resolver
	catalog   worldview.CatalogSource
	logger    *slog.Logger
}

// New creates and configures an MCP server with all tools, resources and
// prompts. catalog may be nil, in which case the catalog resources report
// the catalog as unavailable.
func New(resolver *worldview.Resolver, catalog worldview.CatalogSource, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		resolver: resolver,
		catalog:  catalog,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		ServerName,
		version,
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(false),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
