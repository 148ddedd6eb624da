package mcpserver

import (
	"context"
	"log"

	"haqiba/internal/service"

	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for Haqiba.
// It exposes reading positions and the tutor so AI agents can help a student study.
type Server struct {
	mcp    *server.MCPServer
	reader *service.ReaderService
	tutor  *service.TutorService
}

// Deps holds the services passed from the App layer to the MCP server.
// Tutor is optional; its tools are only registered when set.
type Deps struct {
	Reader *service.ReaderService
	Tutor  *service.TutorService
}

// New creates and configures a new MCP server with all tools, resources and prompts.
func New(ctx context.Context, deps Deps) *Server {
	s := &Server{
		reader: deps.Reader,
		tutor:  deps.Tutor,
	}

	s.mcp = server.NewMCPServer(
		"haqiba-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerReaderTools()
	s.registerResources()
	if s.tutor != nil {
		s.registerTutorTools()
		s.registerPrompts()
	}

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}
