// Package mcp implements the Model Context Protocol (MCP) server exposing
// the search façade, context bundler, and memory store as agent tools.
package mcp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/coderag/internal/searchfacade"
	"github.com/Aman-CERP/coderag/internal/store"
	"github.com/Aman-CERP/coderag/pkg/version"
)

// Server is the MCP server exposing the seven §6.1 tools over the search
// façade (C5), context bundler (C6), and memory search (part of C5).
type Server struct {
	mcp    *mcp.Server
	facade *searchfacade.Facade
	store  store.Adapter
	logger *slog.Logger

	// defaultProject is substituted when a tool call omits project
	// (§6.3 DEFAULT_PROJECT).
	defaultProject string

	// aliases is passed through to the context bundler's path-alias
	// resolution (§4.6 step 3). Empty unless configured.
	aliases map[string]string

	mu sync.RWMutex
}

// NewServer creates a new MCP server. facade and adapter are required;
// defaultProject and aliases may be empty/nil.
func NewServer(facade *searchfacade.Facade, adapter store.Adapter, defaultProject string, aliases map[string]string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		facade:         facade,
		store:          adapter,
		defaultProject: defaultProject,
		aliases:        aliases,
		logger:         logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "coderag",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// project resolves the effective project filter for a tool call: the
// caller's value if non-empty, else the configured default.
func (s *Server) project(requested string) string {
	if requested != "" {
		return requested
	}
	return s.defaultProject
}

// registerTools registers the seven tools of the public API (§6.1).
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword+semantic search over indexed code chunks, with optional query rewriting and autocut result trimming.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_advanced",
		Description: "Reflexion-driven search: retries with progressively different query strategies until a quality threshold is met, returning the attempt history alongside the results.",
	}, s.handleSearchAdvanced)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context",
		Description: "Assembles a dependency-aware context bundle for a file: its own chunks, the chunks of files it imports, and the type definitions it references.",
	}, s.handleContext)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "types",
		Description: "Searches indexed type definitions (interfaces, type aliases, enums) by meaning.",
	}, s.handleTypes)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "similar",
		Description: "Finds code chunks semantically similar to a given code snippet.",
	}, s.handleSimilar)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memories",
		Description: "Searches prior conversation/session summaries for relevant decisions and context.",
	}, s.handleMemories)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: "Reports index health: chunk counts per collection and per project. Never fails — store errors surface as a status:\"error\" field.",
	}, s.handleStatus)

	s.logger.Info("mcp tools registered", slog.Int("count", 7))
}

// Serve starts the server with the given transport ("stdio" is the only
// one currently supported).
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "stdio", "":
		s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp server stopped gracefully")
		return nil
	default:
		return NewInvalidParamsError("unsupported transport: " + transport)
	}
}

// Close releases server resources, including the underlying store adapter.
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
