// Package mcp exposes the Gemini tool pipeline over the Model Context
// Protocol. Each tool gets its own registration file (search.go,
// reason.go, code.go, fileops.go); shared envelope helpers live in
// util.go.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/gemini"
	"github.com/okibi/gemini-mcp/internal/log"
	"github.com/okibi/gemini-mcp/internal/repopack"
)

// Server wraps the MCP SDK server and the Gemini pipeline components.
type Server struct {
	mcpServer *mcp.Server
	selector  *gemini.Selector
	adapter   *gemini.Adapter
	engine    *gemini.Engine
	formatter *gemini.Formatter
	loader    *files.Loader
	packer    *repopack.Packer
	logger    log.Logger
}

// Config holds MCP server configuration. All component fields are
// required; the server performs no wiring of its own.
type Config struct {
	Name    string
	Version string

	Logger    log.Logger
	Selector  *gemini.Selector
	Adapter   *gemini.Adapter
	Engine    *gemini.Engine
	Formatter *gemini.Formatter
	Loader    *files.Loader
	Packer    *repopack.Packer
}

// NewServer creates an MCP server and registers all tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Selector == nil || cfg.Adapter == nil || cfg.Engine == nil ||
		cfg.Formatter == nil || cfg.Loader == nil || cfg.Packer == nil {
		return nil, fmt.Errorf("all pipeline components are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		selector:  cfg.Selector,
		adapter:   cfg.Adapter,
		engine:    cfg.Engine,
		formatter: cfg.Formatter,
		loader:    cfg.Loader,
		packer:    cfg.Packer,
		logger:    cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	return s, nil
}

// Run starts the server on the given transport. Blocks until the
// context is canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerSearch(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := s.registerReason(); err != nil {
		return fmt.Errorf("reason: %w", err)
	}
	if err := s.registerCode(); err != nil {
		return fmt.Errorf("code: %w", err)
	}
	if err := s.registerFileOps(); err != nil {
		return fmt.Errorf("fileops: %w", err)
	}
	return nil
}
