// Package mcp implements the Model Context Protocol (MCP) server for
// vaultmcp. It exposes the vault index to AI clients over stdio.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vaultmcp/vaultmcp/internal/index"
	"github.com/vaultmcp/vaultmcp/internal/search"
	"github.com/vaultmcp/vaultmcp/pkg/version"
)

// Server is the MCP server. It bridges AI clients (Claude Code, Cursor)
// with the search engine and the sync engine.
type Server struct {
	mcp    *mcp.Server
	engine *search.Engine
	syncer *index.Syncer
	vault  string
	logger *slog.Logger
}

// NewServer creates a new MCP server. vaultPath is the default vault used
// by index_notes when the client does not pass one.
func NewServer(engine *search.Engine, syncer *index.Syncer, vaultPath string, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if syncer == nil {
		return nil, errors.New("syncer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: engine,
		syncer: syncer,
		vault:  vaultPath,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "vaultmcp",
			Version: version.Short(),
		},
		nil, // capabilities are inferred from registered tools
	)
	s.registerTools()

	return s, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_notes",
		Description: "Search your notes semantically. Finds passages by meaning, not just keywords, and reports the file and section each match came from.",
	}, s.mcpSearchNotesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_notes",
		Description: "Index or re-index the notes vault. Run this after adding or editing notes. Only changed files are re-embedded unless force is set.",
	}, s.mcpIndexNotesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_stats",
		Description: "Report what is currently indexed: chunk and file counts, the breakdown by file type, and the embedding model in use.",
	}, s.mcpIndexStatsHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

// Serve runs the server over stdio until the context is cancelled or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server",
		slog.String("transport", "stdio"),
		slog.String("vault", s.vault))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
