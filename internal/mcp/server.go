package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jtallon/capindex-mcp/internal/builder"
	"github.com/jtallon/capindex-mcp/internal/codec"
	"github.com/jtallon/capindex-mcp/internal/elementstore"
	"github.com/jtallon/capindex-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "capindex-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDataDir is the default location for the element catalog and index
	DefaultDataDir = "~/.capindex"

	dbFileName    = "elements.db"
	indexFileName = "index.yaml"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	store   elementstore.Store
	builder *builder.Builder
	codec   *codec.Codec
	log     *slog.Logger

	indexPath string

	mu    sync.RWMutex
	index *types.CapabilityIndex // loaded lazily, replaced after each build
}

// NewServer creates a new MCP server instance. dataDir holds both the
// element catalog database and the index document; empty selects
// ~/.capindex.
func NewServer(dataDir string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dataDir == "" || dataDir == DefaultDataDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".capindex")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := elementstore.New(filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize element store: %w", err)
	}

	indexPath := filepath.Join(dataDir, indexFileName)
	bld, err := builder.New(store, &builder.Config{
		IndexPath: indexPath,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize builder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		store:     store,
		builder:   bld,
		codec:     codec.New(&codec.Config{Logger: logger}),
		log:       logger,
		indexPath: indexPath,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(buildIndexTool(), s.handleBuildIndex)
	s.mcp.AddTool(getRelationshipsTool(), s.handleGetRelationships)
	s.mcp.AddTool(getByActionTriggerTool(), s.handleGetByActionTrigger)
	s.mcp.AddTool(getSemanticProfileTool(), s.handleGetSemanticProfile)
	s.mcp.AddTool(getIndexStatusTool(), s.handleGetIndexStatus)
}

// currentIndex returns the in-memory index, loading it from disk on first
// use. No index on disk yet is reported as types.ErrNotFound.
func (s *Server) currentIndex() (*types.CapabilityIndex, error) {
	s.mu.RLock()
	if s.index != nil {
		defer s.mu.RUnlock()
		return s.index, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	index, err := s.codec.ReadFile(s.indexPath)
	if err != nil {
		return nil, err
	}
	s.index = index
	return index, nil
}

func (s *Server) setIndex(index *types.CapabilityIndex) {
	s.mu.Lock()
	s.index = index
	s.mu.Unlock()
}

// indexMissing distinguishes "no index yet" for the tool handlers
func indexMissing(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
