package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/a11y-tree/internal/atspi"
)

// mcpServer wraps the MCP server with the bus connection and cache.
type mcpServer struct {
	bus   *atspi.Bus
	busMu sync.Mutex
	cache *mcpTreeCache
	mcp   *mcpserver.MCPServer
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
	CacheTTL  time.Duration
}

// newMCPServer connects to the a11y bus and configures an MCP server
// with all a11y-tree tools.
func newMCPServer(ctx context.Context, cfg MCPConfig) (*mcpServer, error) {
	bus, err := atspi.Connect(ctx)
	if err != nil {
		return nil, err
	}

	s := &mcpServer{
		bus:   bus,
		cache: newMCPTreeCache(cfg.CacheTTL),
	}

	s.mcp = mcpserver.NewMCPServer(
		"a11y-tree",
		"1.0.0",
	)

	s.registerTools()
	return s, nil
}

func (s *mcpServer) close() {
	s.bus.Close()
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) registerTools() {
	// snapshot
	s.mcp.AddTool(
		mcp.NewTool("snapshot",
			mcp.WithDescription("Snapshot the accessibility tree published on the a11y bus. Returns an immutable tree with explicit markers for failed, cyclic, or truncated branches."),
			mcp.WithString("app", mcp.Description("Target one application by name substring (default: whole registry)")),
			mcp.WithNumber("pid", mcp.Description("Target one application by process id")),
			mcp.WithString("strategy", mcp.Description("Traversal strategy: recursive or iterative (default: iterative)")),
			mcp.WithNumber("max-children", mcp.Description("Max children materialized per node")),
			mcp.WithNumber("concurrency", mcp.Description("Max simultaneous outstanding remote calls")),
			mcp.WithNumber("timeout", mcp.Description("Per remote call timeout in milliseconds")),
			mcp.WithBoolean("flat", mcp.Description("Flatten the tree into a list with path breadcrumbs")),
			mcp.WithBoolean("refresh", mcp.Description("Drop cached snapshots and rebuild")),
		),
		s.handleSnapshot,
	)

	// list
	s.mcp.AddTool(
		mcp.NewTool("list",
			mcp.WithDescription("List applications registered on the a11y bus with their name, role, and child count"),
		),
		s.handleList,
	)

	// inspect
	s.mcp.AddTool(
		mcp.NewTool("inspect",
			mcp.WithDescription("Inspect a single object without expanding it: attributes, interfaces, child count, and estimated reply size"),
			mcp.WithString("app", mcp.Description("Target one application by name substring (default: registry root)")),
			mcp.WithNumber("pid", mcp.Description("Target one application by process id")),
		),
		s.handleInspect,
	)
}
