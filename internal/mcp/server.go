// Package mcp serves the search index over the Model Context Protocol on stdio.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/memex-index/internal/debug"
	"github.com/standardbeagle/memex-index/internal/index"
	"github.com/standardbeagle/memex-index/internal/version"
)

const serverName = "memex-mcp-server"

// Server exposes index operations as MCP tools. Mutations go through the index
// write queue.
type Server struct {
	ix     *index.SearchIndex
	server *mcp.Server
}

func NewServer(ix *index.SearchIndex) *Server {
	s := &Server{
		ix: ix,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Start serves on stdin/stdout until ctx ends or the client disconnects. Debug
// output is kept off stdout while serving.
func (s *Server) Start(ctx context.Context) error {
	debug.SetMCPMode(true)
	debug.LogMCP("starting %s %s on stdio\n", serverName, version.Version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
