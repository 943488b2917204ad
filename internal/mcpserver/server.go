// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido search tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hagall/raido/internal/api"
	"github.com/hagall/raido/internal/engine"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp     *server.MCPServer
	engines api.EngineProvider
}

// New creates a new MCP server with all Raido tools registered.
func New(engines api.EngineProvider) *Server {
	s := &Server{engines: engines}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_code",
		mcp.WithDescription("Ranked full-text search across the building code: "+
			"provisions, tables, figures, and glossary terms."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query: words or a provision number like 3.1.1.1")),
		mcp.WithString("division", mcp.Description("Optional division number to restrict to (e.g. B)")),
		mcp.WithBoolean("amended_only", mcp.Description("Only return amended provisions")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchCode)

	s.mcp.AddTool(mcp.NewTool("suggest_titles",
		mcp.WithDescription("Title completions for a partial query, ranked by relevance."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Partial query, at least two characters")),
		mcp.WithNumber("limit", mcp.Description("Max suggestions (default 10)")),
	), s.suggestTitles)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read one search document by ID, including its full "+
			"extracted text, ancestry, and amendment fields."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID (e.g. article:B/3/3.1/3.1.1.1 or glossary:bldng)")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("list_amendments",
		mcp.WithDescription("List the distinct revision dates present in the code, oldest first."),
	), s.listAmendments)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q := engine.Query{Text: query}
	if div := req.GetString("division", ""); div != "" {
		q.Division = div
	}
	q.AmendedOnly = req.GetBool("amended_only", false)
	if limit := req.GetFloat("limit", 0); limit > 0 && limit < math.MaxInt32 {
		q.Limit = int(limit)
	}

	results, err := s.engines.Current().Search(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) suggestTitles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 0
	if f := req.GetFloat("limit", 0); f > 0 && f < math.MaxInt32 {
		limit = int(f)
	}

	suggestions, err := s.engines.Current().Suggestions(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(suggestions) == 0 {
		return mcp.NewToolResultText("no suggestions"), nil
	}
	out, _ := json.MarshalIndent(suggestions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.engines.Current().GetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listAmendments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	revs, err := s.engines.Current().Amendments(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(revs) == 0 {
		return mcp.NewToolResultText("no amendments recorded"), nil
	}
	out, _ := json.MarshalIndent(revs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
