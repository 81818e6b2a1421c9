package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/memex-index/internal/debug"
	"github.com/standardbeagle/memex-index/internal/filters"
	"github.com/standardbeagle/memex-index/internal/index"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/pipeline"
)

// SearchParams are the arguments of the search tool.
type SearchParams struct {
	Query          string   `json:"query"`
	Offset         int      `json:"offset,omitempty"`
	PageSize       int      `json:"page_size,omitempty"`
	FullDocs       bool     `json:"full_docs,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Domains        []string `json:"domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
	Lists          []string `json:"lists,omitempty"`
}

type SearchResponse struct {
	Query   []string             `json:"query"`
	Offset  int                  `json:"offset"`
	Count   int                  `json:"count"`
	Results []model.SearchResult `json:"results"`
}

type PageTagsParams struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

type DeleteParams struct {
	IDs []string `json:"ids"`
}

type SuggestParams struct {
	Kind   string `json:"kind"`
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit,omitempty"`
}

type RecentParams struct {
	Limit  int   `json:"limit,omitempty"`
	Before int64 `json:"before,omitempty"`
}

type StatsResponse struct {
	Pages   int            `json:"pages"`
	Keys    map[string]int `json:"keys"`
	Pending int            `json:"pending"`
}

func decodeArgs(req *mcp.CallToolRequest, v any) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func success(extra map[string]interface{}) (*mcp.CallToolResult, error) {
	data := map[string]interface{}{"success": true}
	for k, v := range extra {
		data[k] = v
	}
	return createJSONResponse(data)
}

func (s *Server) handleIndexPage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var page model.PageRequest
	if err := decodeArgs(req, &page); err != nil {
		return createErrorResponse("index_page", err)
	}
	if strings.TrimSpace(page.PageDoc.URL) == "" {
		return createErrorResponse("index_page", fmt.Errorf("pageDoc.url is required"))
	}
	id := page.PageDoc.ID
	if id == "" {
		id = pipeline.PageID(page.PageDoc.URL)
		page.PageDoc.ID = id
	}
	debug.LogMCP("index_page %s (%s)\n", id, page.PageDoc.URL)

	if err := s.ix.AddPageConcurrent(ctx, page); err != nil {
		return createErrorResponse("index_page", err)
	}
	return success(map[string]interface{}{"id": id})
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SearchParams
	if err := decodeArgs(req, &args); err != nil {
		return createErrorResponse("search", err)
	}
	query := strings.Fields(args.Query)
	if len(query) == 0 {
		return createErrorResponse("search", fmt.Errorf("query must contain at least one term"))
	}

	fp := filters.Params{
		Tags:           args.Tags,
		Domains:        args.Domains,
		DomainsExclude: args.ExcludeDomains,
		Lists:          args.Lists,
	}
	results, err := s.ix.SearchFiltered(ctx,
		index.SearchParams{Query: query, Offset: args.Offset, PageSize: args.PageSize},
		fp,
		index.SearchOptions{FullDocs: args.FullDocs})
	if err != nil {
		return createErrorResponse("search", err)
	}
	debug.LogMCP("search %v: %d results\n", query, len(results))
	return createJSONResponse(&SearchResponse{
		Query:   query,
		Offset:  args.Offset,
		Count:   len(results),
		Results: results,
	})
}

func (s *Server) handleDeletePages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args DeleteParams
	if err := decodeArgs(req, &args); err != nil {
		return createErrorResponse("delete_pages", err)
	}
	if len(args.IDs) == 0 {
		return createErrorResponse("delete_pages", fmt.Errorf("ids must not be empty"))
	}
	if err := s.ix.DelConcurrent(ctx, args.IDs...); err != nil {
		return createErrorResponse("delete_pages", err)
	}
	return success(map[string]interface{}{"deleted": len(args.IDs)})
}

func (s *Server) tagHandler(op string, apply func(ctx context.Context, id string, tags []string) error) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args PageTagsParams
		if err := decodeArgs(req, &args); err != nil {
			return createErrorResponse(op, err)
		}
		if args.ID == "" {
			return createErrorResponse(op, fmt.Errorf("id is required"))
		}
		if err := apply(ctx, args.ID, args.Tags); err != nil {
			return createErrorResponse(op, err)
		}
		return success(map[string]interface{}{"id": args.ID})
	}
}

func (s *Server) handleAddTags(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagHandler("add_tags", s.ix.AddTagsConcurrent)(ctx, req)
}

func (s *Server) handleSetTags(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagHandler("set_tags", s.ix.SetTagsConcurrent)(ctx, req)
}

func (s *Server) handleDelTags(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagHandler("del_tags", s.ix.DelTagsConcurrent)(ctx, req)
}

func (s *Server) handleSuggest(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SuggestParams
	if err := decodeArgs(req, &args); err != nil {
		return createErrorResponse("suggest", err)
	}

	var (
		values []string
		err    error
	)
	switch args.Kind {
	case "domains", "domain":
		values, err = s.ix.SuggestDomains(ctx, args.Prefix, args.Limit)
	case "tags", "tag":
		values, err = s.ix.SuggestTags(ctx, args.Prefix, args.Limit)
	default:
		err = fmt.Errorf("kind must be \"domains\" or \"tags\", got %q", args.Kind)
	}
	if err != nil {
		return createErrorResponse("suggest", err)
	}
	return createJSONResponse(map[string]interface{}{"suggestions": values})
}

func (s *Server) handleRecentPages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args RecentParams
	if err := decodeArgs(req, &args); err != nil {
		return createErrorResponse("recent_pages", err)
	}
	pages, err := s.ix.RecentPages(ctx, args.Limit, args.Before)
	if err != nil {
		return createErrorResponse("recent_pages", err)
	}
	return createJSONResponse(map[string]interface{}{"pages": pages})
}

func (s *Server) handleIndexStats(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.ix.Count(ctx)
	if err != nil {
		return createErrorResponse("index_stats", err)
	}
	perKind, err := s.ix.Store().Stats()
	if err != nil {
		return createErrorResponse("index_stats", err)
	}
	keyCounts := make(map[string]int, len(perKind))
	for kind, n := range perKind {
		keyCounts[string(kind)] = n
	}
	return createJSONResponse(&StatsResponse{Pages: count, Keys: keyCounts, Pending: s.ix.Pending()})
}
