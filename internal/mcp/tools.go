package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// stringList returns a fresh schema each call; a schema value may appear only once
// in a tool's schema tree.
func stringList() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
}

func timestampDocs(what string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: what + " as {time, meta}; time is milliseconds since the epoch",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"time": {Type: "integer"},
				"meta": {Type: "object"},
			},
			Required: []string{"time"},
		},
	}
}

func pageTagsSchema(what string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":   {Type: "string", Description: "Page id"},
			"tags": {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: what},
		},
		Required: []string{"id", "tags"},
	}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "index_page",
		Description: "Index a page's text, title, visits and bookmarks. Re-indexing a page merges new terms and timestamps into it.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pageDoc": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"id":  {Type: "string", Description: "Page id; derived from the url when empty"},
						"url": {Type: "string"},
						"content": {
							Type: "object",
							Properties: map[string]*jsonschema.Schema{
								"title":    {Type: "string"},
								"fullText": {Type: "string"},
							},
						},
					},
					Required: []string{"url"},
				},
				"visitDocs":       timestampDocs("Visits"),
				"bookmarkDocs":    timestampDocs("Bookmarks"),
				"rejectNoContent": {Type: "boolean", Description: "Fail instead of skipping pages without text"},
			},
			Required: []string{"pageDoc"},
		},
	}, s.handleIndexPage)

	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Find pages containing every query term, most recently visited first. Optional tag, domain and list filters.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":           {Type: "string", Description: "Free text; every word must match"},
				"offset":          {Type: "integer"},
				"page_size":       {Type: "integer"},
				"full_docs":       {Type: "boolean", Description: "Include each page's indexed document"},
				"tags":            stringList(),
				"domains":         stringList(),
				"exclude_domains": stringList(),
				"lists":           stringList(),
			},
			Required: []string{"query"},
		},
	}, s.handleSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "delete_pages",
		Description: "Remove pages and every index reference to them.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"ids": stringList(),
			},
			Required: []string{"ids"},
		},
	}, s.handleDeletePages)

	s.server.AddTool(&mcp.Tool{
		Name:        "add_tags",
		Description: "Add tags to an indexed page.",
		InputSchema: pageTagsSchema("Tags to add"),
	}, s.handleAddTags)

	s.server.AddTool(&mcp.Tool{
		Name:        "set_tags",
		Description: "Replace an indexed page's tags.",
		InputSchema: pageTagsSchema("The complete tag set"),
	}, s.handleSetTags)

	s.server.AddTool(&mcp.Tool{
		Name:        "del_tags",
		Description: "Remove tags from an indexed page.",
		InputSchema: pageTagsSchema("Tags to remove"),
	}, s.handleDelTags)

	s.server.AddTool(&mcp.Tool{
		Name:        "suggest",
		Description: "Complete a domain or tag from a prefix, falling back to close misspellings.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"kind":   {Type: "string", Enum: []any{"domains", "tags"}},
				"prefix": {Type: "string"},
				"limit":  {Type: "integer"},
			},
			Required: []string{"kind", "prefix"},
		},
	}, s.handleSuggest)

	s.server.AddTool(&mcp.Tool{
		Name:        "recent_pages",
		Description: "List the most recently visited pages, newest first.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit":  {Type: "integer"},
				"before": {Type: "integer", Description: "Only visits before this millisecond timestamp"},
			},
		},
	}, s.handleRecentPages)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_stats",
		Description: "Page count, key counts per kind and queued writes.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleIndexStats)
}
