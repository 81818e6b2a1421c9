package index

import (
	"context"

	"github.com/standardbeagle/memex-index/internal/filters"
	"github.com/standardbeagle/memex-index/internal/model"
)

// SearchFiltered runs Search restricted to the pages that pass the tag, domain and
// list filters. Filtering happens before pagination.
func (ix *SearchIndex) SearchFiltered(ctx context.Context, params SearchParams, fp filters.Params, opts SearchOptions) ([]model.SearchResult, error) {
	if fp.IsEmpty() {
		return ix.Search(ctx, params, opts)
	}
	m, err := filters.FindFilteredURLs(ctx, ix, fp)
	if err != nil {
		return nil, err
	}
	opts.Filter = m
	return ix.Search(ctx, params, opts)
}

// FilterURLs resolves fp into a filter manager over this index.
func (ix *SearchIndex) FilterURLs(ctx context.Context, fp filters.Params) (*filters.Manager, error) {
	return filters.FindFilteredURLs(ctx, ix, fp)
}
