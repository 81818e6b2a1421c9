package index

import (
	"context"
	"sort"

	"github.com/standardbeagle/memex-index/internal/debug"
	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

// SearchParams is an AND query over free-text terms with pagination.
type SearchParams struct {
	Query    []string `json:"query"`
	Offset   int      `json:"offset"`
	PageSize int      `json:"pageSize"`
}

// URLFilter decides whether a page may appear in results, by URL.
type URLFilter interface {
	IsAllowed(url string) bool
}

type SearchOptions struct {
	FullDocs bool
	// Filter is applied before pagination so pages stay full.
	Filter URLFilter
}

// Search returns the pages containing every query term, newest first. Pages with
// equal scores are ordered by id. The whole query reads one consistent snapshot.
func (ix *SearchIndex) Search(ctx context.Context, params SearchParams, opts SearchOptions) ([]model.SearchResult, error) {
	results := []model.SearchResult{}
	queryKeys := ix.queryKeys(params.Query)
	if len(queryKeys) == 0 {
		return results, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := ix.store.View(func(tx *store.Tx) error {
		entries := make([]model.Entry, 0, len(queryKeys))
		for _, key := range queryKeys {
			e, err := tx.Entry(key)
			if err != nil {
				return err
			}
			if len(e) == 0 {
				debug.LogSearch("no pages for %s, query %v has no match\n", key, params.Query)
				return nil
			}
			entries = append(entries, e)
		}

		scored := intersect(entries)
		if opts.Filter != nil {
			var err error
			if scored, err = filterByURL(tx, scored, opts.Filter); err != nil {
				return err
			}
		}

		page := ix.paginate(scored, params.Offset, params.PageSize)
		if opts.FullDocs {
			for i := range page {
				doc, err := tx.Document(page[i].ID)
				if err != nil {
					return err
				}
				page[i].Document = doc
			}
		}
		results = page
		return nil
	})
	if err != nil {
		return nil, memexerrors.NewSearchError(params.Query, err)
	}
	debug.LogSearch("query %v matched, returning %d results\n", params.Query, len(results))
	return results, nil
}

// queryKeys normalizes each query term the way page content is normalized.
func (ix *SearchIndex) queryKeys(query []string) []string {
	set := make(keys.Set)
	for _, q := range query {
		set.AddAll(ix.pipeline.Terms(q))
	}
	return set.Sorted()
}

// intersect keeps the pages present in every entry, scored by their latest
// timestamp and sorted by score descending then id ascending.
func intersect(entries []model.Entry) []model.SearchResult {
	sort.Slice(entries, func(i, j int) bool { return len(entries[i]) < len(entries[j]) })

	var out []model.SearchResult
	for id, p := range entries[0] {
		inAll := true
		for _, e := range entries[1:] {
			if _, ok := e[id]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, model.SearchResult{ID: id, Score: p.Latest})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func filterByURL(tx *store.Tx, results []model.SearchResult, filter URLFilter) ([]model.SearchResult, error) {
	kept := results[:0]
	for _, r := range results {
		doc, err := tx.Document(r.ID)
		if err != nil {
			return nil, err
		}
		if doc != nil && filter.IsAllowed(doc.URL) {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func (ix *SearchIndex) paginate(results []model.SearchResult, offset, size int) []model.SearchResult {
	if offset < 0 {
		offset = 0
	}
	if size <= 0 {
		size = ix.opts.DefaultPageSize
	}
	if size > ix.opts.MaxPageSize {
		size = ix.opts.MaxPageSize
	}
	if offset >= len(results) {
		return []model.SearchResult{}
	}
	end := min(offset+size, len(results))
	page := make([]model.SearchResult, end-offset)
	copy(page, results[offset:end])
	return page
}
