package index

import (
	"context"
	"encoding/json"
	"fmt"

	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

// Get returns the reverse-index document of a page.
func (ix *SearchIndex) Get(ctx context.Context, pageID string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *model.Document
	err := ix.store.View(func(tx *store.Tx) error {
		var err error
		doc, err = loadDocument(tx, "get", pageID)
		return err
	})
	return doc, err
}

// Count returns the number of indexed pages.
func (ix *SearchIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := ix.store.View(func(tx *store.Tx) error {
		var err error
		n, err = tx.Count(keys.Page)
		return err
	})
	return n, err
}

// RecentPage is a page and the time of its visit.
type RecentPage struct {
	ID   string `json:"id"`
	Time int64  `json:"time"`
}

// RecentPages walks visits newest first and returns up to limit distinct pages.
// A positive before excludes visits at or after that millisecond.
func (ix *SearchIndex) RecentPages(ctx context.Context, limit int, before int64) ([]RecentPage, error) {
	if limit <= 0 {
		limit = ix.opts.DefaultPageSize
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := store.ScanOptions{Kind: keys.Visit, Reverse: true}
	if before > 0 {
		opts.Start = keys.Timestamp(keys.Visit, before-1)
	}

	out := []RecentPage{}
	seen := make(keys.Set)
	err := ix.store.View(func(tx *store.Tx) error {
		return tx.Scan(opts, func(key string, value []byte) (bool, error) {
			var e model.Entry
			if err := json.Unmarshal(value, &e); err != nil {
				return false, fmt.Errorf("decode %s: %w", key, err)
			}
			ms, err := keys.ParseTimestamp(key)
			if err != nil {
				return false, err
			}
			for _, id := range e.PageIDs() {
				if seen.Has(id) {
					continue
				}
				seen.Add(id)
				out = append(out, RecentPage{ID: id, Time: ms})
				if len(out) >= limit {
					return false, nil
				}
			}
			return true, nil
		})
	})
	return out, err
}

// ExistingKeys lists the indexed pages, and among them the bookmarked ones.
type ExistingKeys struct {
	History   keys.Set `json:"historyKeys"`
	Bookmarks keys.Set `json:"bookmarkKeys"`
}

// GrabExistingKeys scans every page document. Every indexed page counts as
// history, whether or not a visit is recorded for it.
func (ix *SearchIndex) GrabExistingKeys(ctx context.Context) (*ExistingKeys, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &ExistingKeys{History: make(keys.Set), Bookmarks: make(keys.Set)}
	err := ix.store.View(func(tx *store.Tx) error {
		return tx.Scan(store.ScanOptions{Kind: keys.Page}, func(key string, value []byte) (bool, error) {
			var doc model.Document
			if err := json.Unmarshal(value, &doc); err != nil {
				return false, memexerrors.NewStoreError("grabExistingKeys", err)
			}
			out.History.Add(doc.ID)
			if len(doc.Bookmarks) > 0 {
				out.Bookmarks.Add(doc.ID)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PageIDs returns the union of pages referenced by kind/value for each value.
func (ix *SearchIndex) PageIDs(ctx context.Context, kind keys.Kind, values []string) (keys.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(keys.Set)
	err := ix.store.View(func(tx *store.Tx) error {
		for _, v := range values {
			e, err := tx.Entry(keys.For(kind, v))
			if err != nil {
				return err
			}
			for id := range e {
				out.Add(id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PageURLs maps page ids to their URLs. Unknown ids are left out.
func (ix *SearchIndex) PageURLs(ctx context.Context, pageIDs []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pageIDs))
	err := ix.store.View(func(tx *store.Tx) error {
		for _, id := range pageIDs {
			doc, err := tx.Document(id)
			if err != nil {
				return err
			}
			if doc != nil {
				out[id] = doc.URL
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
