package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/standardbeagle/memex-index/internal/debug"
	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

// AddPage indexes a page, merging it into the page's existing document. A page
// without content is an EmptyContentError when req.RejectNoContent is set and a
// silent no-op otherwise. The document and all derived entries are written in one
// transaction.
func (ix *SearchIndex) AddPage(ctx context.Context, req model.PageRequest) error {
	doc, err := ix.pipeline.Transform(req)
	if err != nil {
		if errors.Is(err, memexerrors.ErrEmptyContent) && !req.RejectNoContent {
			debug.LogIndexing("skipping %s: %v\n", req.PageDoc.URL, err)
			return nil
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = ix.store.Update(func(tx *store.Tx) error {
		return indexDocument(tx, doc)
	})
	if err != nil {
		return err
	}
	debug.LogIndexing("indexed %s (%d terms, latest %d)\n", doc.ID, len(doc.Terms), doc.Latest)
	return nil
}

// AddPageConcurrent is AddPage scheduled on the write queue.
func (ix *SearchIndex) AddPageConcurrent(ctx context.Context, req model.PageRequest) error {
	return ix.submit(ctx, "addPage", func(ctx context.Context) error {
		return ix.AddPage(ctx, req)
	})
}

// AddPages indexes several pages, each in its own transaction like AddPage. Every
// page is attempted and the failures are returned together, each naming its page.
func (ix *SearchIndex) AddPages(ctx context.Context, reqs ...model.PageRequest) error {
	var result *multierror.Error
	for _, req := range reqs {
		if err := ix.AddPage(ctx, req); err != nil {
			name := req.PageDoc.ID
			if name == "" {
				name = req.PageDoc.URL
			}
			result = multierror.Append(result, fmt.Errorf("page %q: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}

// AddPagesConcurrent is AddPages scheduled on the write queue as a single task, so
// no other mutation interleaves with the batch.
func (ix *SearchIndex) AddPagesConcurrent(ctx context.Context, reqs ...model.PageRequest) error {
	return ix.submit(ctx, "addPages", func(ctx context.Context) error {
		return ix.AddPages(ctx, reqs...)
	})
}

func indexDocument(tx *store.Tx, doc *model.Document) error {
	const op = "addPage"

	existing, err := tx.Document(doc.ID)
	if err != nil {
		return memexerrors.NewStoreError(op, err)
	}

	merged := doc
	var newStamps []string
	if existing == nil {
		newStamps = doc.TimestampKeys()
	} else {
		merged = existing
		// the id may be reused for a different URL
		if existing.Domain != doc.Domain && existing.Domain != "" {
			if err := unstamp(tx, op, doc.ID, existing.Domain); err != nil {
				return err
			}
		}
		if existing.Hostname != doc.Hostname && existing.Hostname != "" {
			if err := unstamp(tx, op, doc.ID, existing.Hostname); err != nil {
				return err
			}
		}
		merged.URL = doc.URL
		merged.Domain = doc.Domain
		merged.Hostname = doc.Hostname
		merged.Terms.AddAll(doc.Terms)
		merged.TitleTerms.AddAll(doc.TitleTerms)
		merged.URLTerms.AddAll(doc.URLTerms)
		newStamps = append(merged.Visits.AddAll(doc.Visits), merged.Bookmarks.AddAll(doc.Bookmarks)...)
	}
	merged.RecomputeLatest()

	if err := tx.PutDocument(merged); err != nil {
		return memexerrors.NewStoreError(op, err)
	}
	if err := restamp(tx, op, merged); err != nil {
		return err
	}
	for _, key := range newStamps {
		ms, err := keys.ParseTimestamp(key)
		if err != nil {
			return memexerrors.NewDerivedIndexWriteError(op, doc.ID, key, err)
		}
		if err := stamp(tx, op, doc.ID, key, ms, doc.TimestampMeta[key]); err != nil {
			return err
		}
	}
	return nil
}

// AddPageTerms adds content terms from text to an already indexed page.
func (ix *SearchIndex) AddPageTerms(ctx context.Context, pageID, text string) error {
	const op = "addPageTerms"
	extra := ix.pipeline.Terms(text)
	if err := ctx.Err(); err != nil {
		return err
	}

	return ix.store.Update(func(tx *store.Tx) error {
		doc, err := loadDocument(tx, op, pageID)
		if err != nil {
			return err
		}
		added := doc.Terms.AddAll(extra)
		if len(added) == 0 {
			return nil
		}
		if err := tx.PutDocument(doc); err != nil {
			return memexerrors.NewStoreError(op, err)
		}
		for _, key := range added {
			if err := stamp(tx, op, pageID, key, doc.Latest, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddPageTermsConcurrent is AddPageTerms scheduled on the write queue.
func (ix *SearchIndex) AddPageTermsConcurrent(ctx context.Context, pageID, text string) error {
	return ix.submit(ctx, "addPageTerms", func(ctx context.Context) error {
		return ix.AddPageTerms(ctx, pageID, text)
	})
}
