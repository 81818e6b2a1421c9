package index

import (
	"context"
	"log"

	"github.com/hashicorp/go-multierror"

	"github.com/standardbeagle/memex-index/internal/debug"
	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/store"
)

// Del removes pages and every derived reference to them. Each page is deleted in
// its own transaction. With several ids every page is attempted and failures are
// returned together; errors.Is still finds ErrPageNotIndexed in the aggregate.
func (ix *SearchIndex) Del(ctx context.Context, pageIDs ...string) error {
	if len(pageIDs) == 1 {
		return ix.delPage(ctx, pageIDs[0])
	}

	var result *multierror.Error
	for _, id := range pageIDs {
		if err := ix.delPage(ctx, id); err != nil {
			log.Printf("WARNING: failed to delete page %s: %v", id, err)
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// DelConcurrent is Del scheduled on the write queue as a single task.
func (ix *SearchIndex) DelConcurrent(ctx context.Context, pageIDs ...string) error {
	return ix.submit(ctx, "del", func(ctx context.Context) error {
		return ix.Del(ctx, pageIDs...)
	})
}

func (ix *SearchIndex) delPage(ctx context.Context, pageID string) error {
	const op = "del"
	if err := ctx.Err(); err != nil {
		return err
	}

	err := ix.store.Update(func(tx *store.Tx) error {
		doc, err := loadDocument(tx, op, pageID)
		if err != nil {
			return err
		}
		if err := tx.DeleteDocument(pageID); err != nil {
			return memexerrors.NewStoreError(op, err)
		}
		for _, key := range doc.DerivedKeys() {
			if err := unstamp(tx, op, pageID, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	debug.LogIndexing("deleted %s\n", pageID)
	return nil
}
