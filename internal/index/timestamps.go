package index

import (
	"context"
	"fmt"

	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/pipeline"
	"github.com/standardbeagle/memex-index/internal/store"
)

// reservedMetaKey names the page a timestamp belongs to and is never taken from
// caller metadata.
const reservedMetaKey = "pageId"

func timestampSet(doc *model.Document, kind keys.Kind) keys.Set {
	if kind == keys.Bookmark {
		return doc.Bookmarks
	}
	return doc.Visits
}

func checkTimestampKind(kind keys.Kind) error {
	if !kind.IsTimestamp() {
		return fmt.Errorf("%q is not a visit or bookmark kind", kind)
	}
	return nil
}

func cleanMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if k != reservedMetaKey {
			out[k] = v
		}
	}
	return out
}

// AddTimestamp records a visit or bookmark of an indexed page. When it becomes the
// page's newest timestamp every posting of the page is re-ranked.
func (ix *SearchIndex) AddTimestamp(ctx context.Context, pageID string, kind keys.Kind, ms int64, meta map[string]any) error {
	const op = "addTimestamp"
	if err := checkTimestampKind(kind); err != nil {
		return err
	}
	if err := pipeline.CheckTime(pageID, string(kind), ms); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := keys.Timestamp(kind, ms)

	return ix.store.Update(func(tx *store.Tx) error {
		doc, err := loadDocument(tx, op, pageID)
		if err != nil {
			return err
		}
		timestampSet(doc, kind).Add(key)
		if doc.RecomputeLatest() {
			if err := restamp(tx, op, doc); err != nil {
				return err
			}
		}
		if err := tx.PutDocument(doc); err != nil {
			return memexerrors.NewStoreError(op, err)
		}
		return stamp(tx, op, pageID, key, ms, cleanMeta(meta))
	})
}

// AddTimestampConcurrent is AddTimestamp scheduled on the write queue.
func (ix *SearchIndex) AddTimestampConcurrent(ctx context.Context, pageID string, kind keys.Kind, ms int64, meta map[string]any) error {
	return ix.submit(ctx, "addTimestamp", func(ctx context.Context) error {
		return ix.AddTimestamp(ctx, pageID, kind, ms, meta)
	})
}

// UpdateTimestampMeta merges meta into the page's posting of an existing
// timestamp. The page a timestamp belongs to cannot be changed this way.
func (ix *SearchIndex) UpdateTimestampMeta(ctx context.Context, pageID string, kind keys.Kind, ms int64, meta map[string]any) error {
	const op = "updateTimestampMeta"
	if err := checkTimestampKind(kind); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := keys.Timestamp(kind, ms)

	return ix.store.Update(func(tx *store.Tx) error {
		e, err := tx.Entry(key)
		if err != nil {
			return memexerrors.NewDerivedIndexWriteError(op, pageID, key, err)
		}
		p, ok := e[pageID]
		if !ok {
			return memexerrors.NewPageNotIndexedError(op, pageID)
		}
		if p.Meta == nil {
			p.Meta = make(map[string]any, len(meta))
		}
		for k, v := range cleanMeta(meta) {
			p.Meta[k] = v
		}
		e[pageID] = p
		if err := tx.PutEntry(key, e); err != nil {
			return memexerrors.NewDerivedIndexWriteError(op, pageID, key, err)
		}
		return nil
	})
}

// UpdateTimestampMetaConcurrent is UpdateTimestampMeta scheduled on the write queue.
func (ix *SearchIndex) UpdateTimestampMetaConcurrent(ctx context.Context, pageID string, kind keys.Kind, ms int64, meta map[string]any) error {
	return ix.submit(ctx, "updateTimestampMeta", func(ctx context.Context) error {
		return ix.UpdateTimestampMeta(ctx, pageID, kind, ms, meta)
	})
}

// DelTimestamp removes one visit or bookmark from a page and re-ranks it.
func (ix *SearchIndex) DelTimestamp(ctx context.Context, pageID string, kind keys.Kind, ms int64) error {
	const op = "delTimestamp"
	if err := checkTimestampKind(kind); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := keys.Timestamp(kind, ms)

	return ix.store.Update(func(tx *store.Tx) error {
		doc, err := loadDocument(tx, op, pageID)
		if err != nil {
			return err
		}
		set := timestampSet(doc, kind)
		if !set.Has(key) {
			return nil
		}
		set.Remove(key)
		if doc.RecomputeLatest() {
			if err := restamp(tx, op, doc); err != nil {
				return err
			}
		}
		if err := tx.PutDocument(doc); err != nil {
			return memexerrors.NewStoreError(op, err)
		}
		return unstamp(tx, op, pageID, key)
	})
}

// DelTimestampConcurrent is DelTimestamp scheduled on the write queue.
func (ix *SearchIndex) DelTimestampConcurrent(ctx context.Context, pageID string, kind keys.Kind, ms int64) error {
	return ix.submit(ctx, "delTimestamp", func(ctx context.Context) error {
		return ix.DelTimestamp(ctx, pageID, kind, ms)
	})
}
