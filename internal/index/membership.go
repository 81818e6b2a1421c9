package index

import (
	"context"
	"strings"

	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

func membershipKeys(kind keys.Kind, names []string) keys.Set {
	out := make(keys.Set, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out.Add(keys.For(kind, n))
		}
	}
	return out
}

func membershipSet(doc *model.Document, kind keys.Kind) *keys.Set {
	if kind == keys.List {
		return &doc.Lists
	}
	return &doc.Tags
}

// updateMembership replaces the page's tag or list set with next(current) and
// brings the derived entries in line with the change.
func (ix *SearchIndex) updateMembership(ctx context.Context, op, pageID string, kind keys.Kind, next func(current keys.Set) keys.Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ix.store.Update(func(tx *store.Tx) error {
		doc, err := loadDocument(tx, op, pageID)
		if err != nil {
			return err
		}
		field := membershipSet(doc, kind)
		current := *field
		updated := next(current)

		removed := current.Diff(updated)
		added := updated.Diff(current)
		if len(removed) == 0 && len(added) == 0 {
			return nil
		}

		*field = updated
		if err := tx.PutDocument(doc); err != nil {
			return memexerrors.NewStoreError(op, err)
		}
		for _, key := range removed {
			if err := unstamp(tx, op, pageID, key); err != nil {
				return err
			}
		}
		for _, key := range added {
			if err := stamp(tx, op, pageID, key, doc.Latest, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddTags unions tags into the page's tag set.
func (ix *SearchIndex) AddTags(ctx context.Context, pageID string, tags []string) error {
	add := membershipKeys(keys.Tag, tags)
	return ix.updateMembership(ctx, "addTags", pageID, keys.Tag, func(current keys.Set) keys.Set {
		next := current.Clone()
		next.AddAll(add)
		return next
	})
}

// SetTags replaces the page's tag set. Tag entries the page no longer holds are
// cleaned up.
func (ix *SearchIndex) SetTags(ctx context.Context, pageID string, tags []string) error {
	set := membershipKeys(keys.Tag, tags)
	return ix.updateMembership(ctx, "setTags", pageID, keys.Tag, func(keys.Set) keys.Set {
		return set
	})
}

// DelTags removes tags from the page. Tag entries left without pages are deleted.
func (ix *SearchIndex) DelTags(ctx context.Context, pageID string, tags []string) error {
	del := membershipKeys(keys.Tag, tags)
	return ix.updateMembership(ctx, "delTags", pageID, keys.Tag, func(current keys.Set) keys.Set {
		next := current.Clone()
		for k := range del {
			next.Remove(k)
		}
		return next
	})
}

func (ix *SearchIndex) AddTagsConcurrent(ctx context.Context, pageID string, tags []string) error {
	return ix.submit(ctx, "addTags", func(ctx context.Context) error {
		return ix.AddTags(ctx, pageID, tags)
	})
}

func (ix *SearchIndex) SetTagsConcurrent(ctx context.Context, pageID string, tags []string) error {
	return ix.submit(ctx, "setTags", func(ctx context.Context) error {
		return ix.SetTags(ctx, pageID, tags)
	})
}

func (ix *SearchIndex) DelTagsConcurrent(ctx context.Context, pageID string, tags []string) error {
	return ix.submit(ctx, "delTags", func(ctx context.Context) error {
		return ix.DelTags(ctx, pageID, tags)
	})
}

// AddToList puts the page in the named list.
func (ix *SearchIndex) AddToList(ctx context.Context, pageID, list string) error {
	add := membershipKeys(keys.List, []string{list})
	return ix.updateMembership(ctx, "addToList", pageID, keys.List, func(current keys.Set) keys.Set {
		next := current.Clone()
		next.AddAll(add)
		return next
	})
}

// RemoveFromList takes the page out of the named list.
func (ix *SearchIndex) RemoveFromList(ctx context.Context, pageID, list string) error {
	key := keys.For(keys.List, strings.TrimSpace(list))
	return ix.updateMembership(ctx, "removeFromList", pageID, keys.List, func(current keys.Set) keys.Set {
		next := current.Clone()
		next.Remove(key)
		return next
	})
}

func (ix *SearchIndex) AddToListConcurrent(ctx context.Context, pageID, list string) error {
	return ix.submit(ctx, "addToList", func(ctx context.Context) error {
		return ix.AddToList(ctx, pageID, list)
	})
}

func (ix *SearchIndex) RemoveFromListConcurrent(ctx context.Context, pageID, list string) error {
	return ix.submit(ctx, "removeFromList", func(ctx context.Context) error {
		return ix.RemoveFromList(ctx, pageID, list)
	})
}
