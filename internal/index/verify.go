package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

// Inconsistency is one broken link between a page document and a derived entry.
type Inconsistency struct {
	PageID string `json:"pageId"`
	Key    string `json:"key"`
	// Problem is "missing" when the document holds a key whose entry lacks the
	// page, and "dangling" when an entry names a page that does not hold the key.
	Problem string `json:"problem"`
}

func (i Inconsistency) String() string {
	return fmt.Sprintf("%s posting for %s on %s", i.Problem, i.PageID, i.Key)
}

// Verify checks both directions of the document/entry link for every page and
// every derived entry.
func (ix *SearchIndex) Verify(ctx context.Context) ([]Inconsistency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []Inconsistency{}
	err := ix.store.View(func(tx *store.Tx) error {
		held := make(map[string]keys.Set)

		err := tx.Scan(store.ScanOptions{Kind: keys.Page}, func(_ string, value []byte) (bool, error) {
			var doc model.Document
			if err := json.Unmarshal(value, &doc); err != nil {
				return false, err
			}
			doc.Init()
			derived := keys.NewSet(doc.DerivedKeys()...)
			held[doc.ID] = derived
			for key := range derived {
				e, err := tx.Entry(key)
				if err != nil {
					return false, err
				}
				if _, ok := e[doc.ID]; !ok {
					out = append(out, Inconsistency{PageID: doc.ID, Key: key, Problem: "missing"})
				}
			}
			return true, nil
		})
		if err != nil {
			return err
		}

		for _, kind := range keys.Derived {
			err := tx.Scan(store.ScanOptions{Kind: kind}, func(key string, value []byte) (bool, error) {
				var e model.Entry
				if err := json.Unmarshal(value, &e); err != nil {
					return false, err
				}
				for _, id := range e.PageIDs() {
					if !held[id].Has(key) {
						out = append(out, Inconsistency{PageID: id, Key: key, Problem: "dangling"})
					}
				}
				return true, nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
