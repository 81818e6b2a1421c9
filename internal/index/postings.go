package index

import (
	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

// stamp sets the page's posting in the entry under key, creating the entry when
// needed. Existing metadata is kept unless meta replaces it.
func stamp(tx *store.Tx, op, pageID, key string, latest int64, meta map[string]any) error {
	e, err := tx.Entry(key)
	if err != nil {
		return memexerrors.NewDerivedIndexWriteError(op, pageID, key, err)
	}
	if e == nil {
		e = make(model.Entry)
	}
	p := e[pageID]
	p.Latest = latest
	if meta != nil {
		p.Meta = meta
	}
	e[pageID] = p
	if err := tx.PutEntry(key, e); err != nil {
		return memexerrors.NewDerivedIndexWriteError(op, pageID, key, err)
	}
	return nil
}

// unstamp removes the page from the entry under key, deleting the entry once empty.
func unstamp(tx *store.Tx, op, pageID, key string) error {
	e, err := tx.Entry(key)
	if err != nil {
		return memexerrors.NewDerivedIndexWriteError(op, pageID, key, err)
	}
	if _, ok := e[pageID]; !ok {
		return nil
	}
	delete(e, pageID)
	if err := tx.PutEntry(key, e); err != nil {
		return memexerrors.NewDerivedIndexWriteError(op, pageID, key, err)
	}
	return nil
}

// restamp rewrites the page's latest timestamp on every ranked key it holds.
func restamp(tx *store.Tx, op string, doc *model.Document) error {
	for _, key := range doc.RankedKeys() {
		if err := stamp(tx, op, doc.ID, key, doc.Latest, nil); err != nil {
			return err
		}
	}
	return nil
}

// loadDocument returns the page's document or a PageNotIndexedError.
func loadDocument(tx *store.Tx, op, pageID string) (*model.Document, error) {
	doc, err := tx.Document(pageID)
	if err != nil {
		return nil, memexerrors.NewStoreError(op, err)
	}
	if doc == nil {
		return nil, memexerrors.NewPageNotIndexedError(op, pageID)
	}
	return doc, nil
}
