package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
)

// Tx is a transaction over all kinds. It must not be used outside the callback
// that received it, and byte slices it hands out are only valid until then.
type Tx struct {
	tx *bolt.Tx
}

func (t *Tx) bucketFor(key string) (*bolt.Bucket, error) {
	kind, ok := keys.KindOf(key)
	if !ok {
		return nil, fmt.Errorf("key %q has no known kind", key)
	}
	return t.bucket(kind)
}

func (t *Tx) bucket(kind keys.Kind) (*bolt.Bucket, error) {
	b := t.tx.Bucket([]byte(kind))
	if b == nil {
		return nil, fmt.Errorf("bucket %s missing", kind)
	}
	return b, nil
}

// Get returns the raw value of key, or nil when absent.
func (t *Tx) Get(key string) ([]byte, error) {
	b, err := t.bucketFor(key)
	if err != nil {
		return nil, err
	}
	return b.Get([]byte(key)), nil
}

func (t *Tx) Put(key string, value []byte) error {
	b, err := t.bucketFor(key)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), value)
}

func (t *Tx) Delete(key string) error {
	b, err := t.bucketFor(key)
	if err != nil {
		return err
	}
	return b.Delete([]byte(key))
}

// Clear removes every key of kind. It needs a read-write transaction.
func (t *Tx) Clear(kind keys.Kind) error {
	if _, err := t.bucket(kind); err != nil {
		return err
	}
	if err := t.tx.DeleteBucket([]byte(kind)); err != nil {
		return err
	}
	_, err := t.tx.CreateBucket([]byte(kind))
	return err
}

// GetJSON decodes the value of key into v and reports whether the key existed.
func (t *Tx) GetJSON(key string, v any) (bool, error) {
	raw, err := t.Get(key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (t *Tx) PutJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return t.Put(key, data)
}

// Document returns the reverse-index document of pageID, or nil when absent.
func (t *Tx) Document(pageID string) (*model.Document, error) {
	var doc model.Document
	ok, err := t.GetJSON(keys.For(keys.Page, pageID), &doc)
	if err != nil || !ok {
		return nil, err
	}
	doc.Init()
	return &doc, nil
}

func (t *Tx) PutDocument(doc *model.Document) error {
	return t.PutJSON(keys.For(keys.Page, doc.ID), doc)
}

func (t *Tx) DeleteDocument(pageID string) error {
	return t.Delete(keys.For(keys.Page, pageID))
}

// Entry returns the derived entry stored under key, or nil when absent.
func (t *Tx) Entry(key string) (model.Entry, error) {
	var e model.Entry
	ok, err := t.GetJSON(key, &e)
	if err != nil || !ok {
		return nil, err
	}
	return e, nil
}

// PutEntry writes e under key, deleting the key when e is empty.
func (t *Tx) PutEntry(key string, e model.Entry) error {
	if len(e) == 0 {
		return t.Delete(key)
	}
	return t.PutJSON(key, e)
}

// Count returns the number of keys of kind.
func (t *Tx) Count(kind keys.Kind) (int, error) {
	b, err := t.bucket(kind)
	if err != nil {
		return 0, err
	}
	return b.Stats().KeyN, nil
}

// ScanOptions selects a key range of one kind.
type ScanOptions struct {
	Kind keys.Kind
	// Prefix restricts the scan to values starting with it.
	Prefix  string
	Reverse bool
	// Start is a full key to begin at, inclusive. It must fall inside the prefix range.
	Start string
}

// Scan calls fn for each key in range, in key order or reverse key order. fn returns
// false to stop early.
func (t *Tx) Scan(opts ScanOptions, fn func(key string, value []byte) (bool, error)) error {
	b, err := t.bucket(opts.Kind)
	if err != nil {
		return err
	}
	gte, lte := keys.Range(opts.Kind, opts.Prefix)
	prefix := []byte(gte)

	c := b.Cursor()
	var k, v []byte
	if opts.Reverse {
		upper := lte
		if opts.Start != "" {
			upper = opts.Start
		}
		k, v = c.Seek([]byte(upper))
		if k == nil {
			k, v = c.Last()
		} else if string(k) > upper {
			k, v = c.Prev()
		}
	} else {
		lower := gte
		if opts.Start != "" {
			lower = opts.Start
		}
		k, v = c.Seek([]byte(lower))
	}

	for k != nil && bytes.HasPrefix(k, prefix) {
		more, err := fn(string(k), v)
		if err != nil || !more {
			return err
		}
		if opts.Reverse {
			k, v = c.Prev()
		} else {
			k, v = c.Next()
		}
	}
	return nil
}
