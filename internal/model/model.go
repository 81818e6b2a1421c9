// Package model holds the typed records stored in and returned by the index.
package model

import (
	"github.com/standardbeagle/memex-index/internal/keys"
)

// Content is the extracted text of a page.
type Content struct {
	Title    string `json:"title"`
	FullText string `json:"fullText"`
}

// PageDoc is the raw page handed to the indexer.
type PageDoc struct {
	ID      string  `json:"id,omitempty"`
	URL     string  `json:"url"`
	Content Content `json:"content"`
}

// TimestampDoc records one visit or bookmark of a page.
type TimestampDoc struct {
	Time int64          `json:"time"` // milliseconds since the epoch
	Meta map[string]any `json:"meta,omitempty"`
}

// PageRequest is the input of AddPage.
type PageRequest struct {
	PageDoc         PageDoc        `json:"pageDoc"`
	VisitDocs       []TimestampDoc `json:"visitDocs,omitempty"`
	BookmarkDocs    []TimestampDoc `json:"bookmarkDocs,omitempty"`
	RejectNoContent bool           `json:"rejectNoContent,omitempty"`
}

// Document is the reverse-index record of one page. Every key it holds has a
// derived entry that maps back to the page, and no other derived entry does.
type Document struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Domain     string   `json:"domain"`
	Hostname   string   `json:"hostname,omitempty"`
	Terms      keys.Set `json:"terms"`
	TitleTerms keys.Set `json:"titleTerms"`
	URLTerms   keys.Set `json:"urlTerms"`
	Tags       keys.Set `json:"tags"`
	Lists      keys.Set `json:"lists"`
	Visits     keys.Set `json:"visits"`
	Bookmarks  keys.Set `json:"bookmarks"`
	Latest     int64    `json:"latest"`

	// TimestampMeta carries visit and bookmark metadata from the pipeline to the
	// indexer. It is stored on the timestamp entries, not on the document.
	TimestampMeta map[string]map[string]any `json:"-"`
}

// Init replaces nil sets with empty ones so callers can mutate freely.
func (d *Document) Init() {
	for _, s := range []*keys.Set{&d.Terms, &d.TitleTerms, &d.URLTerms, &d.Tags, &d.Lists, &d.Visits, &d.Bookmarks} {
		if *s == nil {
			*s = make(keys.Set)
		}
	}
}

// RecomputeLatest sets Latest to the newest visit, or the newest bookmark when the
// page has no visits, and reports whether it changed.
func (d *Document) RecomputeLatest() bool {
	latest := maxTimestamp(d.Visits)
	if len(d.Visits) == 0 {
		latest = maxTimestamp(d.Bookmarks)
	}
	changed := latest != d.Latest
	d.Latest = latest
	return changed
}

func maxTimestamp(set keys.Set) int64 {
	var latest int64
	for k := range set {
		if ms, err := keys.ParseTimestamp(k); err == nil && ms > latest {
			latest = ms
		}
	}
	return latest
}

// RankedKeys returns every derived key whose posting carries the page's latest
// timestamp: domain, hostname, terms, tags and lists. Sorted, no duplicates.
func (d *Document) RankedKeys() []string {
	s := make(keys.Set)
	if d.Domain != "" {
		s.Add(d.Domain)
	}
	if d.Hostname != "" {
		s.Add(d.Hostname)
	}
	for _, set := range []keys.Set{d.Terms, d.TitleTerms, d.URLTerms, d.Tags, d.Lists} {
		for k := range set {
			s.Add(k)
		}
	}
	return s.Sorted()
}

// TimestampKeys returns the visit and bookmark keys of the page.
func (d *Document) TimestampKeys() []string {
	s := d.Visits.Clone()
	s.AddAll(d.Bookmarks)
	return s.Sorted()
}

// DerivedKeys returns every derived key referencing the page.
func (d *Document) DerivedKeys() []string {
	return append(d.RankedKeys(), d.TimestampKeys()...)
}

// Posting is the value a derived entry holds for one page.
type Posting struct {
	Latest int64          `json:"latest"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Entry maps page ids to postings for one derived key.
type Entry map[string]Posting

// PageIDs returns the ids in the entry in lexical order.
func (e Entry) PageIDs() []string {
	s := make(keys.Set, len(e))
	for id := range e {
		s.Add(id)
	}
	return s.Sorted()
}

// SearchResult is one ranked hit. Document is set only when full documents are requested.
type SearchResult struct {
	ID       string    `json:"id"`
	Document *Document `json:"document,omitempty"`
	Score    int64     `json:"score"`
}
