// Package pipeline turns page requests into canonical reverse-index documents.
package pipeline

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/terms"
)

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cleaner   *terms.Cleaner
	separator *regexp.Regexp
}

// New returns a pipeline. With a nil separator, words are found by Unicode text
// segmentation; otherwise page text and queries are split on separator.
func New(cleaner *terms.Cleaner, separator *regexp.Regexp) *Pipeline {
	if cleaner == nil {
		cleaner = terms.NewCleaner(terms.DefaultCleanerOptions())
	}
	return &Pipeline{cleaner: cleaner, separator: separator}
}

// PageID derives a stable id from a URL for requests that do not carry one.
func PageID(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(terms.NormalizeURL(rawURL))).String()
}

// Transform builds the document for req. It fails with InvalidRequestError when
// the url is missing or a timestamp is negative, and with EmptyContentError when
// the page has no text or cleaning leaves no content terms.
func (p *Pipeline) Transform(req model.PageRequest) (*model.Document, error) {
	page := req.PageDoc
	if strings.TrimSpace(page.URL) == "" {
		return nil, memexerrors.NewInvalidRequestError(page.ID, "pageDoc.url", "is required")
	}
	id := page.ID
	if id == "" {
		id = PageID(page.URL)
	}
	if err := checkTimes(id, "visitDocs", req.VisitDocs); err != nil {
		return nil, err
	}
	if err := checkTimes(id, "bookmarkDocs", req.BookmarkDocs); err != nil {
		return nil, err
	}

	parts, ok := terms.DecomposeURL(page.URL)
	if !ok {
		log.Printf("WARNING: no domain recognized in %q, indexing it under the full URL", page.URL)
	}

	if strings.TrimSpace(page.Content.FullText) == "" {
		return nil, memexerrors.NewEmptyContentError(id, page.URL)
	}

	doc := &model.Document{
		ID:         id,
		URL:        page.URL,
		Domain:     keys.For(keys.Domain, parts.Domain),
		Terms:      p.termKeys(keys.Term, page.Content.FullText),
		TitleTerms: p.termKeys(keys.Title, page.Content.Title),
		URLTerms:   terms.ExtractTerms(parts.Remainder, terms.URLSeparator, keys.URL),
	}
	if parts.Hostname != "" {
		doc.Hostname = keys.For(keys.Hostname, parts.Hostname)
	}
	if len(doc.Terms) == 0 {
		return nil, memexerrors.NewEmptyContentError(id, page.URL)
	}
	doc.Init()

	doc.TimestampMeta = make(map[string]map[string]any)
	addTimestamps(doc, doc.Visits, keys.Visit, req.VisitDocs)
	addTimestamps(doc, doc.Bookmarks, keys.Bookmark, req.BookmarkDocs)
	doc.RecomputeLatest()

	return doc, nil
}

// Terms normalizes a free-text query or extra page text into content term keys.
func (p *Pipeline) Terms(text string) keys.Set {
	return p.termKeys(keys.Term, text)
}

func (p *Pipeline) termKeys(kind keys.Kind, text string) keys.Set {
	return terms.Keys(kind, p.cleaner.Tokens(text, p.separator))
}

// CheckTime rejects timestamps that cannot be encoded in key order.
func CheckTime(pageID, field string, ms int64) error {
	if ms < 0 {
		return memexerrors.NewInvalidRequestError(pageID, field, fmt.Sprintf("time %d must not be negative", ms))
	}
	return nil
}

func checkTimes(pageID, field string, docs []model.TimestampDoc) error {
	for _, td := range docs {
		if err := CheckTime(pageID, field, td.Time); err != nil {
			return err
		}
	}
	return nil
}

func addTimestamps(doc *model.Document, set keys.Set, kind keys.Kind, docs []model.TimestampDoc) {
	for _, td := range docs {
		key := keys.Timestamp(kind, td.Time)
		set.Add(key)
		if len(td.Meta) > 0 {
			doc.TimestampMeta[key] = td.Meta
		}
	}
}
