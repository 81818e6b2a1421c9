// Package index implements the page search index: the reverse-index documents and
// the derived term, domain, tag, list and timestamp entries kept consistent with them.
package index

import (
	"context"
	"regexp"

	"github.com/standardbeagle/memex-index/internal/pipeline"
	"github.com/standardbeagle/memex-index/internal/queue"
	"github.com/standardbeagle/memex-index/internal/store"
	"github.com/standardbeagle/memex-index/internal/terms"
)

type Options struct {
	Cleaner   *terms.Cleaner
	// Separator splits page text and queries into terms. Nil uses Unicode word
	// segmentation.
	Separator *regexp.Regexp

	// QueueCapacity bounds the number of pending mutations.
	QueueCapacity int

	DefaultPageSize int
	MaxPageSize     int

	FuzzySuggest   bool
	FuzzyThreshold float32
}

func DefaultOptions() Options {
	return Options{
		QueueCapacity:   256,
		DefaultPageSize: 10,
		MaxPageSize:     1000,
		FuzzySuggest:    true,
		FuzzyThreshold:  0.8,
	}
}

// SearchIndex is constructed once and shared by every component that reads or
// writes the index.
type SearchIndex struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
	queue    *queue.Queue
	opts     Options
}

// New wraps an open store. The caller keeps ownership of the store and must close
// the index before closing it.
func New(st *store.Store, opts Options) *SearchIndex {
	if opts.Cleaner == nil {
		opts.Cleaner = terms.NewCleaner(terms.DefaultCleanerOptions())
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 1000
	}
	return &SearchIndex{
		store:    st,
		pipeline: pipeline.New(opts.Cleaner, opts.Separator),
		queue:    queue.New(opts.QueueCapacity),
		opts:     opts,
	}
}

// Close waits for queued mutations to finish and stops the writer.
func (ix *SearchIndex) Close() {
	ix.queue.Close()
}

func (ix *SearchIndex) Store() *store.Store {
	return ix.store
}

// Pending returns the number of queued mutations.
func (ix *SearchIndex) Pending() int {
	return ix.queue.Len()
}

// submit funnels a mutation through the write queue and waits for it.
func (ix *SearchIndex) submit(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return ix.queue.Submit(ctx, name, fn)
}
