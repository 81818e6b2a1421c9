// Package ingest watches an inbox directory and feeds page request files into the
// index write queue.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/memex-index/internal/debug"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/pipeline"
	"github.com/standardbeagle/memex-index/pkg/pathutil"
)

// Indexer is the part of the search index the watcher writes through.
type Indexer interface {
	AddPageConcurrent(ctx context.Context, req model.PageRequest) error
	DelConcurrent(ctx context.Context, pageIDs ...string) error
}

type Options struct {
	// Include and Exclude are doublestar globs matched against the slash-separated
	// path relative to the watched root.
	Include  []string
	Exclude  []string
	Debounce time.Duration
}

// Stats counts what the watcher has done since Start.
type Stats struct {
	Indexed   int64
	Removed   int64
	Errors    int64
	LastEvent time.Time
}

// Watcher indexes page request files as they appear and deindexes them when they
// are removed.
type Watcher struct {
	watcher   *fsnotify.Watcher
	ix        Indexer
	opts      Options
	root      string
	debouncer *debouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu    sync.Mutex
	pages map[string]string // path -> page id
	stats Stats
}

func New(ix Indexer, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(opts.Include) == 0 {
		opts.Include = []string{"**/*.json"}
	}
	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			fsw.Close()
			return nil, fmt.Errorf("invalid glob %q", p)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fsw,
		ix:      ix,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		pages:   make(map[string]string),
	}
	w.debouncer = newDebouncer(opts.Debounce, w.flush)
	return w, nil
}

// Start watches root and every directory below it. Files already present are
// queued for indexing.
func (w *Watcher) Start(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	w.root = abs
	debug.LogIndexing("starting ingest watcher for %s\n", abs)

	if err := w.addWatches(abs); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", abs, err)
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop ends watching and waits for in-flight work. Pending debounced events that
// have not fired are dropped.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	w.debouncer.stop()
	log.Printf("ingest watcher stopped")
	return err
}

func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if w.Matches(path) {
				w.debouncer.add(path, eventUpsert)
			}
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ingest watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogIndexing("ingest: %v %s\n", event.Op, path)

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.Matches(path) {
			w.debouncer.add(path, eventRemove)
		}
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			// files written into a new directory before the watch lands are picked up
			// by the walk
			if err := w.addWatches(path); err != nil {
				log.Printf("Warning: failed to watch new directory %s: %v", path, err)
			}
		}
		return
	}
	if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && w.Matches(path) {
		w.debouncer.add(path, eventUpsert)
	}
}

func (w *Watcher) rel(path string) string {
	return pathutil.GlobPath(path, w.root)
}

func (w *Watcher) excluded(path string) bool {
	rel := w.rel(path)
	for _, p := range w.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Matches reports whether a file path is one the watcher ingests.
func (w *Watcher) Matches(path string) bool {
	if w.excluded(path) {
		return false
	}
	rel := w.rel(path)
	for _, p := range w.opts.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) flush(events map[string]eventKind) {
	var removes, upserts []string
	for path, kind := range events {
		if kind == eventRemove {
			removes = append(removes, path)
		} else {
			upserts = append(upserts, path)
		}
	}
	sort.Strings(removes)
	sort.Strings(upserts)
	log.Printf("ingest: processing %d file events", len(events))

	for _, path := range removes {
		w.record(w.Forget(w.ctx, path), false)
	}
	for _, path := range upserts {
		w.record(w.IngestFile(w.ctx, path), true)
	}
}

func (w *Watcher) record(err error, upsert bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastEvent = time.Now()
	switch {
	case err != nil:
		w.stats.Errors++
		log.Printf("ingest: %v", err)
	case upsert:
		w.stats.Indexed++
	default:
		w.stats.Removed++
	}
}

// ReadRequest decodes a page request file.
func ReadRequest(path string) (model.PageRequest, error) {
	var req model.PageRequest
	if err := validateRequestFile(path); err != nil {
		return req, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	if req.PageDoc.URL == "" {
		return req, fmt.Errorf("%s: page request has no url", path)
	}
	return req, nil
}

// IngestFile reads the page request at path and queues it for indexing. The page id
// is remembered so removing the file deindexes the page.
func (w *Watcher) IngestFile(ctx context.Context, path string) error {
	req, err := ReadRequest(path)
	if err != nil {
		return err
	}
	id := req.PageDoc.ID
	if id == "" {
		id = pipeline.PageID(req.PageDoc.URL)
	}
	if err := w.ix.AddPageConcurrent(ctx, req); err != nil {
		return fmt.Errorf("index %s: %w", path, err)
	}
	w.mu.Lock()
	w.pages[path] = id
	w.mu.Unlock()
	return nil
}

// Forget queues removal of the page ingested from path. Paths that were never
// ingested are ignored.
func (w *Watcher) Forget(ctx context.Context, path string) error {
	w.mu.Lock()
	id, ok := w.pages[path]
	delete(w.pages, path)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	if err := w.ix.DelConcurrent(ctx, id); err != nil {
		return fmt.Errorf("deindex %s: %w", path, err)
	}
	return nil
}

type eventKind int

const (
	eventUpsert eventKind = iota
	eventRemove
)

// debouncer coalesces events per path and flushes them once no new event has
// arrived for the delay.
type debouncer struct {
	mu      sync.Mutex
	events  map[string]eventKind
	delay   time.Duration
	timer   *time.Timer
	flushFn func(map[string]eventKind)
	pending sync.WaitGroup
	stopped bool
}

func newDebouncer(delay time.Duration, flush func(map[string]eventKind)) *debouncer {
	return &debouncer{
		events:  make(map[string]eventKind),
		delay:   delay,
		flushFn: flush,
	}
}

func (d *debouncer) add(path string, kind eventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.events[path] = kind
	if d.timer != nil && d.timer.Stop() {
		d.pending.Done()
	}
	d.pending.Add(1)
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) fire() {
	defer d.pending.Done()
	d.mu.Lock()
	events := d.events
	d.events = make(map[string]eventKind)
	d.mu.Unlock()
	if len(events) > 0 {
		d.flushFn(events)
	}
}

// stop cancels a scheduled flush and waits for a running one.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.pending.Done()
	}
	d.mu.Unlock()
	d.pending.Wait()
}
