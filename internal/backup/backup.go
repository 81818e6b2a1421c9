// Package backup dumps the whole index to chunked JSON files and restores it.
//
// A dump directory holds chunk-00000.json, chunk-00001.json, ... each a JSON array of
// {key, value} records in key order, and a manifest.json listing every chunk with its
// record count and xxhash checksum.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/memex-index/internal/debug"
	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
	"github.com/standardbeagle/memex-index/internal/version"
)

const (
	ManifestName     = "manifest.json"
	FormatVersion    = 1
	DefaultChunkSize = 1000
	DefaultWorkers   = 4
)

// Record is one stored key and its JSON value.
type Record struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type ChunkInfo struct {
	File     string `json:"file"`
	Records  int    `json:"records"`
	Checksum uint64 `json:"checksum"`
}

// Manifest describes a dump directory.
type Manifest struct {
	Version   int         `json:"version"`
	Generator string      `json:"generator"`
	Created   time.Time   `json:"created"`
	Records   int         `json:"records"`
	Chunks    []ChunkInfo `json:"chunks"`
}

// Collect reads every key of every kind from one snapshot, in kind then key order.
func Collect(ctx context.Context, st *store.Store) ([]Record, error) {
	var out []Record
	err := st.View(func(tx *store.Tx) error {
		for _, kind := range keys.All {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := tx.Scan(store.ScanOptions{Kind: kind}, func(key string, value []byte) (bool, error) {
				out = append(out, Record{Key: key, Value: append(json.RawMessage(nil), value...)})
				return true, nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func chunkName(i int) string {
	return fmt.Sprintf("chunk-%05d.json", i)
}

// Dump writes the index into dir as chunks of at most chunkSize records, using up to
// workers concurrent writers, and returns the manifest it wrote.
func Dump(ctx context.Context, st *store.Store, dir string, chunkSize, workers int) (*Manifest, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}

	records, err := Collect(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("collect records: %w", err)
	}

	var chunks [][]Record
	for start := 0; start < len(records); start += chunkSize {
		chunks = append(chunks, records[start:min(start+chunkSize, len(records))])
	}

	manifest := &Manifest{
		Version:   FormatVersion,
		Generator: version.FullInfo(),
		Created:   time.Now().UTC(),
		Records:   len(records),
		Chunks:    make([]ChunkInfo, len(chunks)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(chunk)
			if err != nil {
				return fmt.Errorf("encode %s: %w", chunkName(i), err)
			}
			if err := os.WriteFile(filepath.Join(dir, chunkName(i)), data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", chunkName(i), err)
			}
			manifest.Chunks[i] = ChunkInfo{File: chunkName(i), Records: len(chunk), Checksum: xxhash.Sum64(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	debug.LogStore("dumped %d records in %d chunks to %s\n", len(records), len(chunks), dir)
	return manifest, nil
}

// ReadManifest loads dir's manifest.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported dump version %d", m.Version)
	}
	return &m, nil
}

// Load reads and checks every chunk listed in dir's manifest, decoding chunks in
// parallel. Records come back in dump order.
func Load(ctx context.Context, dir string, workers int) ([]Record, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	decoded := make([][]Record, len(m.Chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, info := range m.Chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, info.File))
			if err != nil {
				return fmt.Errorf("read %s: %w", info.File, err)
			}
			if sum := xxhash.Sum64(data); sum != info.Checksum {
				return fmt.Errorf("%s: checksum mismatch (%x != %x)", info.File, sum, info.Checksum)
			}
			var recs []Record
			if err := json.Unmarshal(data, &recs); err != nil {
				return fmt.Errorf("decode %s: %w", info.File, err)
			}
			if len(recs) != info.Records {
				return fmt.Errorf("%s: %d records, manifest says %d", info.File, len(recs), info.Records)
			}
			decoded[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Record, 0, m.Records)
	for _, recs := range decoded {
		out = append(out, recs...)
	}
	return out, nil
}

// Validate checks that every record has a known kind and a value of the right
// shape. Every bad record is reported.
func Validate(records []Record) error {
	var result *multierror.Error
	for _, r := range records {
		if err := validateRecord(r); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func validateRecord(r Record) error {
	kind, ok := keys.KindOf(r.Key)
	if !ok {
		return fmt.Errorf("record %q: unknown key kind", r.Key)
	}
	if kind == keys.Page {
		var doc model.Document
		if err := json.Unmarshal(r.Value, &doc); err != nil {
			return fmt.Errorf("record %q: bad page document: %w", r.Key, err)
		}
		if keys.For(keys.Page, doc.ID) != r.Key {
			return fmt.Errorf("record %q: document id %q does not match key", r.Key, doc.ID)
		}
		return nil
	}
	var e model.Entry
	if err := json.Unmarshal(r.Value, &e); err != nil {
		return fmt.Errorf("record %q: bad entry: %w", r.Key, err)
	}
	return nil
}

// RestoreEntries validates records and replaces the store contents with them in
// one transaction. Pages indexed after the dump was taken are dropped; keeping them
// next to the dumped entries would leave their postings missing.
func RestoreEntries(ctx context.Context, st *store.Store, records []Record) error {
	if err := Validate(records); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := st.Update(func(tx *store.Tx) error {
		for _, kind := range keys.All {
			if err := tx.Clear(kind); err != nil {
				return fmt.Errorf("restore: clear %s: %w", kind, err)
			}
		}
		for _, r := range records {
			if err := tx.Put(r.Key, r.Value); err != nil {
				return fmt.Errorf("restore %s: %w", r.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	debug.LogStore("restored %d records\n", len(records))
	return nil
}

// Restore loads the dump in dir and replaces the contents of st with it.
func Restore(ctx context.Context, st *store.Store, dir string, workers int) (int, error) {
	records, err := Load(ctx, dir, workers)
	if err != nil {
		return 0, err
	}
	if err := RestoreEntries(ctx, st, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
