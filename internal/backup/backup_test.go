package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
	"github.com/standardbeagle/memex-index/internal/index"
	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openIndex(t *testing.T) *index.SearchIndex {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"), store.Options{})
	require.NoError(t, err)
	ix := index.New(st, index.DefaultOptions())
	t.Cleanup(func() {
		ix.Close()
		st.Close()
	})
	return ix
}

func seed(t *testing.T, ix *index.SearchIndex) {
	t.Helper()
	ctx := context.Background()
	pages := []model.PageRequest{
		{PageDoc: model.PageDoc{ID: "p1", URL: "http://a.com/1", Content: model.Content{Title: "First", FullText: "alpha beta gamma"}},
			VisitDocs: []model.TimestampDoc{{Time: 1000, Meta: map[string]any{"scroll": 0.5}}}},
		{PageDoc: model.PageDoc{ID: "p2", URL: "http://b.com/2", Content: model.Content{FullText: "alpha delta"}},
			VisitDocs: []model.TimestampDoc{{Time: 2000}}},
		{PageDoc: model.PageDoc{ID: "p3", URL: "http://c.org/3", Content: model.Content{FullText: "beta epsilon"}},
			BookmarkDocs: []model.TimestampDoc{{Time: 1500}}},
	}
	for _, p := range pages {
		require.NoError(t, ix.AddPage(ctx, p))
	}
	require.NoError(t, ix.AddTags(ctx, "p1", []string{"x"}))
	require.NoError(t, ix.AddToList(ctx, "p2", "reading"))
}

func searchIDs(t *testing.T, ix *index.SearchIndex, query ...string) []model.SearchResult {
	t.Helper()
	results, err := ix.Search(context.Background(), index.SearchParams{Query: query}, index.SearchOptions{FullDocs: true})
	require.NoError(t, err)
	return results
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	src := openIndex(t)
	seed(t, src)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "dump")

	manifest, err := Dump(ctx, src.Store(), dir, 5, 3)
	require.NoError(t, err)
	require.Greater(t, len(manifest.Chunks), 1)

	dst := openIndex(t)
	n, err := Restore(ctx, dst.Store(), dir, 2)
	require.NoError(t, err)
	assert.Equal(t, manifest.Records, n)

	for _, q := range [][]string{{"alpha"}, {"beta"}, {"alpha", "gamma"}, {"epsilon"}} {
		assert.Equal(t, searchIDs(t, src, q...), searchIDs(t, dst, q...), "query %v", q)
	}
	problems, err := dst.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, problems)

	before, err := Collect(ctx, src.Store())
	require.NoError(t, err)
	after, err := Collect(ctx, dst.Store())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRestoreReplacesNewerPages(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.AddPage(ctx, model.PageRequest{
		PageDoc:   model.PageDoc{ID: "p1", URL: "http://a.com/1", Content: model.Content{FullText: "alpha"}},
		VisitDocs: []model.TimestampDoc{{Time: 1000}},
	}))
	dir := t.TempDir()
	_, err := Dump(ctx, ix.Store(), dir, 10, 1)
	require.NoError(t, err)

	require.NoError(t, ix.AddPage(ctx, model.PageRequest{
		PageDoc:   model.PageDoc{ID: "p2", URL: "http://a.com/2", Content: model.Content{FullText: "alpha"}},
		VisitDocs: []model.TimestampDoc{{Time: 2000}},
	}))
	require.NoError(t, ix.AddTags(ctx, "p2", []string{"later"}))

	_, err = Restore(ctx, ix.Store(), dir, 1)
	require.NoError(t, err)

	problems, err := ix.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, problems)

	results := searchIDs(t, ix, "alpha")
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)

	_, err = ix.Get(ctx, "p2")
	assert.True(t, errors.Is(err, memexerrors.ErrPageNotIndexed))
	tags, err := ix.SuggestTags(ctx, "lat", 10)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestDumpEmptyStore(t *testing.T) {
	ix := openIndex(t)
	dir := t.TempDir()

	manifest, err := Dump(context.Background(), ix.Store(), dir, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, manifest.Records)
	assert.Empty(t, manifest.Chunks)

	records, err := Load(context.Background(), dir, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadDetectsTampering(t *testing.T) {
	ix := openIndex(t)
	seed(t, ix)
	dir := t.TempDir()
	manifest, err := Dump(context.Background(), ix.Store(), dir, 100, 1)
	require.NoError(t, err)

	path := filepath.Join(dir, manifest.Chunks[0].File)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, ' '), 0o644))

	_, err = Load(context.Background(), dir, 1)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestRestoreEntriesRejectsBadRecords(t *testing.T) {
	ix := openIndex(t)
	records := []Record{
		{Key: "bogus/key", Value: json.RawMessage(`{}`)},
		{Key: "page/p1", Value: json.RawMessage(`{"id":"other"}`)},
		{Key: "term/alpha", Value: json.RawMessage(`[1,2]`)},
		{Key: "term/beta", Value: json.RawMessage(`{"p1":{"latest":1}}`)},
	}

	err := RestoreEntries(context.Background(), ix.Store(), records)
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)

	// nothing is written when validation fails
	all, err := Collect(context.Background(), ix.Store())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReadManifestVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(`{"version":99}`), 0o644))
	_, err := ReadManifest(dir)
	assert.ErrorContains(t, err, "unsupported dump version 99")
}
