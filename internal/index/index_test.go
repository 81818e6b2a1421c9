package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/memex-index/internal/model"
	"github.com/standardbeagle/memex-index/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"), store.Options{})
	require.NoError(t, err)

	ix := New(st, DefaultOptions())
	t.Cleanup(func() {
		ix.Close()
		st.Close()
	})
	return ix
}

func page(id, url, title, text string, visits ...int64) model.PageRequest {
	req := model.PageRequest{
		PageDoc: model.PageDoc{ID: id, URL: url, Content: model.Content{Title: title, FullText: text}},
	}
	for _, v := range visits {
		req.VisitDocs = append(req.VisitDocs, model.TimestampDoc{Time: v})
	}
	return req
}

func mustAdd(t *testing.T, ix *SearchIndex, req model.PageRequest) {
	t.Helper()
	require.NoError(t, ix.AddPage(context.Background(), req))
}

// requireConsistent fails the test when any document and derived entry disagree.
func requireConsistent(t *testing.T, ix *SearchIndex) {
	t.Helper()
	problems, err := ix.Verify(context.Background())
	require.NoError(t, err)
	require.Empty(t, problems)
}

func ids(results []model.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func search(t *testing.T, ix *SearchIndex, query ...string) []string {
	t.Helper()
	results, err := ix.Search(context.Background(), SearchParams{Query: query}, SearchOptions{})
	require.NoError(t, err)
	return ids(results)
}
