package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowList map[string]bool

func (a allowList) IsAllowed(url string) bool { return a[url] }

func TestSearchANDSemantics(t *testing.T) {
	ix := newTestIndex(t)
	mustAdd(t, ix, page("p1", "http://a.com/1", "", "hello world", 1000))
	mustAdd(t, ix, page("p2", "http://a.com/2", "", "hello test", 2000))

	assert.Equal(t, []string{"p1"}, search(t, ix, "hello", "world"))
	assert.Equal(t, []string{"p2", "p1"}, search(t, ix, "hello"))
}

func TestSearchShortCircuitsOnMissingTerm(t *testing.T) {
	ix := newTestIndex(t)
	mustAdd(t, ix, page("p1", "http://a.com/1", "", "hello world", 1000))

	assert.Empty(t, search(t, ix, "hello", "absent"))
}

func TestSearchNormalizesQuery(t *testing.T) {
	ix := newTestIndex(t)
	mustAdd(t, ix, page("p1", "http://a.com/1", "", "Running dogs", 1000))

	assert.Equal(t, []string{"p1"}, search(t, ix, "RUNS"))
	assert.Equal(t, []string{"p1"}, search(t, ix, "the dog"), "stopwords in the query are ignored")
	assert.Empty(t, search(t, ix, "the"), "a query of only stopwords matches nothing")
}

func TestSearchOrdersByRecencyThenID(t *testing.T) {
	ix := newTestIndex(t)
	mustAdd(t, ix, page("b", "http://a.com/b", "", "alpha", 500))
	mustAdd(t, ix, page("a", "http://a.com/a", "", "alpha", 500))
	mustAdd(t, ix, page("c", "http://a.com/c", "", "alpha", 900))

	assert.Equal(t, []string{"c", "a", "b"}, search(t, ix, "alpha"))
}

func TestSearchPaginationIsStable(t *testing.T) {
	ix := newTestIndex(t)
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		mustAdd(t, ix, page(id, "http://a.com/"+id, "", "alpha", int64(100*(i%2))))
	}
	ctx := context.Background()
	params := SearchParams{Query: []string{"alpha"}, Offset: 1, PageSize: 2}

	first, err := ix.Search(ctx, params, SearchOptions{})
	require.NoError(t, err)
	second, err := ix.Search(ctx, params, SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"p4", "p1"}, ids(first))

	beyond, err := ix.Search(ctx, SearchParams{Query: []string{"alpha"}, Offset: 10}, SearchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)
}

func TestSearchFullDocs(t *testing.T) {
	ix := newTestIndex(t)
	mustAdd(t, ix, page("p1", "http://a.com/1", "", "alpha", 1000))

	results, err := ix.Search(context.Background(), SearchParams{Query: []string{"alpha"}}, SearchOptions{FullDocs: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Document)
	assert.Equal(t, "http://a.com/1", results[0].Document.URL)
	assert.Equal(t, int64(1000), results[0].Score)

	plain, err := ix.Search(context.Background(), SearchParams{Query: []string{"alpha"}}, SearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, plain[0].Document)
}

func TestSearchFilterAppliesBeforePagination(t *testing.T) {
	ix := newTestIndex(t)
	mustAdd(t, ix, page("p1", "http://a.com/1", "", "alpha", 3000))
	mustAdd(t, ix, page("p2", "http://a.com/2", "", "alpha", 2000))
	mustAdd(t, ix, page("p3", "http://a.com/3", "", "alpha", 1000))

	filter := allowList{"http://a.com/2": true, "http://a.com/3": true}
	results, err := ix.Search(context.Background(), SearchParams{Query: []string{"alpha"}, PageSize: 1}, SearchOptions{Filter: filter})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids(results))
}

func TestSearchEmptyQuery(t *testing.T) {
	ix := newTestIndex(t)
	results, err := ix.Search(context.Background(), SearchParams{}, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
