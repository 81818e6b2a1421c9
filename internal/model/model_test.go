package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/memex-index/internal/keys"
)

func TestRecomputeLatestPrefersVisits(t *testing.T) {
	d := &Document{}
	d.Init()
	d.Bookmarks.Add(keys.Timestamp(keys.Bookmark, 900))
	assert.True(t, d.RecomputeLatest())
	assert.Equal(t, int64(900), d.Latest)

	d.Visits.Add(keys.Timestamp(keys.Visit, 100))
	d.Visits.Add(keys.Timestamp(keys.Visit, 500))
	assert.True(t, d.RecomputeLatest())
	assert.Equal(t, int64(500), d.Latest, "bookmarks only count when there are no visits")

	assert.False(t, d.RecomputeLatest())
}

func TestDerivedKeys(t *testing.T) {
	d := &Document{
		ID:         "p1",
		Domain:     "domain/a.com",
		Hostname:   "hostname/a.com",
		Terms:      keys.NewSet("term/hello"),
		TitleTerms: keys.NewSet("title/hello"),
		URLTerms:   keys.NewSet("url/x"),
		Tags:       keys.NewSet("tag/x"),
		Visits:     keys.NewSet("visit/000000000000001"),
	}
	d.Init()

	assert.Equal(t, []string{"domain/a.com", "hostname/a.com", "tag/x", "term/hello", "title/hello", "url/x"}, d.RankedKeys())
	assert.Equal(t, []string{"visit/000000000000001"}, d.TimestampKeys())
	assert.Len(t, d.DerivedKeys(), 7)
}

func TestDocumentJSONOmitsTimestampMeta(t *testing.T) {
	d := &Document{ID: "p1", TimestampMeta: map[string]map[string]any{"visit/1": {"duration": 3}}}
	d.Init()

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "duration")

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "p1", back.ID)
	assert.NotNil(t, back.Terms)
}

func TestEntryPageIDsSorted(t *testing.T) {
	e := Entry{"p2": {Latest: 1}, "p1": {Latest: 2}}
	assert.Equal(t, []string{"p1", "p2"}, e.PageIDs())
}
