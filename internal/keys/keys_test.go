package keys

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForAndStrip(t *testing.T) {
	tests := []struct {
		kind  Kind
		value string
		key   string
	}{
		{Domain, "example.com", "domain/example.com"},
		{Tag, "reading list", "tag/reading list"},
		{URL, "docs", "url/docs"},
		{Term, "hello", "term/hello"},
		{Title, "hello", "title/hello"},
		{Visit, "000001500000000", "visit/000001500000000"},
		{Bookmark, "x", "bookmark/x"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, For(tt.kind, tt.value))
			assert.Equal(t, tt.value, Strip(tt.key))
			kind, ok := KindOf(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestStripUnknownPrefix(t *testing.T) {
	assert.Equal(t, "http://a.com/x", Strip("http://a.com/x"))
	assert.Equal(t, "nope/value", Strip("nope/value"))

	_, ok := KindOf("nope/value")
	assert.False(t, ok)
}

func TestStripKeepsSlashesInValue(t *testing.T) {
	key := For(Page, "http://a.com/x/y")
	assert.Equal(t, "http://a.com/x/y", Strip(key))
}

func TestTimestampKeysSortNumerically(t *testing.T) {
	stamps := []int64{1500000000000, 99, 1000, 1499999999999}
	var keys []string
	for _, ms := range stamps {
		keys = append(keys, Timestamp(Visit, ms))
	}
	sort.Strings(keys)

	var got []int64
	for _, k := range keys {
		ms, err := ParseTimestamp(k)
		require.NoError(t, err)
		got = append(got, ms)
	}
	assert.Equal(t, []int64{99, 1000, 1499999999999, 1500000000000}, got)
}

func TestParseTimestampRejectsOtherKinds(t *testing.T) {
	_, err := ParseTimestamp("term/123")
	assert.Error(t, err)

	_, err = ParseTimestamp("visit/abc")
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	gte, lte := Range(Tag, "re")
	assert.Equal(t, "tag/re", gte)
	assert.True(t, "tag/reading" > gte && "tag/reading" < lte)
	assert.False(t, "tag/rf" < lte)
	assert.False(t, "term/re" >= gte && "term/re" <= lte)
}

func TestSetJSONIsSortedArray(t *testing.T) {
	s := NewSet("term/b", "term/a", "term/c")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["term/a","term/b","term/c"]`, string(data))

	var back Set
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestSetAddAllReportsNewMembers(t *testing.T) {
	s := NewSet("visit/1")
	added := s.AddAll(NewSet("visit/1", "visit/2"))

	assert.Equal(t, []string{"visit/2"}, added)
	assert.Len(t, s, 2)
	assert.Nil(t, s.AddAll(NewSet("visit/2")))
}

func TestSetDiff(t *testing.T) {
	a := NewSet("tag/x", "tag/y")
	b := NewSet("tag/y", "tag/z")
	assert.Equal(t, []string{"tag/x"}, a.Diff(b))
	assert.Equal(t, []string{"tag/z"}, b.Diff(a))
}
