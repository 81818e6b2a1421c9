package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t)

	doc := &model.Document{ID: "http://a.com/x", Domain: "domain/a.com", Terms: keys.NewSet("term/hello")}
	doc.Init()
	require.NoError(t, s.Update(func(tx *Tx) error { return tx.PutDocument(doc) }))

	require.NoError(t, s.View(func(tx *Tx) error {
		got, err := tx.Document("http://a.com/x")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, doc.Terms, got.Terms)
		assert.NotNil(t, got.Tags)

		missing, err := tx.Document("nope")
		assert.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	}))
}

func TestPutEntryDeletesEmpty(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Update(func(tx *Tx) error {
		return tx.PutEntry("term/hello", model.Entry{"p1": {Latest: 1}})
	}))
	require.NoError(t, s.Update(func(tx *Tx) error {
		return tx.PutEntry("term/hello", model.Entry{})
	}))
	require.NoError(t, s.View(func(tx *Tx) error {
		e, err := tx.Entry("term/hello")
		assert.NoError(t, err)
		assert.Nil(t, e)
		return nil
	}))
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	boom := errors.New("boom")

	err := s.Update(func(tx *Tx) error {
		if err := tx.PutEntry("term/a", model.Entry{"p1": {Latest: 1}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(func(tx *Tx) error {
		e, err := tx.Entry("term/a")
		assert.NoError(t, err)
		assert.Nil(t, e, "write before the failure must be rolled back")
		return nil
	}))
}

func TestUnknownKindRejected(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(func(tx *Tx) error { return tx.Put("bogus/x", []byte("1")) })
	assert.Error(t, err)
}

func TestKindsAreSeparateBuckets(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, k := range []string{"tag/reading", "tag/recipes", "tag/zen", "term/reading", "domain/reading.com"} {
			if err := tx.PutEntry(k, model.Entry{"p1": {}}); err != nil {
				return err
			}
		}
		return nil
	}))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats[keys.Tag])
	assert.Equal(t, 1, stats[keys.Term])
	assert.Equal(t, 0, stats[keys.Page])
}

func collect(t *testing.T, s *Store, opts ScanOptions, limit int) []string {
	t.Helper()
	var out []string
	require.NoError(t, s.View(func(tx *Tx) error {
		return tx.Scan(opts, func(key string, _ []byte) (bool, error) {
			out = append(out, key)
			return limit == 0 || len(out) < limit, nil
		})
	}))
	return out
}

func TestScan(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, k := range []string{"tag/read", "tag/reading", "tag/recipes", "tag/zen"} {
			if err := tx.PutEntry(k, model.Entry{"p1": {}}); err != nil {
				return err
			}
		}
		return nil
	}))

	assert.Equal(t, []string{"tag/read", "tag/reading"}, collect(t, s, ScanOptions{Kind: keys.Tag, Prefix: "read"}, 0))
	assert.Equal(t, []string{"tag/reading", "tag/read"}, collect(t, s, ScanOptions{Kind: keys.Tag, Prefix: "read", Reverse: true}, 0))
	assert.Equal(t, []string{"tag/zen", "tag/recipes"}, collect(t, s, ScanOptions{Kind: keys.Tag, Reverse: true}, 2))
	assert.Equal(t, []string{"tag/recipes", "tag/zen"}, collect(t, s, ScanOptions{Kind: keys.Tag, Start: "tag/recipes"}, 0))
	assert.Empty(t, collect(t, s, ScanOptions{Kind: keys.Tag, Prefix: "x"}, 0))
}

func TestScanReverseFromStart(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, ms := range []int64{10, 20, 30, 40} {
			if err := tx.PutEntry(keys.Timestamp(keys.Visit, ms), model.Entry{"p1": {Latest: ms}}); err != nil {
				return err
			}
		}
		return nil
	}))

	got := collect(t, s, ScanOptions{Kind: keys.Visit, Reverse: true, Start: keys.Timestamp(keys.Visit, 29)}, 0)
	assert.Equal(t, []string{keys.Timestamp(keys.Visit, 20), keys.Timestamp(keys.Visit, 10)}, got)
}

func TestClearEmptiesOneKind(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Update(func(tx *Tx) error {
		if err := tx.PutEntry("term/a", model.Entry{"p1": {Latest: 1}}); err != nil {
			return err
		}
		return tx.PutEntry("tag/x", model.Entry{"p1": {Latest: 1}})
	}))

	require.NoError(t, s.Update(func(tx *Tx) error { return tx.Clear(keys.Term) }))

	counts, err := s.Stats()
	require.NoError(t, err)
	assert.Zero(t, counts[keys.Term])
	assert.Equal(t, 1, counts[keys.Tag])

	require.NoError(t, s.Update(func(tx *Tx) error {
		return tx.PutEntry("term/b", model.Entry{"p2": {Latest: 2}})
	}), "the cleared kind accepts new keys")
}
