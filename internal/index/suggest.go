package index

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/memex-index/internal/keys"
	"github.com/standardbeagle/memex-index/internal/store"
)

const defaultSuggestLimit = 10

// SuggestDomains returns up to limit indexed domains starting with prefix.
func (ix *SearchIndex) SuggestDomains(ctx context.Context, prefix string, limit int) ([]string, error) {
	return ix.suggest(ctx, keys.Domain, strings.ToLower(strings.TrimSpace(prefix)), limit)
}

// SuggestTags returns up to limit tags starting with prefix.
func (ix *SearchIndex) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	return ix.suggest(ctx, keys.Tag, strings.TrimSpace(prefix), limit)
}

// suggest lists prefix matches in key order. When fuzzy suggestions are enabled and
// the prefix scan comes up short, close misspellings fill the remaining slots.
func (ix *SearchIndex) suggest(ctx context.Context, kind keys.Kind, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []string{}
	err := ix.store.View(func(tx *store.Tx) error {
		err := tx.Scan(store.ScanOptions{Kind: kind, Prefix: prefix}, func(key string, _ []byte) (bool, error) {
			out = append(out, keys.Strip(key))
			return len(out) < limit, nil
		})
		if err != nil {
			return err
		}
		if !ix.opts.FuzzySuggest || prefix == "" || len(out) >= limit {
			return nil
		}
		fuzzy, err := ix.fuzzyMatches(tx, kind, prefix, keys.NewSet(out...))
		if err != nil {
			return err
		}
		for _, v := range fuzzy {
			if len(out) >= limit {
				break
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

type scoredValue struct {
	value string
	score float32
}

// fuzzyMatches scans every key of kind and keeps values whose leading runes are
// Jaro-Winkler close to prefix, best first.
func (ix *SearchIndex) fuzzyMatches(tx *store.Tx, kind keys.Kind, prefix string, seen keys.Set) ([]string, error) {
	n := len([]rune(prefix))
	var matches []scoredValue
	err := tx.Scan(store.ScanOptions{Kind: kind}, func(key string, _ []byte) (bool, error) {
		value := keys.Strip(key)
		if seen.Has(value) {
			return true, nil
		}
		head := value
		if r := []rune(value); len(r) > n {
			head = string(r[:n])
		}
		score, err := edlib.StringsSimilarity(strings.ToLower(prefix), strings.ToLower(head), edlib.JaroWinkler)
		if err != nil {
			return false, err
		}
		if score >= ix.opts.FuzzyThreshold {
			matches = append(matches, scoredValue{value: value, score: score})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].value < matches[j].value
	})
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.value)
	}
	return out, nil
}
