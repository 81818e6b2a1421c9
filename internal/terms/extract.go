// Package terms turns raw page text and URLs into normalized term keys.
package terms

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/memex-index/internal/keys"
)

// DefaultSeparator splits free text into candidate terms.
var DefaultSeparator = regexp.MustCompile(`[|' .,\-()\s]+`)

// URLSeparator splits the path and query part of a URL.
var URLSeparator = regexp.MustCompile(`[/?#=&.,_\-+:;%~]+`)

// ExtractTerms splits text on separator (DefaultSeparator when nil), lowercases each
// token and prefixes it with kind. Tokens that reduce to the bare prefix are dropped.
func ExtractTerms(text string, separator *regexp.Regexp, kind keys.Kind) keys.Set {
	if separator == nil {
		separator = DefaultSeparator
	}
	out := make(keys.Set)
	for _, word := range separator.Split(text, -1) {
		key := keys.For(kind, strings.ToLower(word))
		if strings.HasSuffix(key, keys.Separator) {
			continue
		}
		out.Add(key)
	}
	return out
}

// Keys turns already normalized words into a set of keys of one kind.
func Keys(kind keys.Kind, words []string) keys.Set {
	return keys.NewSet(keys.ForAll(kind, words)...)
}
