package terms

import (
	"strings"

	"github.com/surgebase/porter2"
)

// Stemmer reduces words to their porter2 stem so "indexing" and "indexed" share a term.
type Stemmer struct {
	enabled    bool
	minLength  int
	exclusions map[string]bool
}

// NewStemmer creates a stemmer. Words shorter than minLength or listed in
// exclusions are left untouched.
func NewStemmer(enabled bool, minLength int, exclusions map[string]bool) *Stemmer {
	if minLength < 0 {
		minLength = 3
	}
	if exclusions == nil {
		exclusions = make(map[string]bool)
	}
	return &Stemmer{
		enabled:    enabled,
		minLength:  minLength,
		exclusions: exclusions,
	}
}

// Stem returns the stem of word, or word itself when stemming does not apply.
func (s *Stemmer) Stem(word string) string {
	if !s.enabled {
		return word
	}
	if s.exclusions[strings.ToLower(word)] {
		return word
	}
	if len(word) < s.minLength {
		return word
	}
	return porter2.Stem(word)
}
