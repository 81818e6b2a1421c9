package terms

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/segment"
	"github.com/microcosm-cc/bluemonday"
)

// CleanerOptions configures the content cleaning transform.
type CleanerOptions struct {
	Stemming      bool
	Stopwords     bool
	MinTermLength int
}

// DefaultCleanerOptions matches the defaults of the config package.
func DefaultCleanerOptions() CleanerOptions {
	return CleanerOptions{Stemming: true, Stopwords: true, MinTermLength: 2}
}

// Cleaner discards markup and low-value tokens from page text. The same
// normalization is applied to query terms so both sides meet on one term key.
type Cleaner struct {
	policy    *bluemonday.Policy
	stemmer   *Stemmer
	stopwords bool
	minLength int
}

func NewCleaner(opts CleanerOptions) *Cleaner {
	return &Cleaner{
		policy:    bluemonday.StrictPolicy(),
		stemmer:   NewStemmer(opts.Stemming, 3, nil),
		stopwords: opts.Stopwords,
		minLength: opts.MinTermLength,
	}
}

func (c *Cleaner) strip(text string) string {
	return html.UnescapeString(c.policy.Sanitize(text))
}

// Words returns the normalized words of text in document order, duplicates kept.
// Word boundaries come from Unicode text segmentation.
func (c *Cleaner) Words(text string) []string {
	var words []string
	seg := segment.NewWordSegmenterDirect([]byte(c.strip(text)))
	for seg.Segment() {
		var w string
		switch seg.Type() {
		case segment.Letter:
			w = c.Normalize(seg.Text())
		case segment.Ideo, segment.Kana:
			// a single ideograph is already a word and has no stem
			w = strings.TrimSpace(seg.Text())
		default:
			// numbers and punctuation carry no search value on their own
			continue
		}
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Tokens returns the normalized tokens of text. A nil separator leaves the word
// boundaries to Words; otherwise the markup-free text is split on separator and
// every token is normalized whole.
func (c *Cleaner) Tokens(text string, separator *regexp.Regexp) []string {
	if separator == nil {
		return c.Words(text)
	}
	var words []string
	for _, tok := range separator.Split(c.strip(text), -1) {
		if w := c.Normalize(tok); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Normalize trims punctuation from the ends of a word, then lowercases and stems
// it. It returns "" for words the cleaner drops.
func (c *Cleaner) Normalize(word string) string {
	w := strings.ToLower(strings.TrimFunc(word, notWordRune))
	if utf8.RuneCountInString(w) < c.minLength {
		return ""
	}
	if c.stopwords && IsStopword(w) {
		return ""
	}
	return c.stemmer.Stem(w)
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
