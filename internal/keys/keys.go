// Package keys owns the key-space convention of the index. Every stored key is
// "<kind>/<value>"; keys of one kind sort lexicographically, so prefix scans over
// a kind answer "starts with" queries.
package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind names a logical table of the index.
type Kind string

const (
	Page     Kind = "page"
	Domain   Kind = "domain"
	Hostname Kind = "hostname"
	Tag      Kind = "tag"
	List     Kind = "list"
	URL      Kind = "url"
	Term     Kind = "term"
	Title    Kind = "title"
	Visit    Kind = "visit"
	Bookmark Kind = "bookmark"
)

// Separator joins a kind and its value.
const Separator = "/"

// rangeEnd is appended to a prefix to form the inclusive upper bound of a scan.
const rangeEnd = "\uffff"

// timestampWidth keeps numeric and lexical order of timestamp keys equal.
const timestampWidth = 15

// Derived lists every kind whose entries map page ids to postings.
var Derived = []Kind{Domain, Hostname, Tag, List, URL, Term, Title, Visit, Bookmark}

// All lists every kind, reverse-index documents first.
var All = append([]Kind{Page}, Derived...)

var known = func() map[Kind]struct{} {
	m := make(map[Kind]struct{}, len(All))
	for _, k := range All {
		m[k] = struct{}{}
	}
	return m
}()

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := known[k]
	return ok
}

// IsTimestamp reports whether keys of this kind carry a millisecond timestamp.
func (k Kind) IsTimestamp() bool {
	return k == Visit || k == Bookmark
}

// For builds the key for value in the given kind.
func For(kind Kind, value string) string {
	return string(kind) + Separator + value
}

// ForAll maps values to keys of one kind.
func ForAll(kind Kind, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, For(kind, v))
	}
	return out
}

// Timestamp builds a visit or bookmark key for a millisecond timestamp.
func Timestamp(kind Kind, ms int64) string {
	return For(kind, fmt.Sprintf("%0*d", timestampWidth, ms))
}

// KindOf returns the recognized kind prefix of key.
func KindOf(key string) (Kind, bool) {
	i := strings.Index(key, Separator)
	if i <= 0 {
		return "", false
	}
	k := Kind(key[:i])
	if !k.Valid() {
		return "", false
	}
	return k, true
}

// Strip removes a recognized kind prefix. Keys without one are returned as is.
func Strip(key string) string {
	if k, ok := KindOf(key); ok {
		return key[len(k)+len(Separator):]
	}
	return key
}

// ParseTimestamp returns the milliseconds encoded in a visit or bookmark key.
func ParseTimestamp(key string) (int64, error) {
	k, ok := KindOf(key)
	if !ok || !k.IsTimestamp() {
		return 0, fmt.Errorf("not a timestamp key: %q", key)
	}
	ms, err := strconv.ParseInt(Strip(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp key %q: %w", key, err)
	}
	return ms, nil
}

// Range returns the inclusive bounds of every key of kind starting with prefix.
func Range(kind Kind, prefix string) (gte, lte string) {
	gte = For(kind, prefix)
	return gte, gte + rangeEnd
}
