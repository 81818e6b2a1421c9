package keys

import (
	"encoding/json"
	"sort"
)

// Set is an unordered set of keys. It serializes as a sorted JSON array, which
// keeps stored documents and dumps stable across runs.
type Set map[string]struct{}

// NewSet builds a set from members.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s Set) Add(key string) {
	s[key] = struct{}{}
}

func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s Set) Remove(key string) {
	delete(s, key)
}

// AddAll unions other into s and returns the keys that were not present before.
func (s Set) AddAll(other Set) []string {
	var added []string
	for k := range other {
		if _, ok := s[k]; !ok {
			s[k] = struct{}{}
			added = append(added, k)
		}
	}
	sort.Strings(added)
	return added
}

// Diff returns the sorted members of s missing from other.
func (s Set) Diff(other Set) []string {
	var out []string
	for k := range s {
		if !other.Has(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy. A nil set clones to an empty one.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*s = NewSet(members...)
	return nil
}
