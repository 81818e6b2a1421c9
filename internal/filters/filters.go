// Package filters resolves tag, domain and list filters into URL allow and deny sets.
package filters

import (
	"context"
	"strings"

	"github.com/standardbeagle/memex-index/internal/debug"
	"github.com/standardbeagle/memex-index/internal/keys"
)

// Params selects pages by tag, domain and list. A nil slice leaves that filter
// undefined; an empty non-nil slice defines a filter that matches nothing.
type Params struct {
	Tags           []string `json:"tags,omitempty"`
	Domains        []string `json:"domains,omitempty"`
	DomainsExclude []string `json:"domainsExclude,omitempty"`
	Lists          []string `json:"lists,omitempty"`
}

// IsEmpty reports whether no filter is defined.
func (p Params) IsEmpty() bool {
	return p.Tags == nil && p.Domains == nil && p.DomainsExclude == nil && p.Lists == nil
}

// Source looks up the pages behind derived keys. *index.SearchIndex satisfies it.
type Source interface {
	PageIDs(ctx context.Context, kind keys.Kind, values []string) (keys.Set, error)
	PageURLs(ctx context.Context, pageIDs []string) (map[string]string, error)
}

// Manager answers whether a URL passes the resolved filters.
type Manager struct {
	include  keys.Set
	exclude  keys.Set
	filtered bool
}

// NewManager combines independently resolved URL sets. A nil set is an undefined
// filter. Defined inclusion sets are intersected, then the excluded URLs removed.
func NewManager(domains, excludeDomains, tags, lists keys.Set) *Manager {
	m := &Manager{exclude: excludeDomains}
	if m.exclude == nil {
		m.exclude = make(keys.Set)
	}

	for _, set := range []keys.Set{domains, tags, lists} {
		if set == nil {
			continue
		}
		if !m.filtered {
			m.include = set.Clone()
			m.filtered = true
			continue
		}
		for url := range m.include {
			if !set.Has(url) {
				m.include.Remove(url)
			}
		}
	}
	if m.include == nil {
		m.include = make(keys.Set)
	}
	for url := range m.exclude {
		m.include.Remove(url)
	}
	return m
}

// IsAllowed is true when url passes every inclusion filter and is not excluded.
func (m *Manager) IsAllowed(url string) bool {
	return (!m.filtered || m.include.Has(url)) && !m.exclude.Has(url)
}

// IsDataFiltered reports whether any inclusion filter is defined.
func (m *Manager) IsDataFiltered() bool {
	return m.filtered
}

// Include returns the allowed URLs, sorted.
func (m *Manager) Include() []string {
	return m.include.Sorted()
}

// Exclude returns the denied URLs, sorted.
func (m *Manager) Exclude() []string {
	return m.exclude.Sorted()
}

// FindFilteredURLs resolves params against src. Domain filters match a page's
// registrable domain or its hostname.
func FindFilteredURLs(ctx context.Context, src Source, params Params) (*Manager, error) {
	var domains, excluded, tags, lists keys.Set
	var err error

	if params.Domains != nil {
		if domains, err = domainURLs(ctx, src, params.Domains); err != nil {
			return nil, err
		}
	}
	if params.DomainsExclude != nil {
		if excluded, err = domainURLs(ctx, src, params.DomainsExclude); err != nil {
			return nil, err
		}
	}
	if params.Tags != nil {
		if tags, err = kindURLs(ctx, src, keys.Tag, params.Tags); err != nil {
			return nil, err
		}
	}
	if params.Lists != nil {
		if lists, err = kindURLs(ctx, src, keys.List, params.Lists); err != nil {
			return nil, err
		}
	}

	m := NewManager(domains, excluded, tags, lists)
	debug.LogSearch("filters %+v resolved to %d included, %d excluded urls\n", params, len(m.include), len(m.exclude))
	return m, nil
}

func domainURLs(ctx context.Context, src Source, domains []string) (keys.Set, error) {
	lowered := make([]string, 0, len(domains))
	for _, d := range domains {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(d)))
	}
	domains = lowered

	byDomain, err := kindURLs(ctx, src, keys.Domain, domains)
	if err != nil {
		return nil, err
	}
	byHost, err := kindURLs(ctx, src, keys.Hostname, domains)
	if err != nil {
		return nil, err
	}
	byDomain.AddAll(byHost)
	return byDomain, nil
}

func kindURLs(ctx context.Context, src Source, kind keys.Kind, values []string) (keys.Set, error) {
	ids, err := src.PageIDs(ctx, kind, values)
	if err != nil {
		return nil, err
	}
	urls, err := src.PageURLs(ctx, ids.Sorted())
	if err != nil {
		return nil, err
	}
	out := make(keys.Set, len(urls))
	for _, u := range urls {
		out.Add(u)
	}
	return out, nil
}
