package terms

import (
	"regexp"
	"strings"
)

var (
	protocolPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	// domain.tld or domain.sld.cc, optionally preceded by subdomains.
	domainPattern = regexp.MustCompile(`^(?:[\w-]+\.)*?([\w-]+\.(?:[a-z]{2,3}\.[a-z]{2}|[a-z]{2,}))$`)
)

// URLParts is a URL split into the pieces the index keys on.
type URLParts struct {
	Domain    string
	Hostname  string
	Remainder string
}

// NormalizeURL strips the protocol and a leading "www." and lowercases the host.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = protocolPattern.ReplaceAllString(u, "")
	u = strings.TrimPrefix(u, "www.")
	host, rest := splitHost(u)
	return strings.ToLower(host) + rest
}

// DecomposeURL splits a URL into its registrable domain, hostname and the remainder
// after the first path separator. When no domain pattern is recognized it returns
// the whole normalized URL as both domain and remainder and reports false.
func DecomposeURL(raw string) (URLParts, bool) {
	normalized := NormalizeURL(raw)
	host, rest := splitHost(normalized)

	hostname := host
	if i := strings.LastIndex(hostname, "@"); i >= 0 {
		hostname = hostname[i+1:]
	}
	if i := strings.LastIndex(hostname, ":"); i >= 0 {
		hostname = hostname[:i]
	}

	m := domainPattern.FindStringSubmatch(hostname)
	if m == nil {
		return URLParts{Domain: normalized, Hostname: hostname, Remainder: normalized}, false
	}
	return URLParts{
		Domain:    m[1],
		Hostname:  hostname,
		Remainder: strings.TrimPrefix(rest, "/"),
	}, true
}

// splitHost cuts u at the first path, query or fragment separator.
func splitHost(u string) (host, rest string) {
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		return u[:i], u[i:]
	}
	return u, ""
}
