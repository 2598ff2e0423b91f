// Package source contains the adapters that pull raw candidates from external
// providers. Every adapter normalizes its provider's response shape into
// newsletter.Candidate at the boundary; downstream stages never see
// provider-specific data.
package source

import (
	"context"
	"strings"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

// Adapter fetches candidates for one section. Implementations must honor the
// context and return partial results with an error only when nothing usable
// was fetched.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, cfg newsletter.SectionConfig, days int) ([]newsletter.Candidate, error)
}

// Registry maps adapter names to adapters.
type Registry map[string]Adapter

// Register adds an adapter under its own name.
func (r Registry) Register(a Adapter) {
	r[a.Name()] = a
}

// blockedDomains lists evergreen / non-news hosts that pollute results.
var blockedDomains = []string{
	"en.wikipedia.org",
	"wikipedia.org",
	"investopedia.com",
	"techopedia.com",
	"builtin.com",
	"coursera.org",
	"udemy.com",
	"medium.com",
	"quora.com",
}

var blockedPathPatterns = []string{
	"/wiki/",
	"/about",
	"/contact",
	"/careers",
	"/privacy",
	"/terms",
}

// Blocked reports whether a URL belongs to a blocked domain or matches a
// blocked path pattern.
func Blocked(rawURL string) bool {
	host, path := splitHostPath(rawURL)
	for _, b := range blockedDomains {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	for _, p := range blockedPathPatterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func splitHostPath(rawURL string) (host, path string) {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "/"); i >= 0 {
		return strings.ToLower(s[:i]), strings.ToLower(s[i:])
	}
	return strings.ToLower(s), ""
}

// filterBlocked drops candidates from blocked domains, preserving order.
func filterBlocked(hits []newsletter.Candidate) []newsletter.Candidate {
	kept := hits[:0:0]
	for _, h := range hits {
		if !Blocked(h.URL) {
			kept = append(kept, h)
		}
	}
	return kept
}
