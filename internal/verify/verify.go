// Package verify checks candidate reachability and paywall status. It does at
// most one network fetch per candidate and keeps the fetched HTML on the
// surviving item so extraction can reuse it.
package verify

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

// paywallPhrases are textual markers that reliably indicate access-restricted
// content. Matching is case-insensitive over the first paywallSampleLen bytes.
var paywallPhrases = []string{
	"subscribe to read",
	"subscribe to continue",
	"log in to continue",
	"create a free account to read",
	"isaccessibleforfree\":false",
	"paywall",
	"subscriber-only",
	"subscription required",
	"already a subscriber",
}

const (
	paywallSampleLen = 100_000
	maxBodyBytes     = 2 << 20
	// Unreachable candidates with a snippet at least this long survive on
	// the snippet alone; syndicated feeds often summarize well enough.
	minSnippetFallback = 80
)

// Verifier performs per-candidate reachability and paywall checks.
type Verifier struct {
	client      *http.Client
	concurrency int
}

// New creates a verifier. Zero values select a 10s timeout and a concurrency
// limit of 10.
func New(timeout time.Duration, concurrency int) *Verifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Verifier{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		concurrency: concurrency,
	}
}

// Verify checks every candidate concurrently (bounded) and returns the
// survivors in input order. Unreachable and paywalled items are dropped and
// logged; dropping is expected and frequent, so it is not a warning.
func (v *Verifier) Verify(ctx context.Context, candidates []newsletter.Candidate) []newsletter.Verified {
	results := make([]*newsletter.Verified, len(candidates))
	sem := make(chan struct{}, v.concurrency)
	done := make(chan int, len(candidates))

	for i, c := range candidates {
		go func(i int, c newsletter.Candidate) {
			sem <- struct{}{}
			defer func() { <-sem; done <- i }()
			results[i] = v.verifyOne(ctx, c)
		}(i, c)
	}
	for range candidates {
		<-done
	}

	kept := make([]newsletter.Verified, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			kept = append(kept, *r)
		}
	}
	log.Printf("verified %d/%d candidates", len(kept), len(candidates))
	return kept
}

// verifyOne returns nil when the item must be dropped.
func (v *Verifier) verifyOne(ctx context.Context, c newsletter.Candidate) *newsletter.Verified {
	html, reachable := v.fetch(ctx, c.URL)

	if !reachable {
		if len(c.Snippet) >= minSnippetFallback {
			log.Printf("unreachable, keeping snippet: %s", c.URL)
			return &newsletter.Verified{Candidate: c, Reachable: false}
		}
		log.Printf("dropped unreachable: %s", c.URL)
		return nil
	}

	if isPaywalled(html) {
		log.Printf("dropped paywalled: %s", c.URL)
		return nil
	}

	return &newsletter.Verified{Candidate: c, Reachable: true, HTML: html}
}

// fetch GETs the URL and returns the HTML body. Any non-2xx status, network
// error, or non-HTML content type counts as unreachable.
func (v *Verifier) fetch(ctx context.Context, url string) (html string, reachable bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "ai-newsletter/1.0 (briefing collector)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", false
	}
	return string(body), true
}

// isPaywalled reports whether the page carries either paywall signal: a known
// phrase marker in the markup, or JSON-LD metadata declaring the content
// access-restricted.
func isPaywalled(html string) bool {
	sample := html
	if len(sample) > paywallSampleLen {
		sample = sample[:paywallSampleLen]
	}
	haystack := strings.ToLower(sample)
	for _, phrase := range paywallPhrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return jsonLDRestricted(sample)
}

// jsonLDRestricted checks embedded JSON-LD blocks for isAccessibleForFree=false.
func jsonLDRestricted(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	restricted := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		if strings.Contains(text, "isaccessibleforfree") &&
			(strings.Contains(text, `"isaccessibleforfree": false`) ||
				strings.Contains(text, `"isaccessibleforfree":false`)) {
			restricted = true
			return false
		}
		return true
	})
	return restricted
}
