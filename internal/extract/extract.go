// Package extract reduces verified pages to readable plain text for
// summarization. Extraction is independent per item: one failure degrades
// that item to an empty body and never blocks its siblings.
package extract

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const (
	// DefaultMaxTextLen bounds extracted text so a single long page cannot
	// crowd out the rest of the batch. Longer pages are truncated, not failed.
	DefaultMaxTextLen = 20_000

	minReadableLen = 100
	maxBodyBytes   = 2 << 20
)

// Extractor fetches and cleans article bodies.
type Extractor struct {
	client      *http.Client
	maxTextLen  int
	concurrency int
}

// New creates an extractor. Zero values select a 15s timeout, the default
// text bound, and a concurrency limit of 10.
func New(timeout time.Duration, maxTextLen, concurrency int) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxTextLen <= 0 {
		maxTextLen = DefaultMaxTextLen
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Extractor{
		client:      &http.Client{Timeout: timeout},
		maxTextLen:  maxTextLen,
		concurrency: concurrency,
	}
}

// Extract processes every item concurrently (bounded) and returns one
// Extracted per input in input order.
func (e *Extractor) Extract(ctx context.Context, items []newsletter.Verified) []newsletter.Extracted {
	out := make([]newsletter.Extracted, len(items))
	sem := make(chan struct{}, e.concurrency)
	done := make(chan int, len(items))

	for i, item := range items {
		go func(i int, item newsletter.Verified) {
			sem <- struct{}{}
			defer func() { <-sem; done <- i }()
			out[i] = e.extractOne(ctx, item)
		}(i, item)
	}
	for range items {
		<-done
	}

	failed := 0
	for _, x := range out {
		if x.Failed {
			failed++
		}
	}
	log.Printf("extracted %d items (%d degraded)", len(out), failed)
	return out
}

func (e *Extractor) extractOne(ctx context.Context, item newsletter.Verified) newsletter.Extracted {
	html := item.HTML
	if html == "" && item.Reachable {
		html = e.fetch(ctx, item.URL)
	}

	if html == "" {
		// No page to parse; a rich snippet still makes the item
		// summarizable, otherwise it degrades to an empty body.
		if item.Snippet != "" {
			return newsletter.Extracted{Verified: item, Body: item.Snippet}
		}
		return newsletter.Extracted{Verified: item, Failed: true}
	}

	text := e.readableText(html, item.URL)
	if text == "" {
		if item.Snippet != "" {
			log.Printf("extraction fell back to snippet: %s", item.URL)
			return newsletter.Extracted{Verified: item, Body: item.Snippet}
		}
		log.Printf("no extractable content: %s", item.URL)
		return newsletter.Extracted{Verified: item, Failed: true}
	}
	return newsletter.Extracted{Verified: item, Body: text}
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "ai-newsletter/1.0 (briefing collector)")

	resp, err := e.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ""
	}
	return string(body)
}

// readableText strips boilerplate and bounds the result. Returns "" when the
// page yields nothing worth summarizing.
func (e *Extractor) readableText(html, rawURL string) string {
	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minReadableLen {
		return ""
	}
	return truncate(text, e.maxTextLen)
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
