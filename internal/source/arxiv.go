package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const (
	arxivDefaultBase = "http://export.arxiv.org/api/query"
	arxivCategories  = "cat:cs.AI+OR+cat:cs.LG+OR+cat:stat.ML"
	arxivMaxResults  = 25
	arxivMaxHits     = 12
)

// ArxivAdapter pulls recent AI/ML submissions from the arXiv Atom API.
type ArxivAdapter struct {
	baseURL string
	parser  *gofeed.Parser
}

// NewArxivAdapter creates an arXiv adapter. An empty baseURL selects the
// public export endpoint.
func NewArxivAdapter(baseURL string) *ArxivAdapter {
	if baseURL == "" {
		baseURL = arxivDefaultBase
	}
	return &ArxivAdapter{baseURL: baseURL, parser: gofeed.NewParser()}
}

// Name implements Adapter.
func (a *ArxivAdapter) Name() string { return "arxiv" }

// Fetch returns the newest submissions within the window, newest first as the
// index reports them. Undated entries are dropped.
func (a *ArxivAdapter) Fetch(ctx context.Context, cfg newsletter.SectionConfig, days int) ([]newsletter.Candidate, error) {
	query := fmt.Sprintf("%s?search_query=%s&sortBy=submittedDate&sortOrder=descending&max_results=%d",
		a.baseURL, arxivCategories, arxivMaxResults)

	feed, err := a.parser.ParseURLWithContext(query, ctx)
	if err != nil {
		return nil, fmt.Errorf("arxiv query: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var hits []newsletter.Candidate
	for _, item := range feed.Items {
		if len(hits) >= arxivMaxHits {
			break
		}
		if item.PublishedParsed == nil || item.PublishedParsed.UTC().Before(cutoff) {
			continue
		}
		t := item.PublishedParsed.UTC()

		snippet := truncate(collapseWhitespace(item.Description), 600)

		hits = append(hits, newsletter.Candidate{
			URL:       item.Link,
			Title:     collapseWhitespace(strings.TrimSpace(item.Title)),
			Source:    "arXiv",
			Published: &t,
			Snippet:   snippet,
		})
	}
	return hits, nil
}
