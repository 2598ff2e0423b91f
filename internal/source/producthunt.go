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
	phDefaultFeed = "https://www.producthunt.com/feeds/topic/artificial-intelligence"
	phMaxHits     = 10
)

// ProductHuntAdapter pulls trending AI launches from the Product Hunt
// artificial-intelligence topic feed.
type ProductHuntAdapter struct {
	feedURL string
	limit   int
	parser  *gofeed.Parser
}

// NewProductHuntAdapter creates a Product Hunt adapter. An empty feedURL
// selects the public topic feed.
func NewProductHuntAdapter(feedURL string, limit int) *ProductHuntAdapter {
	if feedURL == "" {
		feedURL = phDefaultFeed
	}
	if limit <= 0 {
		limit = phMaxHits
	}
	p := gofeed.NewParser()
	p.UserAgent = "ai-newsletter/1.0 (briefing collector)"
	return &ProductHuntAdapter{feedURL: feedURL, limit: limit, parser: p}
}

// Name implements Adapter.
func (a *ProductHuntAdapter) Name() string { return "producthunt" }

// Fetch returns launches within the window, in feed order. Entries without a
// date are dropped; the topic feed keeps evergreen products around and those
// would go stale in a dated briefing.
func (a *ProductHuntAdapter) Fetch(ctx context.Context, cfg newsletter.SectionConfig, days int) ([]newsletter.Candidate, error) {
	feed, err := a.parser.ParseURLWithContext(a.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("producthunt feed: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var hits []newsletter.Candidate
	for _, item := range feed.Items {
		if len(hits) >= a.limit {
			break
		}
		pub := item.PublishedParsed
		if pub == nil {
			pub = item.UpdatedParsed
		}
		if pub == nil || pub.UTC().Before(cutoff) {
			continue
		}
		if item.Link == "" || item.Title == "" || Blocked(item.Link) {
			continue
		}
		t := pub.UTC()
		hits = append(hits, newsletter.Candidate{
			URL:       item.Link,
			Title:     collapseWhitespace(strings.TrimSpace(item.Title)),
			Source:    "Product Hunt",
			Published: &t,
			Snippet:   "Product Hunt AI launch",
		})
	}
	return hits, nil
}
