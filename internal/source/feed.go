package source

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const maxPerFeed = 20

// FeedAdapter pulls candidates from the RSS/Atom feeds listed in a section's
// configuration (curated publisher feeds, search-alert feeds).
type FeedAdapter struct {
	parser *gofeed.Parser
}

// NewFeedAdapter creates a feed adapter.
func NewFeedAdapter() *FeedAdapter {
	p := gofeed.NewParser()
	p.UserAgent = "ai-newsletter/1.0 (briefing collector)"
	return &FeedAdapter{parser: p}
}

// Name implements Adapter.
func (a *FeedAdapter) Name() string { return "feeds" }

// Fetch parses every configured feed and returns entries within the window.
// A single unreachable feed is logged and skipped, not an error; the adapter
// fails only when every feed fails.
func (a *FeedAdapter) Fetch(ctx context.Context, cfg newsletter.SectionConfig, days int) ([]newsletter.Candidate, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var hits []newsletter.Candidate
	var lastErr error
	failures := 0

	for _, feedURL := range cfg.Feeds {
		feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			log.Printf("feed %s: %v", feedURL, err)
			failures++
			lastErr = err
			continue
		}

		name := feed.Title
		if name == "" {
			name = sourceNameFromURL(feedURL)
		}

		count := 0
		for _, item := range feed.Items {
			if count >= maxPerFeed {
				break
			}
			c, ok := feedCandidate(item, name, cutoff)
			if !ok {
				continue
			}
			hits = append(hits, c)
			count++
		}
	}

	if len(cfg.Feeds) > 0 && failures == len(cfg.Feeds) {
		return nil, lastErr
	}
	return filterBlocked(hits), nil
}

// feedCandidate normalizes one feed entry. Entries without a date are dropped
// to keep stale evergreen posts out of a dated briefing.
func feedCandidate(item *gofeed.Item, sourceName string, cutoff time.Time) (newsletter.Candidate, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return newsletter.Candidate{}, false
	}

	pub := item.PublishedParsed
	if pub == nil {
		pub = item.UpdatedParsed
	}
	if pub == nil || pub.UTC().Before(cutoff) {
		return newsletter.Candidate{}, false
	}
	t := pub.UTC()

	snippet := item.Description
	if snippet == "" {
		snippet = item.Content
	}
	snippet = truncate(collapseWhitespace(stripTags(snippet)), 500)

	return newsletter.Candidate{
		URL:       link,
		Title:     title,
		Source:    sourceName,
		Published: &t,
		Snippet:   snippet,
	}, true
}

func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		host = parts[len(parts)-2]
	}
	if host == "" {
		return feedURL
	}
	return strings.ToUpper(host[:1]) + host[1:]
}

func stripTags(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	s := b.String()
	for entity, repl := range map[string]string{
		"&nbsp;": " ", "&amp;": "&", "&lt;": "<",
		"&gt;": ">", "&quot;": `"`, "&#39;": "'",
	} {
		s = strings.ReplaceAll(s, entity, repl)
	}
	return s
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
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
