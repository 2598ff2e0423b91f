package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const hnDefaultBase = "https://hacker-news.firebaseio.com/v0"

// aiKeywords gates Hacker News stories on topical fit before any model sees
// them; the front page is mostly off-topic for an AI briefing.
var aiKeywords = []string{
	"ai", "artificial", "llm", "model", "gpt",
	"transformer", "openai", "anthropic", "gemini",
}

// HNAdapter pulls trending AI stories from the Hacker News API.
type HNAdapter struct {
	baseURL string
	limit   int
	client  *http.Client
}

// NewHNAdapter creates a Hacker News adapter. An empty baseURL selects the
// public Firebase endpoint.
func NewHNAdapter(baseURL string, limit int) *HNAdapter {
	if baseURL == "" {
		baseURL = hnDefaultBase
	}
	if limit <= 0 {
		limit = 20
	}
	return &HNAdapter{
		baseURL: baseURL,
		limit:   limit,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Adapter.
func (a *HNAdapter) Name() string { return "hackernews" }

// Fetch returns AI-related stories from the top and best story lists,
// newest-window only, top list first.
func (a *HNAdapter) Fetch(ctx context.Context, cfg newsletter.SectionConfig, days int) ([]newsletter.Candidate, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Unix()

	topIDs, err := a.storyIDs(ctx, "topstories", a.limit*2)
	if err != nil {
		return nil, err
	}
	bestIDs, bestErr := a.storyIDs(ctx, "beststories", a.limit)
	if bestErr != nil {
		bestIDs = nil // top list alone is enough
	}

	seen := make(map[int64]struct{}, len(topIDs)+len(bestIDs))
	var ids []int64
	for _, id := range append(topIDs, bestIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var hits []newsletter.Candidate
	for _, id := range ids {
		if len(hits) >= a.limit {
			break
		}
		item, err := a.item(ctx, id)
		if err != nil {
			continue
		}
		if item.Title == "" || !matchesAIKeywords(item.Title) {
			continue
		}
		if item.Time < cutoff {
			continue
		}
		link := item.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", id)
		}
		if Blocked(link) {
			continue
		}
		t := time.Unix(item.Time, 0).UTC()
		hits = append(hits, newsletter.Candidate{
			URL:       link,
			Title:     item.Title,
			Source:    "Hacker News",
			Published: &t,
			Snippet:   "Hacker News trending",
		})
	}
	return hits, nil
}

type hnItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Time  int64  `json:"time"`
}

func (a *HNAdapter) storyIDs(ctx context.Context, list string, limit int) ([]int64, error) {
	var ids []int64
	if err := a.getJSON(ctx, fmt.Sprintf("%s/%s.json", a.baseURL, list), &ids); err != nil {
		return nil, fmt.Errorf("hackernews %s: %w", list, err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (a *HNAdapter) item(ctx context.Context, id int64) (*hnItem, error) {
	var item hnItem
	if err := a.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", a.baseURL, id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (a *HNAdapter) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func matchesAIKeywords(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range aiKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
