package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

// SearchAdapter queries a web search provider (Tavily-compatible API) for a
// section's configured query within a recency window.
type SearchAdapter struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
}

// NewSearchAdapter creates a search adapter. An empty baseURL selects the
// default provider endpoint.
func NewSearchAdapter(apiKey, baseURL string, maxResults int) *SearchAdapter {
	if baseURL == "" {
		baseURL = "https://api.tavily.com/search"
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	return &SearchAdapter{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 20 * time.Second},
	}
}

// Name implements Adapter.
func (a *SearchAdapter) Name() string { return "search" }

// IsConfigured reports whether the API key is available.
func (a *SearchAdapter) IsConfigured() bool { return a.apiKey != "" }

// Fetch runs the section query against the search provider.
func (a *SearchAdapter) Fetch(ctx context.Context, cfg newsletter.SectionConfig, days int) ([]newsletter.Candidate, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("search provider: missing API key")
	}
	if strings.TrimSpace(cfg.Query) == "" {
		return nil, nil
	}

	max := a.maxResults
	if cfg.ItemLimit*3 < max {
		max = cfg.ItemLimit * 3
	}

	payload := map[string]any{
		"query":        cfg.Query,
		"api_key":      a.apiKey,
		"max_results":  max,
		"search_depth": "advanced",
		"days":         days,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider returned %d", resp.StatusCode)
	}

	var result struct {
		Results []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			Content       string `json:"content"`
			Source        string `json:"source"`
			PublishedDate string `json:"published_date"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("search provider decode: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var hits []newsletter.Candidate
	for _, r := range result.Results {
		if r.URL == "" {
			continue
		}
		pub := parseDate(r.PublishedDate)
		// Hits with no parseable date get the benefit of the doubt.
		if pub != nil && pub.Before(cutoff) {
			continue
		}
		src := r.Source
		if src == "" {
			src = "Search"
		}
		hits = append(hits, newsletter.Candidate{
			URL:       r.URL,
			Title:     strings.TrimSpace(r.Title),
			Source:    src,
			Published: pub,
			Snippet:   strings.TrimSpace(r.Content),
		})
	}
	return filterBlocked(hits), nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDate best-effort parses a provider date string. Returns nil when no
// layout matches.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
