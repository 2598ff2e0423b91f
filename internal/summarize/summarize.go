// Package summarize sends batches of extracted articles to the language model
// and turns its structured response into scored, capped summary items.
package summarize

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/llm"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const systemPrompt = `You are a concise analyst producing copy for a weekly AI briefing.
You will receive a section topic and a numbered list of verified articles.
For EACH article worth including, return one object in a JSON array with keys:
  "index": <int, the article's number>,
  "headline": <string>,
  "summary": <string, 1-2 crisp neutral sentences>,
  "relevance": <int 0-10, topical fit and quality for this section>%s
Omit articles that are off-topic, not in the requested language, or duplicates in spirit.
Relevance meaning: 1-3 off-topic, 4-5 tangential, 6-7 relevant, 8-10 must-include.
Preserve URLs exactly as provided. Do not invent facts.
Return ONLY the JSON array. No markdown, no commentary.`

const dateKeyRule = `,
  "date": <string YYYY-MM-DD when the article names an event date>`

const maxContentPerItem = 4000

// Summarizer scores and summarizes extracted items for one section.
type Summarizer struct {
	provider llm.Provider
	policy   Policy
	language string
}

// New creates a summarizer. language is the output language code ("en", "fr").
func New(provider llm.Provider, policy Policy, language string) *Summarizer {
	if language == "" {
		language = "en"
	}
	return &Summarizer{provider: provider, policy: policy, language: language}
}

// Summarize produces at most cfg.ItemLimit summary items from the batch:
// parse strictly, drop below-threshold scores, sort by relevance descending
// with arrival order as the stable tie-break, truncate. A response that never
// parses across all retry attempts surfaces as an error wrapping
// ErrMalformedOutput for the caller to degrade on.
func (s *Summarizer) Summarize(ctx context.Context, cfg newsletter.SectionConfig, items []newsletter.Extracted) ([]newsletter.SummaryItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if s.provider == nil || !s.provider.IsConfigured() {
		return nil, fmt.Errorf("summarizer: no language-model provider configured")
	}

	system := buildSystemPrompt(cfg)
	user := buildUserPrompt(cfg, s.language, items)

	var parsed []map[string]any
	err := s.policy.Do(ctx, func() error {
		raw, genErr := s.provider.Generate(ctx, system, user, 1600)
		if genErr != nil {
			return genErr
		}
		arr, parseErr := llm.ParseJSONArray(raw)
		if parseErr != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, parseErr)
		}
		parsed = arr
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summarizing section %s: %w", cfg.Key, err)
	}

	scored := buildItems(cfg, parsed, items)
	scored = applyThreshold(scored, cfg.RelevanceThreshold)
	sortByRelevance(scored)
	if cfg.ItemLimit > 0 && len(scored) > cfg.ItemLimit {
		scored = scored[:cfg.ItemLimit]
	}

	log.Printf("section %s: summarized %d items -> %d published", cfg.Key, len(items), len(scored))
	return scored, nil
}

func buildSystemPrompt(cfg newsletter.SectionConfig) string {
	dateRule := ""
	if cfg.RequireDate {
		dateRule = dateKeyRule
	}
	return fmt.Sprintf(systemPrompt, dateRule)
}

func buildUserPrompt(cfg newsletter.SectionConfig, language string, items []newsletter.Extracted) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section: %s\nOutput language: %s\nTarget item count: %d\n\nArticles:\n", cfg.Name, language, cfg.ItemLimit)
	for i, item := range items {
		content := item.Body
		if content == "" {
			content = item.Snippet
		}
		content = truncate(content, maxContentPerItem)
		fmt.Fprintf(&b, "%d. Title: %s\n   URL: %s\n   Content: %s\n\n", i+1, item.Title, item.URL, content)
	}
	return b.String()
}

// buildItems converts parsed objects into SummaryItems anchored to their
// source articles. Objects with an unknown index, empty summary, or no
// parseable relevance are dropped; the model is the arbiter of omission, not
// invention, so the URL always comes from the source item, never the
// response.
func buildItems(cfg newsletter.SectionConfig, parsed []map[string]any, items []newsletter.Extracted) []newsletter.SummaryItem {
	var out []newsletter.SummaryItem
	seen := make(map[int]bool, len(parsed))
	for _, obj := range parsed {
		idx := llm.GetInt(obj, "index", 0) - 1
		if idx < 0 || idx >= len(items) || seen[idx] {
			continue
		}
		summary := strings.TrimSpace(llm.GetString(obj, "summary", ""))
		if summary == "" {
			continue
		}
		relevance, ok := llm.IntField(obj, "relevance")
		if !ok {
			// An unscored object would need an invented score to rank;
			// treat it like an unsummarized one.
			continue
		}
		seen[idx] = true

		title := strings.TrimSpace(llm.GetString(obj, "headline", ""))
		if title == "" {
			title = items[idx].Title
		}

		out = append(out, newsletter.SummaryItem{
			Title:      title,
			URL:        items[idx].URL,
			Summary:    summary,
			Relevance:  clampRelevance(relevance),
			SectionKey: cfg.Key,
			Date:       strings.TrimSpace(llm.GetString(obj, "date", "")),
		})
	}
	return out
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

func clampRelevance(r int) int {
	if r < 0 {
		return 0
	}
	if r > 10 {
		return 10
	}
	return r
}

func applyThreshold(items []newsletter.SummaryItem, threshold int) []newsletter.SummaryItem {
	kept := items[:0:0]
	for _, item := range items {
		if item.Relevance >= threshold {
			kept = append(kept, item)
		}
	}
	return kept
}

// sortByRelevance sorts descending; sort.SliceStable keeps arrival order for
// equal scores.
func sortByRelevance(items []newsletter.SummaryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})
}
