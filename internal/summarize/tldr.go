package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/llm"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const tldrSystemPrompt = `You are writing the TL;DR for a weekly AI briefing.
From the items below, write 3-5 one-sentence bullets capturing the most important takeaways.
Return ONLY a JSON array of strings. No markdown, no commentary.`

// TLDR synthesizes a short lead digest from the run's top items. Selection of
// the items is the assembler's job; this only words them. Degrades to
// headline bullets when the model fails.
func (s *Summarizer) TLDR(ctx context.Context, items []newsletter.SummaryItem) []string {
	if len(items) == 0 {
		return nil
	}
	if s.provider == nil || !s.provider.IsConfigured() {
		return fallbackBullets(items)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Output language: %s\n\nItems:\n", s.language)
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, item.Title, item.Summary)
	}

	var bullets []string
	err := s.policy.Do(ctx, func() error {
		raw, genErr := s.provider.Generate(ctx, tldrSystemPrompt, b.String(), 512)
		if genErr != nil {
			return genErr
		}
		parsed, parseErr := parseStringArray(raw)
		if parseErr != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, parseErr)
		}
		bullets = parsed
		return nil
	})
	if err != nil || len(bullets) == 0 {
		return fallbackBullets(items)
	}
	return bullets
}

func parseStringArray(raw string) ([]string, error) {
	var arr []string
	if err := json.Unmarshal([]byte(llm.StripFences(raw)), &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

func fallbackBullets(items []newsletter.SummaryItem) []string {
	var bullets []string
	for _, item := range items {
		bullets = append(bullets, item.Title)
	}
	return bullets
}
