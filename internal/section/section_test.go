package section

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/collect"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/config"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/dedup"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/source"
)

// fakeAdapter serves canned candidates per section key.
type fakeAdapter struct {
	name   string
	bykey  map[string][]newsletter.Candidate
	err    error
	called int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, cfg newsletter.SectionConfig, _ int) ([]newsletter.Candidate, error) {
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	return f.bykey[cfg.Key], nil
}

// passVerifier marks every candidate reachable except URLs listed as gated.
type passVerifier struct {
	gated map[string]bool
}

func (v *passVerifier) Verify(_ context.Context, candidates []newsletter.Candidate) []newsletter.Verified {
	var out []newsletter.Verified
	for _, c := range candidates {
		if v.gated[c.URL] {
			continue
		}
		out = append(out, newsletter.Verified{Candidate: c, Reachable: true, HTML: "<html><body>x</body></html>"})
	}
	return out
}

type passExtractor struct{}

func (passExtractor) Extract(_ context.Context, items []newsletter.Verified) []newsletter.Extracted {
	out := make([]newsletter.Extracted, len(items))
	for i, item := range items {
		out[i] = newsletter.Extracted{Verified: item, Body: "body of " + item.Title}
	}
	return out
}

// scriptedSummarizer assigns scores per URL and can fail whole sections.
type scriptedSummarizer struct {
	scores      map[string]int
	failSection map[string]bool
}

func (s *scriptedSummarizer) Summarize(_ context.Context, cfg newsletter.SectionConfig, items []newsletter.Extracted) ([]newsletter.SummaryItem, error) {
	if s.failSection[cfg.Key] {
		return nil, fmt.Errorf("summarizing section %s: provider returned prose", cfg.Key)
	}
	var out []newsletter.SummaryItem
	for _, item := range items {
		score, ok := s.scores[item.URL]
		if !ok {
			score = 7
		}
		if score < cfg.RelevanceThreshold {
			continue
		}
		out = append(out, newsletter.SummaryItem{
			Title:      item.Title,
			URL:        item.URL,
			Summary:    "summary of " + item.Title,
			Relevance:  score,
			SectionKey: cfg.Key,
		})
	}
	// Highest first, matching the real summarizer's contract.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Relevance > out[i].Relevance {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > cfg.ItemLimit {
		out = out[:cfg.ItemLimit]
	}
	return out, nil
}

func (s *scriptedSummarizer) TLDR(_ context.Context, items []newsletter.SummaryItem) []string {
	var bullets []string
	for _, item := range items {
		bullets = append(bullets, "tldr: "+item.Title)
	}
	return bullets
}

// headlines are pairwise dissimilar so the fuzzy title dedup never collapses
// two distinct test candidates.
var headlines = []string{
	"Regulators draft disclosure rules for frontier models",
	"Chipmaker doubles datacenter output in one quarter",
	"Open weights release surprises the research community",
	"Hospitals report early wins from triage assistants",
	"Agents start filing expense reports unsupervised",
	"Translation quality crosses a usable threshold",
	"Farm sensors cut fertilizer use by a third",
	"Universities rewrite assessment for the chatbot era",
	"Grid operators lean on forecasting to absorb solar",
	"Robotics startups pivot toward warehouse logistics",
}

// candidates returns n candidates starting at the given headline offset;
// disjoint offsets keep two sections free of shared stories.
func candidates(prefix string, offset, n int) []newsletter.Candidate {
	out := make([]newsletter.Candidate, n)
	for i := range out {
		out[i] = newsletter.Candidate{
			URL:   fmt.Sprintf("https://%s.example/story-%d", prefix, i),
			Title: headlines[(offset+i)%len(headlines)],
		}
	}
	return out
}

func testConfig(sections ...newsletter.SectionConfig) *config.Config {
	return &config.Config{
		Run:      config.Run{Days: 7, Language: "en", TopItems: 6, SectionWorkers: 2},
		Dedup:    config.Dedup{TitleThreshold: 0.6},
		Sections: sections,
	}
}

func TestRunSectionFullPipeline(t *testing.T) {
	// 12 collected, 2 paywalled, 2 duplicates, 3 below threshold; limit 5.
	cands := candidates("news", 0, 10)
	cands = append(cands,
		newsletter.Candidate{URL: "https://news.example/story-0?utm_source=x", Title: "exact url duplicate"},
		newsletter.Candidate{URL: "https://mirror.example/copy", Title: cands[1].Title},
	)

	adapter := &fakeAdapter{name: "fake", bykey: map[string][]newsletter.Candidate{"trending": cands}}
	registry := source.Registry{}
	registry.Register(adapter)

	gated := map[string]bool{
		"https://news.example/story-8": true,
		"https://news.example/story-9": true,
	}
	scores := map[string]int{
		"https://news.example/story-0": 9,
		"https://news.example/story-1": 8,
		"https://news.example/story-2": 8,
		"https://news.example/story-3": 7,
		"https://news.example/story-4": 7,
		"https://news.example/story-5": 5,
		"https://news.example/story-6": 4,
		"https://news.example/story-7": 2,
	}

	cfg := testConfig(newsletter.SectionConfig{
		Key: "trending", Name: "Trending", ItemLimit: 5, RelevanceThreshold: 6,
		Adapters: []string{"fake"},
	})
	a := New(cfg, collect.New(registry), &passVerifier{gated: gated}, passExtractor{},
		&scriptedSummarizer{scores: scores}, nil)

	result := a.RunSection(context.Background(), "trending", dedup.NewState(0.6))
	if result.State != newsletter.StateDone {
		t.Fatalf("state = %v, want done", result.State)
	}
	if len(result.Items) != 5 {
		t.Fatalf("expected 5 published items, got %d: %v", len(result.Items), result.Items)
	}
	if result.Items[0].URL != "https://news.example/story-0" {
		t.Errorf("highest relevance should lead, got %q", result.Items[0].URL)
	}
	for _, item := range result.Items {
		if item.Relevance < 6 {
			t.Errorf("below-threshold item published: %+v", item)
		}
	}
}

func TestRunSectionUnknownKeyFails(t *testing.T) {
	cfg := testConfig(newsletter.SectionConfig{Key: "trending", ItemLimit: 5, Adapters: []string{"fake"}})
	a := New(cfg, collect.New(source.Registry{}), &passVerifier{}, passExtractor{},
		&scriptedSummarizer{}, nil)

	result := a.RunSection(context.Background(), "nope", dedup.NewState(0))
	if result.State != newsletter.StateFailed {
		t.Errorf("unknown key should fail the section, state = %v", result.State)
	}
}

func TestRunSectionNoCandidatesDegrades(t *testing.T) {
	adapter := &fakeAdapter{name: "fake"}
	registry := source.Registry{}
	registry.Register(adapter)

	cfg := testConfig(newsletter.SectionConfig{Key: "quiet", ItemLimit: 5, Adapters: []string{"fake"}})
	a := New(cfg, collect.New(registry), &passVerifier{}, passExtractor{}, &scriptedSummarizer{}, nil)

	result := a.RunSection(context.Background(), "quiet", dedup.NewState(0))
	if result.State != newsletter.StateDone || len(result.Items) != 0 {
		t.Errorf("empty collection should finish degraded: %+v", result)
	}
	if len(result.Warnings) == 0 {
		t.Error("degraded section must carry a warning")
	}
}

func TestRunSummarizerFailureIsContained(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", bykey: map[string][]newsletter.Candidate{
		"good":    candidates("good", 0, 3),
		"garbled": candidates("garbled", 3, 3),
	}}
	registry := source.Registry{}
	registry.Register(adapter)

	cfg := testConfig(
		newsletter.SectionConfig{Key: "good", Name: "Good", ItemLimit: 5, RelevanceThreshold: 0, Adapters: []string{"fake"}},
		newsletter.SectionConfig{Key: "garbled", Name: "Garbled", ItemLimit: 5, RelevanceThreshold: 0, Adapters: []string{"fake"}},
	)
	a := New(cfg, collect.New(registry), &passVerifier{}, passExtractor{},
		&scriptedSummarizer{failSection: map[string]bool{"garbled": true}}, nil)

	run := a.Run(context.Background())

	good := run.Section("good")
	if good == nil || len(good.Items) != 3 {
		t.Fatalf("healthy section should publish normally: %+v", good)
	}

	garbled := run.Section("garbled")
	if garbled == nil || garbled.State != newsletter.StateDone {
		t.Fatalf("failed summarization must degrade, not fail: %+v", garbled)
	}
	if len(garbled.Items) != 0 {
		t.Errorf("degraded section should publish nothing, got %v", garbled.Items)
	}
	found := false
	for _, w := range garbled.Warnings {
		if strings.Contains(w, "summarization failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected summarization warning, got %v", garbled.Warnings)
	}
}

func TestRunCrossSectionDedup(t *testing.T) {
	shared := newsletter.Candidate{URL: "https://shared.example/story", Title: "One story everywhere tonight"}
	adapter := &fakeAdapter{name: "fake", bykey: map[string][]newsletter.Candidate{
		"first":  {shared},
		"second": {shared},
	}}
	registry := source.Registry{}
	registry.Register(adapter)

	cfg := testConfig(
		newsletter.SectionConfig{Key: "first", ItemLimit: 5, Adapters: []string{"fake"}},
		newsletter.SectionConfig{Key: "second", ItemLimit: 5, Adapters: []string{"fake"}},
	)
	// One section at a time makes the winner deterministic.
	cfg.Run.SectionWorkers = 1

	a := New(cfg, collect.New(registry), &passVerifier{}, passExtractor{},
		&scriptedSummarizer{}, nil)
	run := a.Run(context.Background())

	total := 0
	for _, s := range run.Sections {
		total += len(s.Items)
	}
	if total != 1 {
		t.Errorf("story should publish exactly once across sections, got %d", total)
	}
	if len(run.Section("first").Items) != 1 {
		t.Errorf("first section should win the shared story")
	}
}

func TestRunDeadlineDegradesSections(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", bykey: map[string][]newsletter.Candidate{
		"trending": candidates("news", 0, 3),
	}}
	registry := source.Registry{}
	registry.Register(adapter)

	cfg := testConfig(newsletter.SectionConfig{Key: "trending", ItemLimit: 5, Adapters: []string{"fake"}})
	cfg.Run.DeadlineMinutes = 1

	a := New(cfg, collect.New(registry), &passVerifier{}, passExtractor{}, &scriptedSummarizer{}, nil)

	// An already-cancelled context stands in for a deadline that expired
	// with the section still queued.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run := a.Run(ctx)

	s := run.Section("trending")
	if s == nil || s.State != newsletter.StateDone {
		t.Fatalf("expired section must degrade to done, got %+v", s)
	}
	if len(s.Items) != 0 {
		t.Errorf("expired section should publish nothing, got %v", s.Items)
	}
	if adapter.called != 0 {
		t.Errorf("expired section should not start collecting, adapter called %d times", adapter.called)
	}
	found := false
	for _, w := range s.Warnings {
		if w == "run deadline exceeded" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected deadline warning, got %v", s.Warnings)
	}
	if len(run.Warnings) == 0 || !strings.Contains(run.Warnings[0], "run deadline exceeded") {
		t.Errorf("run should surface the section warning, got %v", run.Warnings)
	}
}

func TestRunAssemblesLead(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", bykey: map[string][]newsletter.Candidate{
		"trending": candidates("news", 0, 3),
	}}
	registry := source.Registry{}
	registry.Register(adapter)

	cfg := testConfig(newsletter.SectionConfig{Key: "trending", ItemLimit: 5, Adapters: []string{"fake"}})
	cfg.Run.TopItems = 2

	a := New(cfg, collect.New(registry), &passVerifier{}, passExtractor{}, &scriptedSummarizer{}, nil)
	run := a.Run(context.Background())

	if len(run.Lead) != 2 {
		t.Fatalf("lead should hold the top %d items, got %d", 2, len(run.Lead))
	}
	if len(run.LeadBullets) != 2 || !strings.HasPrefix(run.LeadBullets[0], "tldr:") {
		t.Errorf("lead bullets = %v", run.LeadBullets)
	}
}

func TestTopItems(t *testing.T) {
	items := []newsletter.SummaryItem{
		{Title: "low", Relevance: 3},
		{Title: "high", Relevance: 9},
		{Title: "mid-a", Relevance: 7},
		{Title: "mid-b", Relevance: 7},
	}
	got := TopItems(items, 3)
	if len(got) != 3 || got[0].Title != "high" {
		t.Fatalf("TopItems = %v", got)
	}
	if got[1].Title != "mid-a" || got[2].Title != "mid-b" {
		t.Errorf("equal scores must keep first-seen order: %v", got)
	}
	// Selection must not mutate the input.
	if items[0].Title != "low" {
		t.Error("TopItems reordered its input")
	}
	if TopItems(items, 0) != nil {
		t.Error("n=0 should select nothing")
	}
}
