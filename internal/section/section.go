// Package section orchestrates the curation pipeline for each configured
// section and assembles the full run. All recoverable failures degrade a
// section to a reduced or empty item set with recorded warnings; only
// configuration errors fail a section outright.
package section

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/collect"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/config"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/dedup"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/quality"
)

// Verifier is what the assembler needs from the verification stage.
type Verifier interface {
	Verify(ctx context.Context, candidates []newsletter.Candidate) []newsletter.Verified
}

// Extractor is what the assembler needs from the extraction stage.
type Extractor interface {
	Extract(ctx context.Context, items []newsletter.Verified) []newsletter.Extracted
}

// Summarizer is what the assembler needs from the scoring stage.
type Summarizer interface {
	Summarize(ctx context.Context, cfg newsletter.SectionConfig, items []newsletter.Extracted) ([]newsletter.SummaryItem, error)
	TLDR(ctx context.Context, items []newsletter.SummaryItem) []string
}

// Assembler drives collect -> verify -> dedup -> extract -> summarize for
// each section.
type Assembler struct {
	cfg        *config.Config
	collector  *collect.Collector
	verifier   Verifier
	extractor  Extractor
	summarizer Summarizer
	tracker    *quality.Tracker // nil disables quality boosting/recording

	// RunDate overrides the run date (YYYY-MM-DD); empty means today.
	RunDate string
	// DryRun skips quality recording and any other delivery side effect.
	DryRun bool
}

// New creates an assembler.
func New(cfg *config.Config, collector *collect.Collector, verifier Verifier, extractor Extractor, summarizer Summarizer, tracker *quality.Tracker) *Assembler {
	return &Assembler{
		cfg:        cfg,
		collector:  collector,
		verifier:   verifier,
		extractor:  extractor,
		summarizer: summarizer,
		tracker:    tracker,
	}
}

// RunSection runs the pipeline for one section, sharing the given dedup
// state. Passing a fresh state scopes deduplication to the section; the full
// run shares one state across sections so the same story cannot publish
// twice.
func (a *Assembler) RunSection(ctx context.Context, key string, st *dedup.State) newsletter.SectionResult {
	return a.RunSectionDays(ctx, key, 0, st)
}

// RunSectionDays is RunSection with an explicit lookback window. days <= 0
// falls back to the section's configured window.
func (a *Assembler) RunSectionDays(ctx context.Context, key string, days int, st *dedup.State) newsletter.SectionResult {
	result := newsletter.SectionResult{Key: key, State: newsletter.StatePending}

	sectionCfg := a.cfg.Section(key)
	if sectionCfg == nil {
		result.State = newsletter.StateFailed
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown section key: %s", key))
		return result
	}
	cfg := *sectionCfg
	if days <= 0 {
		days = cfg.Days(a.cfg.Run.Days)
	}

	result.State = newsletter.StateCollecting
	collected := a.collector.Collect(ctx, cfg, days)
	result.Warnings = append(result.Warnings, collected.Warnings...)
	candidates := a.tracker.Reorder(collected.Candidates)
	if len(candidates) == 0 {
		result.State = newsletter.StateDone
		if len(result.Warnings) == 0 {
			result.Warnings = append(result.Warnings, "no candidates collected")
		}
		return result
	}

	// Verification is the expensive stage; fetching a few times the item
	// limit keeps sections full without checking every long-tail hit.
	if max := cfg.ItemLimit * 3; len(candidates) > max {
		candidates = candidates[:max]
	}

	result.State = newsletter.StateVerifying
	verified := a.verifier.Verify(ctx, candidates)

	verified = st.Filter(verified)

	result.State = newsletter.StateExtracting
	extracted := a.extractor.Extract(ctx, verified)

	result.State = newsletter.StateSummarizing
	items, err := a.summarizer.Summarize(ctx, cfg, extracted)
	if err != nil {
		log.Printf("section %s: summarization failed: %v", key, err)
		result.State = newsletter.StateDone
		result.Warnings = append(result.Warnings, "summarization failed")
		return result
	}

	result.Items = items
	result.State = newsletter.StateDone
	return result
}

// Run executes all configured sections concurrently (bounded by
// run.section_workers), sharing one dedup state, and reassembles results in
// configured order. With a configured deadline, sections still in flight when
// it expires degrade to empty with a warning instead of crashing the run.
func (a *Assembler) Run(ctx context.Context) *newsletter.RunResult {
	if a.cfg.Run.DeadlineMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.Run.DeadlineMinutes)*time.Minute)
		defer cancel()
	}

	keys := a.cfg.SectionKeys()
	st := dedup.NewState(a.cfg.Dedup.TitleThreshold)
	results := make([]newsletter.SectionResult, len(keys))

	workers := a.cfg.Run.SectionWorkers
	if workers <= 0 {
		workers = 4
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[i] = newsletter.SectionResult{
					Key:      key,
					State:    newsletter.StateDone,
					Warnings: []string{"run deadline exceeded"},
				}
				return
			}
			results[i] = a.RunSection(ctx, key, st)
		}(i, key)
	}
	wg.Wait()

	run := &newsletter.RunResult{
		RunDate:  a.runDate(),
		Language: a.cfg.Run.Language,
		Sections: results,
	}
	for _, r := range results {
		for _, w := range r.Warnings {
			run.Warnings = append(run.Warnings, fmt.Sprintf("%s: %s", r.Key, w))
		}
	}

	var all []newsletter.SummaryItem
	for _, r := range results {
		all = append(all, r.Items...)
	}
	run.Lead = TopItems(all, a.cfg.Run.TopItems)
	run.LeadBullets = a.summarizer.TLDR(ctx, run.Lead)

	if !a.DryRun {
		for _, item := range all {
			a.tracker.Record(item.URL, item.Relevance)
		}
	}

	log.Printf("run %s: %d sections, %d items, %d warnings",
		run.RunDate, len(run.Sections), len(all), len(run.Warnings))
	return run
}

// TopItems selects the top n items by relevance descending. Pure selection:
// the stable sort keeps first-seen order for equal scores, and no item is
// re-scored.
func TopItems(items []newsletter.SummaryItem, n int) []newsletter.SummaryItem {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	out := make([]newsletter.SummaryItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (a *Assembler) runDate() string {
	if a.RunDate != "" {
		return a.RunDate
	}
	return time.Now().UTC().Format("2006-01-02")
}
