// Package quality tracks how well each domain's articles have scored in past
// runs and turns that history into a candidate-ordering boost. Reader
// feedback applies a temporary penalty to flagged domains.
package quality

import (
	"log"
	"net/url"
	"sort"
	"strings"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/database"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

const (
	scoreWindowDays    = 90
	feedbackWindowDays = 7
	penaltyPerFlag     = 0.2
)

// Tracker reads and writes domain quality history. A nil Tracker is a no-op
// everywhere, so the pipeline runs unchanged without a database.
type Tracker struct {
	db *database.DB
}

// NewTracker creates a tracker over an open database.
func NewTracker(db *database.DB) *Tracker {
	return &Tracker{db: db}
}

// Domain extracts the root domain from a URL, www-stripped and lowercased.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Record stores a published item's relevance score against its domain and
// prunes history outside the rolling window.
func (t *Tracker) Record(itemURL string, relevance int) {
	if t == nil || t.db == nil {
		return
	}
	domain := Domain(itemURL)
	if domain == "" {
		return
	}
	if err := t.db.RecordScore(domain, relevance); err != nil {
		log.Printf("quality: recording score for %s: %v", domain, err)
		return
	}
	if err := t.db.PruneScores(scoreWindowDays); err != nil {
		log.Printf("quality: pruning scores: %v", err)
	}
}

// RecordFeedback stores a reader rating ("up" or "down") for a URL's domain.
func (t *Tracker) RecordFeedback(itemURL, rating string) {
	if t == nil || t.db == nil {
		return
	}
	domain := Domain(itemURL)
	if domain == "" {
		return
	}
	if err := t.db.RecordFeedback(domain, itemURL, rating); err != nil {
		log.Printf("quality: recording feedback for %s: %v", domain, err)
	}
}

// Boost returns a quality boost in [0,1] for a URL's domain: 0 for unknown or
// average domains, approaching 1 for consistently high-scoring ones, reduced
// by recent reader flags.
func (t *Tracker) Boost(itemURL string) float64 {
	if t == nil || t.db == nil {
		return 0
	}
	domain := Domain(itemURL)
	if domain == "" {
		return 0
	}

	scores, err := t.db.DomainScores(domain, scoreWindowDays)
	if err != nil || len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	avg := float64(sum) / float64(len(scores))

	// Scores run 0-10; only above-average domains earn a boost.
	boost := (avg - 5.0) / 5.0
	if boost < 0 {
		boost = 0
	}

	flags, err := t.db.RecentDownvotes(domain, feedbackWindowDays)
	if err == nil {
		boost -= float64(flags) * penaltyPerFlag
	}
	if boost < 0 {
		return 0
	}
	return boost
}

// Reorder stable-sorts candidates by domain boost descending. Equal boosts
// (the common case: all zero) keep the collector's order, so the
// deterministic tie-break survives.
func (t *Tracker) Reorder(candidates []newsletter.Candidate) []newsletter.Candidate {
	if t == nil || t.db == nil || len(candidates) < 2 {
		return candidates
	}
	boosts := make([]float64, len(candidates))
	any := false
	for i, c := range candidates {
		boosts[i] = t.Boost(c.URL)
		if boosts[i] > 0 {
			any = true
		}
	}
	if !any {
		return candidates
	}

	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return boosts[idx[a]] > boosts[idx[b]] })

	out := make([]newsletter.Candidate, len(candidates))
	for i, j := range idx {
		out[i] = candidates[j]
	}
	return out
}

// DomainStats returns per-domain recent averages with computed boosts, for
// the quality dashboard.
func (t *Tracker) DomainStats() map[string]database.DomainStat {
	if t == nil || t.db == nil {
		return nil
	}
	stats, err := t.db.DomainAverages(scoreWindowDays)
	if err != nil {
		log.Printf("quality: reading domain stats: %v", err)
		return nil
	}
	for domain, st := range stats {
		st.Boost = t.Boost("https://" + domain + "/")
		stats[domain] = st
	}
	return stats
}
