// Package collect fans a section's configuration out over its source adapters
// and fans the results back into one ordered candidate sequence.
package collect

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/source"
)

// Result holds the merged candidates of one collection pass plus per-adapter
// warnings for adapters that contributed nothing due to an error.
type Result struct {
	Candidates []newsletter.Candidate
	Warnings   []string
	PerAdapter map[string]int
}

// Collector invokes every adapter named in a section's config.
type Collector struct {
	registry source.Registry
}

// New creates a collector over an adapter registry.
func New(registry source.Registry) *Collector {
	return &Collector{registry: registry}
}

// Collect runs all of the section's adapters concurrently and concatenates
// their results in the declared adapter order, preserving each adapter's own
// result order. The declared order is the deterministic tie-break used by
// later scoring: when two items end up with equal relevance, the
// earlier-discovered one sorts first. A failed adapter contributes zero items
// and a warning, never an error.
func (c *Collector) Collect(ctx context.Context, cfg newsletter.SectionConfig, days int) *Result {
	type slot struct {
		hits []newsletter.Candidate
		err  error
	}

	slots := make([]slot, len(cfg.Adapters))
	var wg sync.WaitGroup

	for i, name := range cfg.Adapters {
		adapter, ok := c.registry[name]
		if !ok {
			slots[i].err = fmt.Errorf("unknown adapter %q", name)
			continue
		}
		wg.Add(1)
		go func(i int, adapter source.Adapter) {
			defer wg.Done()
			hits, err := adapter.Fetch(ctx, cfg, days)
			slots[i] = slot{hits: hits, err: err}
		}(i, adapter)
	}
	wg.Wait()

	r := &Result{PerAdapter: make(map[string]int, len(cfg.Adapters))}
	for i, name := range cfg.Adapters {
		if slots[i].err != nil {
			log.Printf("section %s: adapter %s failed: %v", cfg.Key, name, slots[i].err)
			r.Warnings = append(r.Warnings, fmt.Sprintf("adapter %s: %v", name, slots[i].err))
			continue
		}
		valid := 0
		for _, hit := range slots[i].hits {
			if !hit.Valid() {
				continue
			}
			r.Candidates = append(r.Candidates, hit)
			valid++
		}
		r.PerAdapter[name] = valid
	}

	log.Printf("section %s: collected %d candidates from %d adapters (%d warnings)",
		cfg.Key, len(r.Candidates), len(cfg.Adapters), len(r.Warnings))
	return r
}
