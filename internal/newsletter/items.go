// Package newsletter holds the data model shared by the curation pipeline
// stages. Each stage consumes the previous stage's item type and produces a
// fresh slice of the next one; nothing here is mutated after creation.
package newsletter

import (
	"net/url"
	"strings"
	"time"
)

// Candidate is a raw, unverified hit from a source adapter.
type Candidate struct {
	URL       string
	Title     string
	Source    string
	Published *time.Time
	Snippet   string
}

// Valid reports whether the candidate carries a non-empty, parseable URL.
func (c Candidate) Valid() bool {
	if strings.TrimSpace(c.URL) == "" {
		return false
	}
	u, err := url.Parse(c.URL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Verified is a candidate that passed the reachability and paywall checks.
// HTML carries the body of the verification fetch so the extractor does not
// have to download the page a second time. It is empty when the item was
// accepted on the strength of its snippet alone.
type Verified struct {
	Candidate
	Reachable bool
	Paywalled bool
	HTML      string
}

// Extracted is a verified item plus its readable plain text. Failed extraction
// yields an empty Body and Failed set; it never aborts sibling items.
type Extracted struct {
	Verified
	Body   string
	Failed bool
}

// SummaryItem is the unit handed to the render boundary. Relevance is the
// model-assigned score in [0,10].
type SummaryItem struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Summary    string `json:"summary"`
	Relevance  int    `json:"relevance"`
	SectionKey string `json:"section_key"`
	Date       string `json:"date,omitempty"` // YYYY-MM-DD, events only
}
