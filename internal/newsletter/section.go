package newsletter

// SectionConfig tunes one topical stream of the briefing.
type SectionConfig struct {
	Key                string   `yaml:"key"`
	Name               string   `yaml:"name"`
	Query              string   `yaml:"query"`
	ItemLimit          int      `yaml:"item_limit"`
	RelevanceThreshold int      `yaml:"relevance_threshold"`
	LookbackDays       int      `yaml:"lookback_days"` // 0 = run-wide default
	RequireDate        bool     `yaml:"require_date"`
	Adapters           []string `yaml:"adapters"` // declared priority order
	Feeds              []string `yaml:"feeds"`
}

// Days resolves the effective lookback window for this section.
func (c SectionConfig) Days(runDefault int) int {
	if c.LookbackDays > 0 {
		return c.LookbackDays
	}
	return runDefault
}

// State is the per-section pipeline state.
type State int

const (
	StatePending State = iota
	StateCollecting
	StateVerifying
	StateExtracting
	StateSummarizing
	StateDone
	StateFailed
)

var stateNames = [...]string{"pending", "collecting", "verifying", "extracting", "summarizing", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// SectionResult is the outcome of running one section. A degraded section is
// Done with few or no items and at least one warning; Failed is reserved for
// non-recoverable configuration errors.
type SectionResult struct {
	Key      string        `json:"section_key"`
	State    State         `json:"-"`
	Items    []SummaryItem `json:"items"`
	Warnings []string      `json:"warnings,omitempty"`
}

// RunResult is the outcome of a full run, in configured section order.
type RunResult struct {
	RunDate  string          `json:"run_date"`
	Language string          `json:"lang"`
	Sections []SectionResult `json:"sections"`
	Lead     []SummaryItem   `json:"lead,omitempty"`
	// LeadBullets is the synthesized TL;DR digest worded from Lead.
	LeadBullets []string `json:"lead_bullets,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Section returns the result for a key, or nil.
func (r *RunResult) Section(key string) *SectionResult {
	for i := range r.Sections {
		if r.Sections[i].Key == key {
			return &r.Sections[i]
		}
	}
	return nil
}
