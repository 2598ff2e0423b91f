// Package render turns a finished run into a distributable document. It
// consumes the RunResult structure verbatim; what the items say and how the
// document looks are decided upstream and by the template respectively.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

var md = goldmark.New()

// Markdown assembles the run into a markdown document: lead digest first,
// then each section in run order with its items. Empty and degraded sections
// are marked so a partial run never looks like a silent success.
func Markdown(run *newsletter.RunResult, sectionNames map[string]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# AI This Week — %s\n\n", run.RunDate)

	if len(run.LeadBullets) > 0 {
		b.WriteString("## TL;DR\n\n")
		for _, bullet := range run.LeadBullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
		b.WriteString("\n")
	}

	for _, section := range run.Sections {
		name := sectionNames[section.Key]
		if name == "" {
			name = section.Key
		}
		fmt.Fprintf(&b, "## %s\n\n", name)

		switch {
		case section.State == newsletter.StateFailed:
			b.WriteString("_Section failed: ")
			b.WriteString(strings.Join(section.Warnings, "; "))
			b.WriteString("_\n\n")
			continue
		case len(section.Items) == 0:
			b.WriteString("_No items this week._\n\n")
			continue
		}

		for _, item := range orderForDisplay(section.Items) {
			fmt.Fprintf(&b, "- **[%s](%s)**", item.Title, item.URL)
			if item.Date != "" {
				fmt.Fprintf(&b, " (%s)", item.Date)
			}
			fmt.Fprintf(&b, " — %s\n", item.Summary)
		}
		b.WriteString("\n")
	}

	if len(run.Warnings) > 0 {
		b.WriteString("---\n\n")
		for _, w := range run.Warnings {
			fmt.Fprintf(&b, "_%s_\n", w)
		}
	}

	return b.String()
}

// HTML renders the markdown document to HTML.
func HTML(run *newsletter.RunResult, sectionNames map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(run, sectionNames)), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// orderForDisplay sorts dated items (events) chronologically; undated
// sections keep relevance order.
func orderForDisplay(items []newsletter.SummaryItem) []newsletter.SummaryItem {
	dated := 0
	for _, item := range items {
		if item.Date != "" {
			dated++
		}
	}
	if dated == 0 {
		return items
	}

	out := make([]newsletter.SummaryItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date == "" || out[j].Date == "" {
			return out[j].Date == "" && out[i].Date != ""
		}
		return out[i].Date < out[j].Date
	})
	return out
}
