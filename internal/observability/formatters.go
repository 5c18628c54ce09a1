// Package observability provides structured logging setup and formatted
// report output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted report output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintIngestReport outputs per-source outcomes and persistence totals.
func (p *Printer) PrintIngestReport(r *types.IngestReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	for _, s := range r.Sources {
		if s.Failed() {
			sb.WriteString(fmt.Sprintf("✗ %s: %s\n", s.Source, s.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("✓ %s: %d postings", s.Source, s.Postings))
		if skipped := s.ParseSkipped + s.FetchSkipped; skipped > 0 {
			sb.WriteString(fmt.Sprintf(" (%d skipped)", skipped))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Fetched:    %d (%d unique)\n", r.Fetched, r.Unique))
	sb.WriteString(fmt.Sprintf("Inserted:   %d\n", r.Inserted))
	sb.WriteString(fmt.Sprintf("Duplicates: %d\n", r.Duplicates))
	sb.WriteString(fmt.Sprintf("Failed:     %d rows, %d sources", r.InsertFailed, r.SourceFailures()))

	p.printBox("INGESTION", sb.String())
}

// PrintCategorizeReport outputs the categorization stage result.
func (p *Printer) PrintCategorizeReport(r *types.CategorizeReport) {
	if r == nil {
		return
	}

	content := fmt.Sprintf("Categorized: %d\nFailed:      %d", r.Categorized, r.Failed)
	if r.Skipped {
		content = "Skipped: " + r.Reason
	}
	p.printBox("CATEGORIZATION", content)
}

// PrintMatchReport outputs the batch recompute totals and the first failures.
func (p *Printer) PrintMatchReport(r *types.MatchReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Users:   %d (%d ok, %d failed)\n", len(r.Users), r.Succeeded, r.Failed))
	sb.WriteString(fmt.Sprintf("Matches: %d", r.Written))

	shown := 0
	for _, u := range r.Users {
		if u.Error == "" {
			continue
		}
		if shown == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more failures", r.Failed-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("\n  • user %d: %s", u.UserID, u.Error))
		shown++
	}

	p.printBox("MATCHING", sb.String())
}

// PrintRunReport outputs every stage of a pipeline run.
func (p *Printer) PrintRunReport(r *types.RunReport) {
	if r == nil {
		return
	}
	content := fmt.Sprintf("Run:      %s\nDuration: %s", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(1e6))
	if r.Archive != "" {
		content += "\nArchive:  " + r.Archive
	}
	p.printBox("PIPELINE RUN", content)
	p.PrintIngestReport(&r.Ingest)
	p.PrintCategorizeReport(&r.Categorize)
	p.PrintMatchReport(&r.Match)
}

// PrintMatches outputs a user's current recommendations.
func (p *Printer) PrintMatches(userID int64, matches []types.MatchRecord) {
	if len(matches) == 0 {
		p.printBox(fmt.Sprintf("MATCHES FOR USER %d", userID), "No matches")
		return
	}

	var sb strings.Builder
	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, m.JobTitle))
		sb.WriteString(fmt.Sprintf("    %s · %.3f", m.JobCategory, m.SimilarityScore))
		if i < len(matches)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("MATCHES FOR USER %d", userID), sb.String())
}
