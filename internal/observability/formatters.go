// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/salary-insights/internal/aggregate"
	"github.com/jonathan/salary-insights/internal/format"
	"github.com/jonathan/salary-insights/internal/ingestion"
	"github.com/jonathan/salary-insights/internal/strategy"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
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
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintAggregates outputs the dashboard summaries.
func (p *Printer) PrintAggregates(agg aggregate.Aggregates) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total positions: %d\n", agg.Total))
	writeBuckets(&sb, "Job families", agg.Families)
	writeBuckets(&sb, "Levels", agg.Levels)
	writeBuckets(&sb, "Countries", agg.Countries)

	if len(agg.TopSalaries) > 0 {
		sb.WriteString("\nTop base salaries:\n")
		for i, s := range agg.TopSalaries {
			sb.WriteString(fmt.Sprintf("  %2d. %-28s %10.0f\n", i+1, truncate(s.ShortName, 28), s.Salary))
		}
	}

	la := agg.LevelAnalysis
	sb.WriteString(fmt.Sprintf("\nManagers: %d  Directors: %d\nTeam leaders: %d  Team members: %d",
		la.Manager, la.Director, la.TeamLeader, la.TeamMember))

	p.printBox("COMPENSATION OVERVIEW", sb.String())
}

func writeBuckets(sb *strings.Builder, heading string, buckets []aggregate.Bucket) {
	if len(buckets) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", heading))
	count := min(len(buckets), maxItemsToShow)
	for _, b := range buckets[:count] {
		sb.WriteString(fmt.Sprintf("  • %-30s %5d (%d%%)\n", truncate(b.Key, 30), b.Count, b.Percentage))
	}
	if len(buckets) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(buckets)-maxItemsToShow))
	}
}

// PrintStrategy outputs which records were sent to the model and why.
func (p *Printer) PrintStrategy(res *strategy.Result) {
	if res == nil {
		return
	}
	content := fmt.Sprintf("Rationale: %s\nRecords:   %d\nSize:      %s", res.Rationale, res.Count, res.Class)
	p.printBox("QUERY STRATEGY", content)
}

// PrintReply outputs a formatted assistant reply. Tables are rendered back
// to markdown; other kinds print their text.
func (p *Printer) PrintReply(f format.Formatted) {
	var parts []string
	if f.Intro != "" {
		parts = append(parts, f.Intro)
	}
	switch f.Kind {
	case format.KindTable:
		parts = append(parts, format.MarkdownTable(f.Table))
	case format.KindList:
		items := make([]string, len(f.Items))
		for i, item := range f.Items {
			items[i] = "• " + item
		}
		parts = append(parts, strings.Join(items, "\n"))
	default:
		parts = append(parts, f.Prose)
	}
	if f.Outro != "" {
		parts = append(parts, f.Outro)
	}

	var nonEmpty []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	p.printBox(strings.ToUpper(f.Title), strings.Join(nonEmpty, "\n\n"))
}

// PrintImportReport outputs the result of a spreadsheet import.
func (p *Printer) PrintImportReport(r *ingestion.Report) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source:   %s\n", r.Source))
	sb.WriteString(fmt.Sprintf("SHA256:   %s\n", r.Hash))
	sb.WriteString(fmt.Sprintf("Columns:  %d\n", len(r.Columns)))
	sb.WriteString(fmt.Sprintf("Rows:     %d\n", r.Rows))
	sb.WriteString(fmt.Sprintf("Written:  %d", r.Written))

	if len(r.Rejected) > 0 {
		sb.WriteString(fmt.Sprintf("\n\nRejected %d rows:\n", len(r.Rejected)))
		count := min(len(r.Rejected), maxItemsToShow)
		for _, re := range r.Rejected[:count] {
			first, _, _ := strings.Cut(re.Err, "\n")
			sb.WriteString(fmt.Sprintf("  row %d: %s\n", re.Row, first))
		}
		if len(r.Rejected) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more", len(r.Rejected)-maxItemsToShow))
		}
	}

	p.printBox("IMPORT REPORT", strings.TrimSuffix(sb.String(), "\n"))
}
