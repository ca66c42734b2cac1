// Package format classifies a free-text model reply into the shape the
// dashboard renders: a table, a list, a highlighted "chart" paragraph or
// plain text. Format is pure and deterministic.
package format

import (
	"regexp"
	"strings"
)

// Kind is the detected display shape.
type Kind string

// Display shapes.
const (
	KindTable Kind = "table"
	KindList  Kind = "list"
	KindChart Kind = "chart"
	KindText  Kind = "text"
)

// Default titles per kind, used when the reply has no heading.
var defaultTitles = map[Kind]string{
	KindTable: "Data Table",
	KindList:  "Summary List",
	KindChart: "Data Analysis",
	KindText:  "Analysis Result",
}

// Table is a parsed markdown table.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Formatted is the structured view of a reply.
type Formatted struct {
	Kind     Kind     `json:"kind"`
	Title    string   `json:"title"`
	Headings []string `json:"headings,omitempty"`
	Intro    string   `json:"intro,omitempty"`
	Table    *Table   `json:"table,omitempty"`
	Items    []string `json:"items,omitempty"`
	Outro    string   `json:"outro,omitempty"`
	// Prose carries the cleaned text for chart and text replies.
	Prose string `json:"prose,omitempty"`
}

var (
	headingLine   = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)\s*#*\s*$`)
	bulletPrefix  = regexp.MustCompile(`^(\s*)[-*+]\s+`)
	numberedItem  = regexp.MustCompile(`^\s*\d+[.)]\s+\S`)
	bulletItem    = regexp.MustCompile(`^\s*•\s*\S`)
	boldMarker    = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	italicMarker  = regexp.MustCompile(`(^|[^*\w])\*([^*\s][^*]*?)\*`)
	separatorCell = regexp.MustCompile(`^\s*:?-{2,}:?\s*$`)

	currencyAmount = regexp.MustCompile(`[$€£]\s?\d[\d,]*(\.\d+)?|\b\d[\d,]*(\.\d+)?\s?(USD|EUR|CHF|PLN|GBP)\b|\b(USD|EUR|CHF|PLN|GBP)\s?\d[\d,]*`)
	percentValue   = regexp.MustCompile(`\d+(\.\d+)?\s?%`)
	countNoun      = regexp.MustCompile(`(?i)\b\d[\d,]*\s+(positions?|records?|jobs?|employees?|roles?|people)\b`)
)

// Format parses a reply.
func Format(text string) Formatted {
	lines, headings := normalize(text)

	f := Formatted{Headings: headings}
	switch {
	case countBarLines(lines) >= 3:
		f.Kind = KindTable
		f.Intro, f.Table, f.Outro = parseTable(lines)
	case countListLines(lines) >= 2:
		f.Kind = KindList
		f.Intro, f.Items, f.Outro = parseList(lines)
	default:
		prose := strings.TrimSpace(strings.Join(lines, "\n"))
		f.Prose = prose
		f.Kind = KindText
		if IsChartLike(prose) {
			f.Kind = KindChart
		}
	}

	f.Title = defaultTitles[f.Kind]
	if len(headings) > 0 {
		f.Title = headings[0]
	}
	return f
}

// IsChartLike reports whether text carries a currency amount, a percentage
// or a count of positions.
func IsChartLike(text string) bool {
	return currencyAmount.MatchString(text) || percentValue.MatchString(text) || countNoun.MatchString(text)
}

// normalize strips headings into a separate list, turns -, * and + bullets
// into "•" and removes bold and italic markers.
func normalize(text string) ([]string, []string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines, headings []string
	for _, line := range strings.Split(text, "\n") {
		if m := headingLine.FindStringSubmatch(line); m != nil {
			if h := stripEmphasis(m[1]); h != "" {
				headings = append(headings, h)
			}
			continue
		}
		// Bullets first so a leading "* " is not read as italics.
		line = bulletPrefix.ReplaceAllString(line, "${1}• ")
		lines = append(lines, stripEmphasis(line))
	}
	return lines, headings
}

func stripEmphasis(s string) string {
	s = boldMarker.ReplaceAllString(s, "$1$2")
	s = italicMarker.ReplaceAllString(s, "$1$2")
	return strings.TrimRight(s, " \t")
}

func isBarLine(line string) bool {
	return strings.Contains(line, "|")
}

func countBarLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if isBarLine(l) {
			n++
		}
	}
	return n
}

func isListLine(line string) bool {
	return bulletItem.MatchString(line) || numberedItem.MatchString(line)
}

func countListLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if isListLine(l) {
			n++
		}
	}
	return n
}

// parseTable reads the first run of at least two consecutive bar lines,
// so a stray bar in prose does not start the table. Without such a run the
// first bar line is used.
func parseTable(lines []string) (string, *Table, string) {
	start := -1
	for i, l := range lines {
		if !isBarLine(l) {
			continue
		}
		if start < 0 {
			start = i
		}
		if i+1 < len(lines) && isBarLine(lines[i+1]) {
			start = i
			break
		}
	}
	end := start
	for end < len(lines) && isBarLine(lines[end]) {
		end++
	}

	run := lines[start:end]
	t := &Table{Headers: splitRow(run[0]), Rows: [][]string{}}
	body := run[1:]
	if len(body) > 0 && isSeparatorRow(body[0]) {
		body = body[1:]
	}
	for _, l := range body {
		t.Rows = append(t.Rows, splitRow(l))
	}

	return joinProse(lines[:start]), t, joinProse(lines[end:])
}

// splitRow strips the outer pipes and splits on the inner ones. Empty
// interior cells are kept.
func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparatorRow(line string) bool {
	cells := splitRow(line)
	for _, c := range cells {
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return len(cells) > 0
}

// parseList reads the first contiguous run of list items. Blank lines
// between items stay inside the run.
func parseList(lines []string) (string, []string, string) {
	start := -1
	for i, l := range lines {
		if isListLine(l) {
			start = i
			break
		}
	}

	var items []string
	last := start
	for i := start; i < len(lines); i++ {
		l := lines[i]
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !isListLine(l) {
			break
		}
		items = append(items, listItemText(l))
		last = i
	}

	return joinProse(lines[:start]), items, joinProse(lines[last+1:])
}

func listItemText(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "•")
	return strings.TrimSpace(s)
}

func joinProse(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// MarkdownTable renders a table back to markdown. Formatting its output
// yields the same headers and rows.
func MarkdownTable(t *Table) string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	writeRow(&sb, t.Headers)
	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	writeRow(&sb, seps)
	for _, row := range t.Rows {
		writeRow(&sb, row)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("| ")
	sb.WriteString(strings.Join(cells, " | "))
	sb.WriteString(" |\n")
}
