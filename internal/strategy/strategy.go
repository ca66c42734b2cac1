// Package strategy decides how much of the dataset accompanies a chat
// question. Rules are evaluated in order and the first match wins; the
// decision is a pure function of the question and the records.
package strategy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/salary-insights/internal/dataset"
)

// Class is the size class of a selection.
type Class string

// Selection classes.
const (
	ClassFiltered      Class = "filtered"
	ClassFull          Class = "full"
	ClassLevelFiltered Class = "level_filtered"
	ClassSample        Class = "sample"
	ClassEmpty         Class = "empty"
)

// SampleSize is the number of leading records sent for simple questions.
const SampleSize = 30

// Rationale tags.
const (
	RationaleNoDataset   = "No dataset"
	RationaleAnalysis    = "Analysis requires full dataset"
	RationaleComparison  = "Comparison requires full dataset"
	RationaleManager     = "Manager level specific query"
	RationaleDirector    = "Director level specific query"
	RationaleStatistical = "Statistical analysis requires large sample"
	RationaleFamily      = "Family analysis requires full dataset"
	RationaleSample      = "Simple query, sample sufficient"
)

// Result is the selected subset and why it was chosen.
type Result struct {
	Records   []dataset.Record `json:"-"`
	Rationale string           `json:"rationale"`
	Class     Class            `json:"class"`
	Count     int              `json:"count"`
}

// levelKeyword pairs a question keyword with the label used in rationales.
type levelKeyword struct {
	keyword string
	label   string
}

var levelKeywords = []levelKeyword{
	{"manager", "Manager"},
	{"director", "Director"},
	{"leader", "Team Leader"},
	{"member", "Team Member"},
}

// familyKeyword maps a question mention to the tokens that identify the
// family in record values.
type familyKeyword struct {
	label   string
	pattern *regexp.Regexp
	tokens  []string
}

var familyKeywords = []familyKeyword{
	{"IT", regexp.MustCompile(`\bIT\b|(?i:\binformation technology\b)`), []string{"it", "information", "technology"}},
	{"Finance", regexp.MustCompile(`(?i)\bfinanc(e|ial)\b`), []string{"finance", "financial"}},
	{"Treasury", regexp.MustCompile(`(?i)\btreasury\b`), []string{"treasury"}},
	{"HR", regexp.MustCompile(`(?i)\b(hr|human resources)\b`), []string{"hr", "human"}},
	{"Sales", regexp.MustCompile(`(?i)\bsales\b`), []string{"sales"}},
	{"Marketing", regexp.MustCompile(`(?i)\bmarketing\b`), []string{"marketing"}},
	{"Operations", regexp.MustCompile(`(?i)\boperations\b`), []string{"operations"}},
	{"Legal", regexp.MustCompile(`(?i)\blegal\b`), []string{"legal"}},
	{"Engineering", regexp.MustCompile(`(?i)\bengineering\b`), []string{"engineering"}},
	{"Procurement", regexp.MustCompile(`(?i)\bprocurement\b`), []string{"procurement"}},
}

var (
	analysisStems    = []string{"analy", "compar", "trend", "distribut", "range", "percentile", "median", "average", "statistic", "breakdown"}
	statisticalStems = []string{"average", "median", "percentile"}
	comparisonStems  = []string{"compar", "vs", "versus"}
	familyStems      = []string{"famil", "department", "sector"}

	wholeWordAll      = regexp.MustCompile(`\ball\b`)
	wordOverview      = regexp.MustCompile(`\boverview`)
	wholeWordVs       = regexp.MustCompile(`\bvs\b`)
	tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// Select picks the records to send with a question.
func Select(question string, records []dataset.Record) Result {
	if len(records) == 0 {
		return Result{Rationale: RationaleNoDataset, Class: ClassEmpty}
	}

	q := strings.ToLower(question)
	analysis := matchedStems(q, analysisStems)
	overview := wholeWordAll.MatchString(q) || wordOverview.MatchString(q)
	isAnalysis := len(analysis) > 0 || overview

	if !isAnalysis {
		if r, ok := specificQuery(question, q, records); ok {
			return r
		}
	}

	if isAnalysis {
		rationale := RationaleAnalysis
		if !overview && allStatistical(analysis) {
			rationale = RationaleStatistical
		}
		return full(records, rationale)
	}

	// compare/comparison is already taken by the analysis rule.
	if hasComparison(q) {
		return full(records, RationaleComparison)
	}

	if hasStem(q, "manager") && !hasStem(q, "director") {
		return levelFiltered(records, "manager", RationaleManager)
	}
	if hasStem(q, "director") {
		return levelFiltered(records, "director", RationaleDirector)
	}

	if len(matchedStems(q, statisticalStems)) > 0 {
		return full(records, RationaleStatistical)
	}
	if len(matchedStems(q, familyStems)) > 0 {
		return full(records, RationaleFamily)
	}

	n := min(SampleSize, len(records))
	return Result{
		Records:   records[:n],
		Rationale: RationaleSample,
		Class:     ClassSample,
		Count:     n,
	}
}

// specificQuery handles a level keyword combined with a family keyword.
func specificQuery(raw, q string, records []dataset.Record) (Result, bool) {
	for _, lk := range levelKeywords {
		if !hasStem(q, lk.keyword) {
			continue
		}
		for _, fk := range familyKeywords {
			if !fk.pattern.MatchString(raw) {
				continue
			}
			var out []dataset.Record
			for _, r := range records {
				level := strings.ToLower(r.String(dataset.FieldLevel))
				if strings.Contains(level, lk.keyword) && familyMatches(r.String(dataset.FieldFamily), fk.tokens) {
					out = append(out, r)
				}
			}
			return Result{
				Records:   out,
				Rationale: fmt.Sprintf("Specific %s %s query", fk.label, lk.label),
				Class:     ClassFiltered,
				Count:     len(out),
			}, true
		}
	}
	return Result{}, false
}

func familyMatches(family string, tokens []string) bool {
	for _, tok := range tokenSplitPattern.Split(strings.ToLower(family), -1) {
		for _, want := range tokens {
			if tok == want {
				return true
			}
		}
	}
	return false
}

func full(records []dataset.Record, rationale string) Result {
	return Result{Records: records, Rationale: rationale, Class: ClassFull, Count: len(records)}
}

func levelFiltered(records []dataset.Record, keyword, rationale string) Result {
	var out []dataset.Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.String(dataset.FieldLevel)), keyword) {
			out = append(out, r)
		}
	}
	return Result{Records: out, Rationale: rationale, Class: ClassLevelFiltered, Count: len(out)}
}

func hasComparison(q string) bool {
	for _, stem := range comparisonStems {
		if stem == "vs" {
			if wholeWordVs.MatchString(q) {
				return true
			}
			continue
		}
		if hasStem(q, stem) {
			return true
		}
	}
	return false
}

func allStatistical(stems []string) bool {
	if len(stems) == 0 {
		return false
	}
	for _, s := range stems {
		if !contains(statisticalStems, s) {
			return false
		}
	}
	return true
}

func matchedStems(q string, stems []string) []string {
	var out []string
	for _, s := range stems {
		if hasStem(q, s) {
			out = append(out, s)
		}
	}
	return out
}

// hasStem reports whether a word in q starts with stem.
func hasStem(q, stem string) bool {
	for i := 0; ; {
		j := strings.Index(q[i:], stem)
		if j < 0 {
			return false
		}
		pos := i + j
		if pos == 0 || !isWordByte(q[pos-1]) {
			return true
		}
		i = pos + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
