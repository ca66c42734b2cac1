package assistant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jonathan/salary-insights/internal/aggregate"
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/prompts"
	"github.com/jonathan/salary-insights/internal/strategy"
)

const (
	promptFile = "chat.json"
	// summaryTop is how many levels, families and countries the header names.
	summaryTop = 3
)

// BuildPrompt assembles the model prompt: a dataset header, the column and
// formula glossary, every selected record as JSON, the answering rules and
// finally the question. total is the size of the full dataset.
func BuildPrompt(question string, sel strategy.Result, total int) (string, error) {
	header, err := datasetContext(sel, total)
	if err != nil {
		return "", err
	}
	return prompts.Render(promptFile, "question", map[string]string{
		"Context":  header,
		"Question": strings.TrimSpace(question),
	})
}

func datasetContext(sel strategy.Result, total int) (string, error) {
	if sel.Class == strategy.ClassEmpty || total == 0 {
		return prompts.Render(promptFile, "no-data", map[string]string{})
	}

	selected := sel.Records
	if selected == nil {
		selected = []dataset.Record{}
	}
	records, err := json.MarshalIndent(selected, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "assistant: encode records")
	}

	return prompts.Render(promptFile, "analyst", map[string]string{
		"RecordCount": strconv.Itoa(len(sel.Records)),
		"TotalCount":  strconv.Itoa(total),
		"Rationale":   sel.Rationale,
		"Levels":      summarize(aggregate.LevelDistribution(sel.Records)),
		"Families":    summarize(aggregate.FamilyDistribution(sel.Records)),
		"Countries":   summarize(aggregate.CountryDistribution(sel.Records)),
		"Records":     string(records),
	})
}

// summarize renders the leading buckets as "Manager (12), Director (4)".
func summarize(buckets []aggregate.Bucket) string {
	n := min(summaryTop, len(buckets))
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%s (%d)", buckets[i].Key, buckets[i].Count)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
