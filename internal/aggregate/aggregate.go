// Package aggregate derives the dashboard summaries from the loaded records:
// family, level and country distributions, the highest-paid positions and
// level analysis counts. All functions are pure and recomputed on demand.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/jonathan/salary-insights/internal/dataset"
)

const (
	// FamilyTopN is how many families are kept before folding into Other.
	FamilyTopN = 5
	// TopSalaryCount is the length of the top-paid list.
	TopSalaryCount = 10
	// shortNameLen is the display truncation for chart labels.
	shortNameLen = 10

	// OtherFamily is the fallback and overflow family key.
	OtherFamily = "Other"
	// UnknownKey is the fallback for missing level and country values.
	UnknownKey = "Unknown"
)

// Bucket is one entry of a distribution.
type Bucket struct {
	Key        string `json:"key"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// SalaryPosition is one entry of the top-paid list.
type SalaryPosition struct {
	Position  string  `json:"position"`
	ShortName string  `json:"short_name"`
	Salary    float64 `json:"salary"`
	Level     string  `json:"level"`
}

// LevelAnalysis counts positions per seniority group.
type LevelAnalysis struct {
	Manager    int `json:"manager"`
	Director   int `json:"director"`
	TeamLeader int `json:"team_leader"`
	TeamMember int `json:"team_member"`
}

// Aggregates bundles every summary the dashboard and the chat context use.
type Aggregates struct {
	Total         int              `json:"total"`
	Families      []Bucket         `json:"families"`
	Levels        []Bucket         `json:"levels"`
	Countries     []Bucket         `json:"countries"`
	TopSalaries   []SalaryPosition `json:"top_salaries"`
	LevelAnalysis LevelAnalysis    `json:"level_analysis"`
	Facets        dataset.Facets   `json:"facets"`
}

// Build computes all aggregates for the records.
func Build(records []dataset.Record) Aggregates {
	return Aggregates{
		Total:         len(records),
		Families:      FamilyDistribution(records),
		Levels:        LevelDistribution(records),
		Countries:     CountryDistribution(records),
		TopSalaries:   TopSalaries(records, TopSalaryCount),
		LevelAnalysis: AnalyzeLevels(records),
		Facets:        dataset.BuildFacets(records),
	}
}

// Distribution buckets records by a field, using fallback for missing values,
// sorted by percentage descending. Ties keep first-seen order.
func Distribution(records []dataset.Record, field dataset.Field, fallback string) []Bucket {
	buckets := count(records, field, fallback)
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Percentage > buckets[j].Percentage
	})
	return buckets
}

// FamilyDistribution returns the top families with the remainder folded into
// a single Other bucket. A real Other family inside the top entries absorbs
// the remainder instead of producing a second Other.
func FamilyDistribution(records []dataset.Record) []Bucket {
	all := Distribution(records, dataset.FieldFamily, OtherFamily)
	if len(all) <= FamilyTopN {
		return all
	}

	top := append([]Bucket(nil), all[:FamilyTopN]...)
	var rest Bucket
	for _, b := range all[FamilyTopN:] {
		rest.Count += b.Count
		rest.Percentage += b.Percentage
	}

	for i := range top {
		if top[i].Key == OtherFamily {
			top[i].Count += rest.Count
			top[i].Percentage += rest.Percentage
			return top
		}
	}

	rest.Key = OtherFamily
	return append(top, rest)
}

// LevelDistribution buckets by level.
func LevelDistribution(records []dataset.Record) []Bucket {
	return Distribution(records, dataset.FieldLevel, UnknownKey)
}

// CountryDistribution buckets by country, sorted by count descending.
func CountryDistribution(records []dataset.Record) []Bucket {
	buckets := count(records, dataset.FieldCountry, UnknownKey)
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	return buckets
}

// TopSalaries returns the n highest base salaries. Records without a
// numeric base salary are skipped.
func TopSalaries(records []dataset.Record, n int) []SalaryPosition {
	positions := make([]SalaryPosition, 0, len(records))
	for _, r := range records {
		salary, ok := r.Number(dataset.FieldBaseSalary)
		if !ok {
			continue
		}
		name := r.StringOr(dataset.FieldJob, "Unknown Position")
		positions = append(positions, SalaryPosition{
			Position:  name,
			ShortName: ShortName(name),
			Salary:    salary,
			Level:     r.StringOr(dataset.FieldLevel, "Not specified"),
		})
	}

	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Salary > positions[j].Salary
	})
	if len(positions) > n {
		positions = positions[:n]
	}
	return positions
}

// ShortName truncates a position name for chart labels.
func ShortName(name string) string {
	runes := []rune(name)
	if len(runes) <= shortNameLen {
		return name
	}
	return string(runes[:shortNameLen]) + "..."
}

// AnalyzeLevels counts positions whose level mentions each seniority group.
// The groups overlap: "Manager/Director" counts as both.
func AnalyzeLevels(records []dataset.Record) LevelAnalysis {
	var la LevelAnalysis
	for _, r := range records {
		level := strings.ToLower(r.String(dataset.FieldLevel))
		if strings.Contains(level, "manager") {
			la.Manager++
		}
		if strings.Contains(level, "director") {
			la.Director++
		}
		if strings.Contains(level, "leader") {
			la.TeamLeader++
		}
		if strings.Contains(level, "member") {
			la.TeamMember++
		}
	}
	return la
}

// Percentage is round(count/total*100), 0 when total is 0.
func Percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// count groups records by key in first-seen order.
func count(records []dataset.Record, field dataset.Field, fallback string) []Bucket {
	index := make(map[string]int)
	buckets := []Bucket{}
	for _, r := range records {
		key := r.StringOr(field, fallback)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Key: key})
		}
		buckets[i].Count++
	}

	for i := range buckets {
		buckets[i].Percentage = Percentage(buckets[i].Count, len(records))
	}
	return buckets
}
