package dataset

import (
	"sort"
	"strings"
)

// DefaultPageSize is the dashboard table page size.
const DefaultPageSize = 10

// Filter narrows the dataset the way the dashboard does: a free-text search
// across job, family, level and country, plus multi-select lists. Empty lists
// do not restrict.
type Filter struct {
	Search    string   `json:"search,omitempty"`
	Families  []string `json:"families,omitempty"`
	Levels    []string `json:"levels,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

// IsZero reports whether the filter restricts nothing.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Families) == 0 && len(f.Levels) == 0 && len(f.Countries) == 0
}

// Apply returns the records that satisfy the filter, preserving order.
func (f Filter) Apply(records []Record) []Record {
	if f.IsZero() {
		return records
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	families := toSet(f.Families)
	levels := toSet(f.Levels)
	countries := toSet(f.Countries)

	out := make([]Record, 0, len(records))
	for _, r := range records {
		job := r.String(FieldJob)
		family := r.String(FieldFamily)
		level := r.String(FieldLevel)
		country := r.String(FieldCountry)

		if search != "" {
			hay := strings.ToLower(strings.Join([]string{job, family, level, country}, "\x00"))
			if !strings.Contains(hay, search) {
				continue
			}
		}
		if len(families) > 0 && !families[family] {
			continue
		}
		if len(levels) > 0 && !levels[level] {
			continue
		}
		if len(countries) > 0 && !countries[country] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Page is one slice of a paginated result.
type Page struct {
	Records    []Record `json:"records"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
}

// Paginate returns the 1-based page of records. Out-of-range pages are
// clamped to the last page.
func Paginate(records []Record, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(records)
	totalPages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := min(start+size, total)
	if start > total {
		start = total
	}

	return Page{
		Records:    records[start:end],
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Facets are the distinct values offered by the dashboard's filter controls.
type Facets struct {
	Families  []string `json:"families"`
	Levels    []string `json:"levels"`
	Countries []string `json:"countries"`
}

// BuildFacets collects sorted distinct families, levels and countries.
// Records missing a value contribute nothing to that list.
func BuildFacets(records []Record) Facets {
	return Facets{
		Families:  distinct(records, FieldFamily),
		Levels:    distinct(records, FieldLevel),
		Countries: distinct(records, FieldCountry),
	}
}

func distinct(records []Record, f Field) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		v := r.String(f)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}
