// Package dataset defines the job-compensation record model and the
// synonym-aware column resolution shared by every consumer of the data.
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Record is one job position as loaded from the store: column name to value.
// Column names vary between exports, so callers read through Resolve rather
// than indexing the map directly.
type Record map[string]any

// Field is a canonical column identity.
type Field string

// Canonical fields understood by the resolver.
const (
	FieldJob                    Field = "job"
	FieldFamily                 Field = "family"
	FieldLevel                  Field = "level"
	FieldCountry                Field = "country"
	FieldBaseSalary             Field = "base_salary"
	FieldGuaranteedCompensation Field = "guaranteed_compensation"
	FieldActualCompensation     Field = "actual_compensation"
	FieldRecordID               Field = "record_id"
)

// synonyms lists accepted column names per field, highest priority first.
var synonyms = map[Field][]string{
	FieldJob:                    {"Job", "Job Code"},
	FieldFamily:                 {"FAMILY", "Family", "JOB_FAMILY", "DEPARTMENT", "Department"},
	FieldLevel:                  {"Level", "PC"},
	FieldCountry:                {"Country", "COUNTRY"},
	FieldBaseSalary:             {"Base Salary-Average", "Base Salary-Median"},
	FieldGuaranteedCompensation: {"Total Guaranteed Compensation-Average", "Total Guaranteed Compensation-Median"},
	FieldActualCompensation:     {"Actual Total Compensation-Average", "Actual Total Compensation-Median"},
	FieldRecordID:               {"Record ID"},
}

// Synonyms returns the accepted column names for a field in priority order.
func Synonyms(f Field) []string {
	return append([]string(nil), synonyms[f]...)
}

// Resolve looks up a field in the record. An exact-name pass over the
// synonyms runs first, then a case-insensitive pass. Nil and blank values
// count as absent.
func Resolve(r Record, f Field) (any, bool) {
	names := synonyms[f]
	if len(names) == 0 || len(r) == 0 {
		return nil, false
	}

	for _, name := range names {
		if v, ok := r[name]; ok && present(v) {
			return v, true
		}
	}

	// Sorted so that records carrying two case-variants resolve the same way every time.
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range names {
		for _, k := range keys {
			if strings.EqualFold(k, name) && present(r[k]) {
				return r[k], true
			}
		}
	}
	return nil, false
}

// String resolves a field and renders it as trimmed text. Missing fields give "".
func (r Record) String(f Field) string {
	v, ok := Resolve(r, f)
	if !ok {
		return ""
	}
	return strings.TrimSpace(toString(v))
}

// StringOr is String with a fallback for missing fields.
func (r Record) StringOr(f Field, fallback string) string {
	if s := r.String(f); s != "" {
		return s
	}
	return fallback
}

// Number resolves a field as a float. Strings such as "85,000" are accepted.
func (r Record) Number(f Field) (float64, bool) {
	v, ok := Resolve(r, f)
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

// ParseNumber converts loosely typed numeric values. Thousands separators
// and a leading currency symbol are tolerated.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimLeft(s, "$€£")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		return ParseNumber(string(n))
	default:
		return 0, false
	}
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	default:
		return true
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
