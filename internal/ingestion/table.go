// Package ingestion reads compensation spreadsheets (CSV or XLSX) into
// records and loads them into the store.
package ingestion

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jonathan/salary-insights/internal/dataset"
)

// Table is a parsed spreadsheet: the header row and one record per data row.
type Table struct {
	Columns []string
	Records []dataset.Record
}

// numericColumns are coerced to numbers on import.
var numericColumns = func() map[string]bool {
	out := make(map[string]bool)
	for _, f := range []dataset.Field{
		dataset.FieldBaseSalary,
		dataset.FieldGuaranteedCompensation,
		dataset.FieldActualCompensation,
	} {
		for _, name := range dataset.Synonyms(f) {
			out[strings.ToLower(name)] = true
		}
	}
	return out
}()

// ReadFile parses a .csv or .xlsx file by extension.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path)
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("ingestion: unsupported file type %q", filepath.Ext(path))
	}
}

// buildTable turns raw rows (header first) into records. Blank header cells
// get positional names, blank rows are skipped, and empty cells become nil.
func buildTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingestion: file has no header row")
	}

	columns := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(columns))
	for i, h := range rows[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "column_" + itoa(i+1)
		}
		if seen[name] {
			return nil, eris.Errorf("ingestion: duplicate column %q", name)
		}
		seen[name] = true
		columns[i] = name
	}

	t := &Table{Columns: columns}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		r := make(dataset.Record, len(columns))
		for i, col := range columns {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			r[col] = coerce(col, cell)
		}
		t.Records = append(t.Records, r)
	}
	return t, nil
}

// coerce maps an empty cell to nil and parses compensation columns as
// numbers. Unparseable compensation values are kept as text so schema
// validation reports them.
func coerce(column, cell string) any {
	if cell == "" {
		return nil
	}
	if numericColumns[strings.ToLower(column)] {
		if n, ok := dataset.ParseNumber(cell); ok {
			return n
		}
	}
	return cell
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
