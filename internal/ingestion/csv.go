package ingestion

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// ReadCSVFile parses a CSV file with a header row.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingestion: open csv")
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// ReadCSV parses CSV content with a header row. Rows may be shorter than
// the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingestion: parse csv")
	}
	return buildTable(rows)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
