package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/db"
	"github.com/jonathan/salary-insights/internal/schemas"
)

// RowError reports a row rejected by schema validation. Row is 1-based and
// counts data rows only.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// Report describes one import run.
type Report struct {
	Source    string     `json:"source"`
	Timestamp string     `json:"timestamp"` // RFC3339
	Hash      string     `json:"hash"`      // SHA256 of the source file
	Columns   []string   `json:"columns"`
	Rows      int        `json:"rows"`
	Written   int64      `json:"written"`
	Rejected  []RowError `json:"rejected,omitempty"`
}

// ToJSON marshals the report with indentation.
func (r *Report) ToJSON() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "ingestion: marshal report")
	}
	return b, nil
}

// ImportOptions controls Import.
type ImportOptions struct {
	// DryRun parses and validates without writing.
	DryRun bool
	// Strict aborts on the first invalid row instead of skipping it.
	Strict bool
}

// Import reads a spreadsheet, validates each row against the record schema
// and writes the valid rows.
func Import(ctx context.Context, path string, w db.Writer, opts ImportOptions) (*Report, error) {
	hash, err := hashFile(path)
	if err != nil {
		return nil, err
	}

	table, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Source:    filepath.Base(path),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      hash,
		Columns:   table.Columns,
		Rows:      len(table.Records),
	}

	valid := make([]dataset.Record, 0, len(table.Records))
	for i, r := range table.Records {
		if err := schemas.ValidateRecord(r); err != nil {
			if opts.Strict {
				return report, eris.Wrapf(err, "ingestion: row %d", i+1)
			}
			report.Rejected = append(report.Rejected, RowError{Row: i + 1, Err: err.Error()})
			continue
		}
		valid = append(valid, r)
	}

	if len(report.Rejected) > 0 {
		zap.L().Warn("rows rejected by schema",
			zap.String("source", report.Source),
			zap.Int("rejected", len(report.Rejected)))
	}

	if opts.DryRun || len(valid) == 0 {
		return report, nil
	}

	n, err := w.WriteRecords(ctx, table.Columns, valid)
	if err != nil {
		return report, eris.Wrap(err, "ingestion: write records")
	}
	report.Written = n

	zap.L().Info("import complete",
		zap.String("source", report.Source),
		zap.Int("rows", report.Rows),
		zap.Int64("written", n))
	return report, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrap(err, "ingestion: open source")
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrap(err, "ingestion: hash source")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
