package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jonathan/salary-insights/internal/dataset"
)

// SQLite reads and writes a local snapshot of the compensation table.
type SQLite struct {
	db    *sql.DB
	table string
}

// busyTimeoutPragma is applied by the driver to every pooled connection.
const busyTimeoutPragma = "_pragma=busy_timeout(5000)"

// OpenSQLite opens a SQLite database at the given path.
func OpenSQLite(dsn, table string) (*SQLite, error) {
	db, err := sql.Open("sqlite", withBusyTimeout(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	if table == "" {
		table = DefaultTable
	}
	return &SQLite{db: db, table: table}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Count returns the number of rows.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(s.table))
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count %s", s.table)
	}
	return n, nil
}

// Range returns up to limit rows starting at offset in rowid order.
func (s *SQLite) Range(ctx context.Context, offset, limit int) ([]dataset.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY rowid LIMIT ? OFFSET ?", quoteIdent(s.table))
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: range %d+%d", offset, limit)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}

	var records []dataset.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}

		r := make(dataset.Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = values[i]
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate rows")
	}
	return records, nil
}

// WriteRecords creates the table if needed and inserts the records in one
// transaction. Columns are untyped so numeric and text values keep their
// affinity.
func (s *SQLite) WriteRecords(ctx context.Context, columns []string, records []dataset.Record) (int64, error) {
	if len(columns) == 0 {
		return 0, eris.New("sqlite: no columns")
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(s.table), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, eris.Wrap(err, "sqlite: create table")
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	var n int64
	for _, r := range records {
		args := make([]any, len(columns))
		for i, c := range columns {
			args[i] = r[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, eris.Wrapf(err, "sqlite: insert row %d", n+1)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + busyTimeoutPragma
	}
	return dsn + "?" + busyTimeoutPragma
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
