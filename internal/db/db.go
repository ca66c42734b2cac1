// Package db provides access to the job-compensation table in PostgreSQL or
// SQLite, and the paged loader that reads the whole table into memory.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jonathan/salary-insights/internal/dataset"
)

// DefaultTable is the hosted table holding compensation records.
const DefaultTable = "job_e"

// Pool is the subset of pgxpool.Pool used here; pgxmock satisfies it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// Options selects the table and paging order.
type Options struct {
	Table string
	// OrderBy is the column used for stable paging. Empty orders by the
	// row's JSON text.
	OrderBy string
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool    Pool
	table   string
	orderBy string
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "db: connect")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "db: ping")
	}

	return New(pool, opts), nil
}

// New wraps an existing pool.
func New(pool Pool, opts Options) *DB {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	return &DB{pool: pool, table: table, orderBy: opts.OrderBy}
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Table returns the configured table name.
func (db *DB) Table() string {
	return db.table
}

// Count returns the exact number of rows in the table.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", pgx.Identifier{db.table}.Sanitize())
	if err := db.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "db: count %s", db.table)
	}
	return int(n), nil
}

// Range returns up to limit rows starting at offset, each row decoded from
// its JSON form so that arbitrary column sets survive.
func (db *DB) Range(ctx context.Context, offset, limit int) ([]dataset.Record, error) {
	order := "1"
	if db.orderBy != "" {
		order = pgx.Identifier{db.orderBy}.Sanitize()
	}
	query := fmt.Sprintf(
		"SELECT row_to_json(t)::text FROM %s t ORDER BY %s LIMIT $1 OFFSET $2",
		pgx.Identifier{db.table}.Sanitize(), order,
	)

	rows, err := db.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, eris.Wrapf(err, "db: range %d+%d", offset, limit)
	}
	defer rows.Close()

	records := make([]dataset.Record, 0, limit)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "db: scan row")
		}
		var r dataset.Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, eris.Wrap(err, "db: decode row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: iterate rows")
	}
	return records, nil
}

// WriteRecords bulk-loads records with COPY. Missing columns are written as NULL.
func (db *DB) WriteRecords(ctx context.Context, columns []string, records []dataset.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = r[c]
		}
		rows[i] = row
	}

	n, err := db.pool.CopyFrom(ctx, pgx.Identifier{db.table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy into %s", db.table)
	}
	return n, nil
}
