package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/dataset"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "job_e"`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2500)))

	db := New(mock, Options{})
	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRange_DecodesJSONRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT row_to_json\(t\)::text FROM "job_e" t ORDER BY "Record ID" LIMIT \$1 OFFSET \$2`).
		WithArgs(1000, 0).
		WillReturnRows(pgxmock.NewRows([]string{"row_to_json"}).
			AddRow(`{"Job":"Analyst","Base Salary-Average":85000}`).
			AddRow(`{"Job":"Manager","Base Salary-Average":120000}`))

	db := New(mock, Options{OrderBy: "Record ID"})
	records, err := db.Range(context.Background(), 0, 1000)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Analyst", records[0].String(dataset.FieldJob))

	salary, ok := records[1].Number(dataset.FieldBaseSalary)
	assert.True(t, ok)
	assert.InDelta(t, 120000, salary, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRange_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT row_to_json`).WithArgs(1000, 1000).WillReturnError(errors.New("timeout"))

	db := New(mock, Options{})
	_, err = db.Range(context.Background(), 1000, 1000)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestWriteRecords_Copy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"Job", "Family"}
	mock.ExpectCopyFrom(pgx.Identifier{"job_e"}, cols).WillReturnResult(2)

	db := New(mock, Options{Table: "job_e"})
	n, err := db.WriteRecords(context.Background(), cols, []dataset.Record{
		{"Job": "Analyst", "Family": "Treasury"},
		{"Job": "Manager"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRecords_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := New(mock, Options{}).WriteRecords(context.Background(), []string{"Job"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_WriteThenRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := OpenSQLite(path, "job_e")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	cols := []string{"Record ID", "Job", "country", "Base Salary-Average"}
	n, err := s.WriteRecords(ctx, cols, []dataset.Record{
		{"Record ID": "1", "Job": "Analyst", "country": "Poland", "Base Salary-Average": 85000.0},
		{"Record ID": "2", "Job": "Manager", "country": "Germany", "Base Salary-Average": 120000.0},
		{"Record ID": "3", "Job": "Director", "country": "Switzerland"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := s.Range(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Manager", page[0].String(dataset.FieldJob))
	assert.Equal(t, "Germany", page[0].String(dataset.FieldCountry))
	_, ok := page[1].Number(dataset.FieldBaseSalary)
	assert.False(t, ok)
}

func TestSQLite_LoaderEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := OpenSQLite(path, "")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	records := make([]dataset.Record, 7)
	for i := range records {
		records[i] = dataset.Record{"Job": string(rune('A' + i))}
	}
	_, err = s.WriteRecords(ctx, []string{"Job"}, records)
	require.NoError(t, err)

	got, err := NewLoader(s, 3).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 7)
	for i, r := range got {
		assert.Equal(t, string(rune('A'+i)), r.String(dataset.FieldJob))
	}
}

func TestSQLite_WriteRecordsNoColumns(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"), "")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.WriteRecords(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestSQLite_BusyTimeoutOnEveryConnection(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"), "")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	first, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	assert.Equal(t, "jobs.db?_pragma=busy_timeout(5000)", withBusyTimeout("jobs.db"))
	assert.Equal(t, "file:jobs.db?mode=rwc&_pragma=busy_timeout(5000)", withBusyTimeout("file:jobs.db?mode=rwc"))
	assert.Equal(t, "x.db?_pragma=busy_timeout(100)", withBusyTimeout("x.db?_pragma=busy_timeout(100)"))
}
