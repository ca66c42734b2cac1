package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/metrics"
)

// DefaultPageSize is the per-request row cap of the hosted store.
const DefaultPageSize = 1000

// Source is a table that can be counted and read by offset ranges.
type Source interface {
	Count(ctx context.Context) (int, error)
	Range(ctx context.Context, offset, limit int) ([]dataset.Record, error)
}

// Writer bulk-inserts records.
type Writer interface {
	WriteRecords(ctx context.Context, columns []string, records []dataset.Record) (int64, error)
}

// Loader reads a whole Source in sequential pages.
type Loader struct {
	source   Source
	pageSize int
}

// NewLoader creates a loader; a non-positive pageSize uses DefaultPageSize.
func NewLoader(source Source, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{source: source, pageSize: pageSize}
}

// LoadAll counts the rows, then fetches [0,n), [n,2n), ... in order and
// concatenates them. Any failure aborts the whole load.
func (l *Loader) LoadAll(ctx context.Context) ([]dataset.Record, error) {
	start := time.Now()

	total, err := l.source.Count(ctx)
	if err != nil {
		return nil, &DataUnavailableError{Message: "count failed", Cause: err}
	}

	records := make([]dataset.Record, 0, total)
	for offset := 0; offset < total; offset += l.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, &DataUnavailableError{Message: "load cancelled", Offset: offset, Cause: err}
		}

		page, err := l.source.Range(ctx, offset, l.pageSize)
		if err != nil {
			zap.L().Warn("dataset page fetch failed",
				zap.Int("offset", offset),
				zap.Int("page_size", l.pageSize),
				zap.Error(err),
			)
			return nil, &DataUnavailableError{Message: "page fetch failed", Offset: offset, Cause: err}
		}
		metrics.DatasetPagesFetched.Inc()
		records = append(records, page...)

		// A short page means the table shrank after counting.
		if len(page) < l.pageSize {
			break
		}
	}

	zap.L().Info("dataset loaded",
		zap.Int("count", total),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}
