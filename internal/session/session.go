// Package session owns the in-memory dataset snapshot shared by the server
// handlers. The snapshot is loaded once and replaced only by Reload.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/metrics"
)

// DefaultLoadTimeout bounds one shared dataset load.
const DefaultLoadTimeout = 2 * time.Minute

// Loader produces the full dataset.
type Loader interface {
	LoadAll(ctx context.Context) ([]dataset.Record, error)
}

// Session holds the loaded records.
type Session struct {
	loader      Loader
	group       singleflight.Group
	loadTimeout time.Duration

	mu       sync.RWMutex
	records  []dataset.Record
	loaded   bool
	loadedAt time.Time
}

// New creates an empty session; nothing is loaded until first use.
func New(loader Loader) *Session {
	return &Session{loader: loader, loadTimeout: DefaultLoadTimeout}
}

// Records returns the snapshot, loading it on first call. Concurrent first
// callers share one load. A failed load is not cached.
func (s *Session) Records(ctx context.Context) ([]dataset.Record, error) {
	s.mu.RLock()
	if s.loaded {
		records := s.records
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	return s.load(ctx)
}

// Reload fetches the dataset again and swaps the snapshot on success. The
// previous snapshot stays in place when the reload fails.
func (s *Session) Reload(ctx context.Context) ([]dataset.Record, error) {
	return s.load(ctx)
}

// LoadedAt is the time of the last successful load, zero if none.
func (s *Session) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Loaded reports whether a snapshot is available.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// load runs one shared load detached from any single caller's
// cancellation. Each caller stops waiting when its own context ends.
func (s *Session) load(ctx context.Context) ([]dataset.Record, error) {
	ch := s.group.DoChan("dataset", func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		records, err := s.loader.LoadAll(loadCtx)
		if err != nil {
			metrics.DatasetLoads.WithLabelValues("error").Inc()
			zap.L().Error("dataset load failed", zap.Error(err))
			return nil, err
		}

		s.mu.Lock()
		s.records = records
		s.loaded = true
		s.loadedAt = time.Now()
		s.mu.Unlock()

		metrics.DatasetLoads.WithLabelValues("ok").Inc()
		metrics.DatasetRecords.Set(float64(len(records)))
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]dataset.Record), nil
	}
}
