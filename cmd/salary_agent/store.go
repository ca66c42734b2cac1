package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/jonathan/salary-insights/internal/config"
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/db"
	"github.com/jonathan/salary-insights/internal/session"
)

// store is a compensation table that can be paged and bulk-loaded.
type store interface {
	db.Source
	db.Writer
}

// openStore connects to the configured backend. The returned func releases it.
func openStore(ctx context.Context, sc config.StoreConfig) (store, func(), error) {
	switch sc.Driver {
	case config.DriverSQLite:
		s, err := db.OpenSQLite(sc.SQLitePath, sc.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		pg, err := db.Connect(ctx, sc.DatabaseURL, db.Options{Table: sc.Table, OrderBy: sc.OrderBy})
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, eris.Errorf("unknown store driver %q", sc.Driver)
	}
}

// loadRecords reads the whole table once.
func loadRecords(ctx context.Context, sc config.StoreConfig) ([]dataset.Record, error) {
	s, closeStore, err := openStore(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	return session.New(db.NewLoader(s, sc.PageSize)).Records(ctx)
}
