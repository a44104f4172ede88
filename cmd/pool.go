package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/etl-productivo/subsidy-etl/internal/db"
)

// openPool validates the config for mode and connects to Postgres.
func openPool(ctx context.Context, mode string) (*pgxpool.Pool, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, mode)
	}
	return pool, nil
}
