// Package schema owns the database layout: the staging, ops, ref and etl
// schemas, applied from embedded SQL files.
package schema

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// lockKey serializes concurrent migrate invocations.
const lockKey = 5930211

// Migrate applies every embedded migration not yet recorded in
// etl.schema_migrations, in filename order. All pending files apply in one
// transaction holding a transaction-scoped advisory lock.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "schema.migrate"))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "schema: begin migration tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		return eris.Wrap(err, "schema: acquire migration advisory lock")
	}

	if err := ensureMigrationTable(ctx, tx); err != nil {
		return err
	}

	names, err := Migrations()
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, tx)
	if err != nil {
		return err
	}

	pending := 0
	for _, name := range names {
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "schema: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))

		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "schema: apply migration %s", name)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO etl.schema_migrations (filename, applied_at) VALUES ($1, now())",
			name,
		); err != nil {
			return eris.Wrapf(err, "schema: record migration %s", name)
		}
		pending++
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "schema: commit migrations")
	}

	log.Info("schema up to date", zap.Int("files", len(names)), zap.Int("applied", pending))
	return nil
}

// Migrations returns the embedded migration filenames in apply order.
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "schema: read migration dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func ensureMigrationTable(ctx context.Context, q db.Querier) error {
	sql := `
		CREATE SCHEMA IF NOT EXISTS etl;
		CREATE TABLE IF NOT EXISTS etl.schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := q.Exec(ctx, sql); err != nil {
		return eris.Wrap(err, "schema: ensure migration table")
	}
	return nil
}

func appliedMigrations(ctx context.Context, q db.Querier) (map[string]bool, error) {
	rows, err := q.Query(ctx, "SELECT filename FROM etl.schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "schema: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "schema: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
