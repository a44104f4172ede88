package opsapi

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/etl/runlog"
	"github.com/etl-productivo/subsidy-etl/internal/etl/staging"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Store is the read-only data surface behind the ops endpoints.
type Store interface {
	Ping(ctx context.Context) error
	RecentRuns(ctx context.Context, limit int) ([]runlog.Entry, error)
	StagingStats(ctx context.Context) ([]staging.Stats, error)
	Rejects(ctx context.Context, subsidy model.SubsidyType, limit int) ([]staging.Reject, error)
}

// PGStore implements Store over Postgres.
type PGStore struct {
	q    db.Querier
	runs *runlog.Log
}

// NewPGStore returns a Store backed by q.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q, runs: runlog.New(q)}
}

// Ping runs a trivial query.
func (s *PGStore) Ping(ctx context.Context) error {
	var one int
	if err := s.q.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return eris.Wrap(err, "opsapi: ping")
	}
	return nil
}

// RecentRuns lists run log entries.
func (s *PGStore) RecentRuns(ctx context.Context, limit int) ([]runlog.Entry, error) {
	return s.runs.Recent(ctx, limit)
}

// StagingStats counts staging rows per subsidy type.
func (s *PGStore) StagingStats(ctx context.Context) ([]staging.Stats, error) {
	return staging.AllStats(ctx, s.q)
}

// Rejects lists rows with an error message.
func (s *PGStore) Rejects(ctx context.Context, subsidy model.SubsidyType, limit int) ([]staging.Reject, error) {
	return staging.Rejects(ctx, s.q, subsidy, limit)
}
