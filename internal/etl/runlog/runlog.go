// Package runlog records process runs in etl.run_log.
package runlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Entry is a row of etl.run_log.
type Entry struct {
	ID          uuid.UUID         `json:"id"`
	Subsidy     model.SubsidyType `json:"subsidy_type"`
	Policy      string            `json:"policy"`
	Status      string            `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	RowsRead    int64             `json:"rows_read"`
	Stats       map[string]any    `json:"stats,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Log reads and writes run entries.
type Log struct {
	pool  db.Querier
	newID func() uuid.UUID
}

// New returns a Log backed by pool.
func New(pool db.Querier) *Log {
	return &Log{pool: pool, newID: uuid.New}
}

// Start records a running entry and returns its id.
func (l *Log) Start(ctx context.Context, subsidy model.SubsidyType, policy string) (uuid.UUID, error) {
	id := l.newID()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO etl.run_log (id, subsidy_type, policy, status, started_at)
		 VALUES ($1, $2, $3, $4, now())`,
		id, string(subsidy), policy, StatusRunning,
	)
	if err != nil {
		return uuid.Nil, eris.Wrapf(err, "runlog: start run for %s", subsidy)
	}
	return id, nil
}

// Finish closes a run with a terminal status. stats is stored as JSON;
// errMsg is stored only when non-empty.
func (l *Log) Finish(ctx context.Context, id uuid.UUID, status string, rowsRead int64, stats any, errMsg string) error {
	var statsJSON []byte
	if stats != nil {
		var err error
		if statsJSON, err = json.Marshal(stats); err != nil {
			return eris.Wrap(err, "runlog: marshal stats")
		}
	}

	var errText *string
	if errMsg != "" {
		errText = &errMsg
	}

	_, err := l.pool.Exec(ctx,
		`UPDATE etl.run_log
		 SET status = $1, completed_at = now(), rows_read = $2, stats = $3, error = $4
		 WHERE id = $5`,
		status, rowsRead, statsJSON, errText, id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: finish run %s", id)
	}
	return nil
}

// Recent returns up to limit entries, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, subsidy_type, policy, status, started_at, completed_at, rows_read, stats, error
		 FROM etl.run_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list recent")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			subsidy   string
			statsJSON []byte
			errText   *string
		)
		if err := rows.Scan(&e.ID, &subsidy, &e.Policy, &e.Status, &e.StartedAt, &e.CompletedAt, &e.RowsRead, &statsJSON, &errText); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.Subsidy = model.SubsidyType(subsidy)
		if errText != nil {
			e.Error = *errText
		}
		if statsJSON != nil {
			_ = json.Unmarshal(statsJSON, &e.Stats)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
