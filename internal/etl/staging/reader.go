package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Reader pages through unprocessed staging rows by id. It never uses
// OFFSET: each batch starts after the last id returned.
type Reader struct {
	subsidy   model.SubsidyType
	batchSize int
	lastID    int64
	selectSQL string
	markSQL   string
}

// NewReader returns a Reader over subsidy's staging table.
func NewReader(subsidy model.SubsidyType, batchSize int) *Reader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	table := tableIdent(subsidy)
	return &Reader{
		subsidy:   subsidy,
		batchSize: batchSize,
		selectSQL: fmt.Sprintf(
			"SELECT id, %s FROM %s WHERE processed = false AND id > $1 ORDER BY id LIMIT $2",
			strings.Join(model.RawColumns, ", "), table,
		),
		markSQL: fmt.Sprintf(
			`UPDATE %s AS s SET processed = true, processed_at = now(), error_message = m.err
FROM unnest($1::bigint[], $2::text[]) AS m(id, err)
WHERE s.id = m.id`, table,
		),
	}
}

// LastID is the keyset cursor: the highest id returned so far.
func (r *Reader) LastID() int64 { return r.lastID }

// Next reads the next batch through q, normally the batch transaction.
// An empty slice means the table holds no more pending rows.
func (r *Reader) Next(ctx context.Context, q db.Querier) ([]model.RawRow, error) {
	rows, err := q.Query(ctx, r.selectSQL, r.lastID, r.batchSize)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: read batch from %s", r.subsidy.StagingTable())
	}
	defer rows.Close()

	batch := make([]model.RawRow, 0, r.batchSize)
	for rows.Next() {
		var raw model.RawRow
		if err := rows.Scan(raw.ScanTargets()...); err != nil {
			return nil, eris.Wrap(err, "staging: scan row")
		}
		batch = append(batch, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "staging: iterate batch")
	}
	if n := len(batch); n > 0 {
		r.lastID = batch[n-1].ID
	}
	return batch, nil
}

// MarkProcessed flags ids as processed and stores their error text (nil
// for clean rows). It must run in the same transaction as the batch's
// operational writes.
func (r *Reader) MarkProcessed(ctx context.Context, q db.Querier, ids []int64, errs []*string) error {
	if len(ids) != len(errs) {
		return eris.Errorf("staging: mark processed: %d ids but %d error entries", len(ids), len(errs))
	}
	if len(ids) == 0 {
		return nil
	}
	tag, err := q.Exec(ctx, r.markSQL, ids, errs)
	if err != nil {
		return eris.Wrapf(err, "staging: mark processed in %s", r.subsidy.StagingTable())
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return eris.Errorf("staging: mark processed: expected %d rows, updated %d", len(ids), tag.RowsAffected())
	}
	return nil
}
