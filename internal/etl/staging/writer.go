// Package staging moves raw spreadsheet rows in and out of the staging
// schema: COPY-based loading, keyset-paginated reads and processed marks.
package staging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Writer copies raw rows into a subsidy type's staging table.
type Writer struct {
	pool      db.Pool
	subsidy   model.SubsidyType
	batchSize int
	limiter   *rate.Limiter
	log       *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBatchSize sets the number of rows per COPY.
func WithBatchSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithRowsPerSecond caps the insert rate. Zero disables pacing.
func WithRowsPerSecond(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(n), n)
		}
	}
}

// NewWriter returns a Writer for subsidy's staging table.
func NewWriter(pool db.Pool, subsidy model.SubsidyType, opts ...WriterOption) *Writer {
	w := &Writer{
		pool:      pool,
		subsidy:   subsidy,
		batchSize: 1000,
		log:       zap.L().With(zap.String("component", "staging.writer"), zap.String("subsidy", string(subsidy))),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Truncate empties the staging table and resets its id sequence.
func (w *Writer) Truncate(ctx context.Context) error {
	sql := fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", tableIdent(w.subsidy))
	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "staging: truncate %s", w.subsidy.StagingTable())
	}
	w.log.Info("staging table truncated")
	return nil
}

// Write consumes rows until the channel closes, copying them in batches.
// It returns the number of rows written.
func (w *Writer) Write(ctx context.Context, rows <-chan model.RawRow) (int64, error) {
	var (
		total int64
		batch = make([][]any, 0, w.batchSize)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.wait(ctx, len(batch)); err != nil {
			return err
		}
		n, err := db.CopyFrom(ctx, w.pool, w.subsidy.StagingTable(), model.RawColumns, batch)
		if err != nil {
			return eris.Wrapf(err, "staging: copy batch into %s", w.subsidy.StagingTable())
		}
		total += n
		w.log.Debug("batch copied", zap.Int64("rows", n), zap.Int64("total", total))
		batch = batch[:0]
		return nil
	}

	for r := range rows {
		batch = append(batch, r.Values())
		if len(batch) >= w.batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	w.log.Info("staging load complete", zap.Int64("rows", total))
	return total, nil
}

// wait blocks until the limiter admits n rows, in chunks no larger than
// the limiter's burst.
func (w *Writer) wait(ctx context.Context, n int) error {
	if w.limiter == nil {
		return nil
	}
	for n > 0 {
		chunk := min(n, w.limiter.Burst())
		if err := w.limiter.WaitN(ctx, chunk); err != nil {
			return eris.Wrap(err, "staging: rate limit wait")
		}
		n -= chunk
	}
	return nil
}

func tableIdent(t model.SubsidyType) string {
	return pgx.Identifier{"staging", string(t)}.Sanitize()
}
