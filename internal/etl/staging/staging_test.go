package staging

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// rawRowValues returns an id plus one value per RawColumns entry, with the
// given cells set and everything else null.
func rawRowValues(id int64, cells map[string]string) []any {
	out := []any{id}
	for _, c := range model.RawColumns {
		if v, ok := cells[c]; ok {
			out = append(out, model.Str(v))
		} else {
			out = append(out, (*string)(nil))
		}
	}
	return out
}

func rawColumnsWithID() []string {
	return append([]string{"id"}, model.RawColumns...)
}

func feed(rows ...model.RawRow) <-chan model.RawRow {
	ch := make(chan model.RawRow, len(rows))
	for _, r := range rows {
		ch <- r
	}
	close(ch)
	return ch
}

func TestWriter_Truncate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE "staging"."plants" RESTART IDENTITY`)).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	require.NoError(t, NewWriter(mock, model.SubsidyPlants).Truncate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriter_WriteBatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ident := pgx.Identifier{"staging", "seeds"}
	mock.ExpectCopyFrom(ident, model.RawColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(ident, model.RawColumns).WillReturnResult(1)

	w := NewWriter(mock, model.SubsidySeeds, WithBatchSize(2))
	n, err := w.Write(context.Background(), feed(
		model.RawRow{FullName: model.Str("A")},
		model.RawRow{FullName: model.Str("B")},
		model.RawRow{FullName: model.Str("C")},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriter_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "seeds"}, model.RawColumns).
		WillReturnError(errors.New("relation does not exist"))

	_, err = NewWriter(mock, model.SubsidySeeds).Write(context.Background(), feed(model.RawRow{FullName: model.Str("A")}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging: copy batch into staging.seeds")
}

func TestWriter_RateLimited(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "seeds"}, model.RawColumns).WillReturnResult(3)

	w := NewWriter(mock, model.SubsidySeeds, WithRowsPerSecond(1000))
	start := time.Now()
	n, err := w.Write(context.Background(), feed(model.RawRow{}, model.RawRow{}, model.RawRow{}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriter_RateLimitCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWriter(mock, model.SubsidySeeds, WithRowsPerSecond(1))
	_, err = w.Write(ctx, feed(model.RawRow{}, model.RawRow{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestReader_KeysetPagination(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	selectRe := regexp.QuoteMeta(`FROM "staging"."seeds" WHERE processed = false AND id > $1 ORDER BY id LIMIT $2`)

	mock.ExpectQuery(selectRe).WithArgs(int64(0), 2).
		WillReturnRows(pgxmock.NewRows(rawColumnsWithID()).
			AddRow(rawRowValues(3, map[string]string{"full_name": "JUAN", "canton": "DAULE"})...).
			AddRow(rawRowValues(8, map[string]string{"full_name": "ANA"})...))
	mock.ExpectQuery(selectRe).WithArgs(int64(8), 2).
		WillReturnRows(pgxmock.NewRows(rawColumnsWithID()))

	r := NewReader(model.SubsidySeeds, 2)

	batch, err := r.Next(context.Background(), mock)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(3), batch[0].ID)
	assert.Equal(t, "DAULE", *batch[0].Canton)
	assert.Nil(t, batch[1].Canton)
	assert.Equal(t, int64(8), r.LastID())

	batch, err = r.Next(context.Background(), mock)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Equal(t, int64(8), r.LastID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id").WillReturnError(errors.New("connection reset"))

	_, err = NewReader(model.SubsidyFertilizer, 10).Next(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging: read batch from staging.fertilizer")
}

func TestReader_MarkProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ids := []int64{3, 8}
	errs := []*string{nil, model.Str("invalid id number")}
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "staging"."seeds" AS s SET processed = true`)).
		WithArgs(ids, errs).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	r := NewReader(model.SubsidySeeds, 10)
	require.NoError(t, r.MarkProcessed(context.Background(), mock, ids, errs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_MarkProcessedErrors(t *testing.T) {
	r := NewReader(model.SubsidySeeds, 10)

	err := r.MarkProcessed(context.Background(), nil, []int64{1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 ids but 0 error entries")

	assert.NoError(t, r.MarkProcessed(context.Background(), nil, nil, nil))

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec("UPDATE").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = r.MarkProcessed(context.Background(), mock, []int64{1, 2}, []*string{nil, nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 rows, updated 1")
}

func TestAllStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for i, st := range model.AllSubsidyTypes() {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM "staging"."` + string(st) + `"`)).
			WillReturnRows(pgxmock.NewRows([]string{"total", "processed", "pending", "with_errors"}).
				AddRow(int64(10*(i+1)), int64(4), int64(10*(i+1)-4), int64(1)))
	}

	stats, err := AllStats(context.Background(), mock)
	require.NoError(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, model.SubsidySeeds, stats[0].Subsidy)
	assert.Equal(t, int64(10), stats[0].Total)
	assert.Equal(t, int64(36), stats[3].Pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectsAndHistogram(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, full_name, id_number, canton, error_message").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "id_number", "canton", "error_message"}).
			AddRow(int64(1), model.Str("JUAN"), model.Str("123"), (*string)(nil), "invalid id number").
			AddRow(int64(4), (*string)(nil), (*string)(nil), model.Str("DAULE"), "missing beneficiary name; invalid id number"))

	rejects, err := Rejects(context.Background(), mock, model.SubsidySeeds, 0)
	require.NoError(t, err)
	require.Len(t, rejects, 2)
	assert.Equal(t, "JUAN", *rejects[0].FullName)

	h := ErrorHistogram(rejects)
	assert.Equal(t, map[string]int{"invalid id number": 2, "missing beneficiary name": 1}, h)
	assert.NoError(t, mock.ExpectationsWereMet())
}
