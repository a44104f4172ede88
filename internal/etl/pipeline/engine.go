// Package pipeline runs staging batches through clean, standardize,
// validate, enrich, normalize and load, committing each batch together
// with its processed marks.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/etl/clean"
	"github.com/etl-productivo/subsidy-etl/internal/etl/enrich"
	"github.com/etl-productivo/subsidy-etl/internal/etl/load"
	"github.com/etl-productivo/subsidy-etl/internal/etl/normalize"
	"github.com/etl-productivo/subsidy-etl/internal/etl/runlog"
	"github.com/etl-productivo/subsidy-etl/internal/etl/staging"
	"github.com/etl-productivo/subsidy-etl/internal/etl/standardize"
	"github.com/etl-productivo/subsidy-etl/internal/etl/validate"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// errNoIdentity marks valid rows that carry neither an ID nor a name.
const errNoIdentity = "no beneficiary identity"

// RunRecorder persists run lifecycle entries. *runlog.Log implements it.
type RunRecorder interface {
	Start(ctx context.Context, subsidy model.SubsidyType, policy string) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, status string, rowsRead int64, stats any, errMsg string) error
}

// Options configures one run.
type Options struct {
	Subsidy   model.SubsidyType
	Policy    validate.Policy
	BatchSize int
	Catalog   *enrich.Catalog
	// Now overrides the cleaner's clock.
	Now func() time.Time
}

// RunStats aggregates a run's counters.
type RunStats struct {
	RunID        uuid.UUID         `json:"run_id"`
	Subsidy      model.SubsidyType `json:"subsidy_type"`
	Policy       string            `json:"policy"`
	Batches      int               `json:"batches"`
	RowsRead     int64             `json:"rows_read"`
	Valid        int               `json:"valid"`
	Invalid      int               `json:"invalid"`
	NoIdentity   int               `json:"no_identity"`
	Clean        clean.Stats       `json:"clean"`
	Standardize  standardize.Stats `json:"standardize"`
	Validation   validate.Summary  `json:"validation"`
	Load         load.Stats        `json:"load"`
	UnknownCrops map[string]int    `json:"unknown_crops,omitempty"`
	Elapsed      time.Duration     `json:"elapsed_ns"`
}

// Engine runs the staging-to-operational pipeline.
type Engine struct {
	pool   db.Pool
	runLog RunRecorder
}

// NewEngine returns an Engine. runLog may be nil.
func NewEngine(pool db.Pool, runLog RunRecorder) *Engine {
	return &Engine{pool: pool, runLog: runLog}
}

// run holds the state shared by a run's batches. Stage components are
// created per batch so a rolled-back batch leaves no trace in the counters.
type run struct {
	opts      Options
	cleanOpts []clean.Option
	reader    *staging.Reader
	loader    *load.Loader
	stats     *RunStats
	log       *zap.Logger
}

// Run processes every pending staging row of opts.Subsidy. Context is
// checked between batches; a batch error rolls back that batch and stops
// the run. Batches committed earlier stay committed.
func (e *Engine) Run(ctx context.Context, opts Options) (*RunStats, error) {
	if opts.Subsidy == "" {
		return nil, eris.New("pipeline: subsidy type is required")
	}
	if opts.Policy.Name == "" {
		opts.Policy = validate.Flexible()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.Catalog == nil {
		opts.Catalog = enrich.DefaultCatalog()
	}

	var cleanOpts []clean.Option
	if opts.Now != nil {
		cleanOpts = append(cleanOpts, clean.WithClock(opts.Now))
	}

	r := &run{
		opts:      opts,
		cleanOpts: cleanOpts,
		reader:    staging.NewReader(opts.Subsidy, opts.BatchSize),
		loader:    load.New(load.NewCache()),
		stats: &RunStats{
			Subsidy:    opts.Subsidy,
			Policy:     opts.Policy.Name,
			Validation: validate.Summary{Policy: opts.Policy.Name},
		},
		log: zap.L().With(
			zap.String("component", "pipeline"),
			zap.String("subsidy", string(opts.Subsidy)),
			zap.String("policy", opts.Policy.Name),
		),
	}

	if e.runLog != nil {
		id, err := e.runLog.Start(ctx, opts.Subsidy, opts.Policy.Name)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: record run start")
		}
		r.stats.RunID = id
	}

	start := time.Now()
	r.log.Info("run started", zap.Int("batch_size", opts.BatchSize))

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrap(err, "pipeline: run interrupted")
			break
		}
		n, err := e.batch(ctx, r)
		if err != nil {
			runErr = err
			break
		}
		if n == 0 {
			break
		}
	}

	r.finalize(time.Since(start))
	e.finish(ctx, r, runErr)
	if runErr != nil {
		return r.stats, runErr
	}

	r.log.Info("run complete",
		zap.Int("batches", r.stats.Batches),
		zap.Int64("rows_read", r.stats.RowsRead),
		zap.Int("valid", r.stats.Valid),
		zap.Int("invalid", r.stats.Invalid),
		zap.Int("persons_inserted", r.stats.Load.PersonsInserted),
		zap.Int("benefits_inserted", r.stats.Load.BenefitsInserted),
		zap.Int("benefits_skipped", r.stats.Load.BenefitsSkipped),
		zap.Int("load_errors", r.stats.Load.Errors()),
		zap.Duration("elapsed", r.stats.Elapsed),
	)
	return r.stats, nil
}

// batch processes one page inside a transaction and returns the number of
// staging rows it consumed.
func (e *Engine) batch(ctx context.Context, r *run) (int, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: begin batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	raws, err := r.reader.Next(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(raws) == 0 {
		return 0, nil
	}

	cleaner := clean.New(r.opts.Subsidy, r.cleanOpts...)
	std := standardize.New()
	val := validate.New(r.opts.Policy)
	enricher := enrich.New(r.opts.Catalog)

	recs := cleaner.Clean(raws)
	std.Standardize(recs)
	val.Validate(recs)
	enricher.Enrich(recs)
	ents := normalize.New().Normalize(recs)

	res, err := r.loader.Load(ctx, tx, ents)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: load batch")
	}

	ids, msgs := processedMarks(recs, res.Failures)
	if err := r.reader.MarkProcessed(ctx, tx, ids, msgs); err != nil {
		return 0, err
	}

	if err := commit(ctx, tx); err != nil {
		return 0, err
	}

	r.stats.Batches++
	r.stats.RowsRead += int64(len(raws))
	r.stats.NoIdentity += ents.NoIdentity
	r.stats.Clean.Add(cleaner.Stats())
	r.stats.Standardize.Add(std.Stats())
	r.stats.Validation.Add(val.Summary())
	r.stats.Load.Add(res.Stats)
	for code, n := range enricher.Unknown() {
		if r.stats.UnknownCrops == nil {
			r.stats.UnknownCrops = make(map[string]int)
		}
		r.stats.UnknownCrops[code] += n
	}

	r.log.Debug("batch committed",
		zap.Int("batch", r.stats.Batches),
		zap.Int("rows", len(raws)),
		zap.Int64("last_id", r.reader.LastID()),
		zap.Int("benefits_inserted", res.Stats.BenefitsInserted),
	)
	return len(raws), nil
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "pipeline: commit batch")
	}
	return nil
}

// processedMarks pairs every staging id with the text stored on the row:
// validation errors, a missing identity, a load failure, or nil.
func processedMarks(recs []*model.Record, failures map[int64]string) ([]int64, []*string) {
	ids := make([]int64, len(recs))
	msgs := make([]*string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.StagingID
		switch {
		case !rec.Valid:
			msgs[i] = rec.ErrorText()
		case failures[rec.StagingID] != "":
			msg := failures[rec.StagingID]
			msgs[i] = &msg
		default:
			if _, ok := normalize.PersonKey(rec); !ok {
				msg := errNoIdentity
				msgs[i] = &msg
			}
		}
	}
	return ids, msgs
}

func (r *run) finalize(elapsed time.Duration) {
	r.stats.Valid = r.stats.Validation.Valid
	r.stats.Invalid = r.stats.Validation.Invalid
	r.stats.Elapsed = elapsed
	r.stats.Validation.Report(zap.L().With(
		zap.String("component", "validate"),
		zap.String("policy", r.opts.Policy.Name),
	))
}

// finish records the terminal run status. It uses a context detached from
// cancellation so interrupted runs are still recorded.
func (e *Engine) finish(ctx context.Context, r *run, runErr error) {
	if e.runLog == nil {
		return
	}
	status, msg := runlog.StatusComplete, ""
	switch {
	case runErr != nil && ctx.Err() != nil:
		status, msg = runlog.StatusCancelled, runErr.Error()
	case runErr != nil:
		status, msg = runlog.StatusFailed, runErr.Error()
	}
	if err := e.runLog.Finish(context.WithoutCancel(ctx), r.stats.RunID, status, r.stats.RowsRead, r.stats, msg); err != nil {
		r.log.Error("failed to record run completion", zap.Error(err))
	}
	if runErr != nil {
		r.log.Error("run stopped", zap.String("status", status), zap.Error(runErr))
	}
}
