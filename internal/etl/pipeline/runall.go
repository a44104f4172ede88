package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// RunAll runs each subsidy type as an independent run, at most parallel at
// a time. A failing run does not cancel the others; the first error is
// returned after all runs finish. Stats are returned in types order, nil
// for runs that failed before starting.
func (e *Engine) RunAll(ctx context.Context, base Options, types []model.SubsidyType, parallel int) ([]*RunStats, error) {
	if parallel <= 0 {
		parallel = 1
	}
	out := make([]*RunStats, len(types))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, t := range types {
		opts := base
		opts.Subsidy = t
		g.Go(func() error {
			stats, err := e.Run(ctx, opts)
			mu.Lock()
			out[i] = stats
			mu.Unlock()
			return err
		})
	}
	return out, g.Wait()
}
