package experiment

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qkd-net/cascade/internal/cascade"
)

// Result is one completed reconciliation run: the combination that produced it, the
// engine's own statistics, and the remaining-error figures that only a simulation harness
// (holding both the correct and the reconciled key) can compute.
type Result struct {
	Combination           Combination
	Stats                 cascade.Stats
	RemainingBitErrors    int
	RemainingFrameInError bool
}

// Observer receives each Result as it completes, for live metrics export.
type Observer interface {
	Observe(Result)
}

// Runner fans a Matrix out across a bounded worker pool, one goroutine per in-flight
// reconciliation.
type Runner struct {
	Workers  int
	Logger   *zap.Logger
	Observer Observer
}

// Run executes every (combination, repeat) pair in m and returns all results. It stops at
// the first error, cancelling any in-flight work, per errgroup's fail-fast semantics.
func (r *Runner) Run(ctx context.Context, m Matrix) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	var mu sync.Mutex
	results := make([]Result, 0, len(m.Combinations)*m.Repeats)

	for _, combo := range m.Combinations {
		for rep := 0; rep < m.Repeats; rep++ {
			combo := combo
			group.Go(func() error {
				res, err := r.runOne(gctx, logger, combo)
				if err != nil {
					return fmt.Errorf("run %s (rate=%v, size=%d): %w", combo.Variant, combo.ErrorRate, combo.KeySize, err)
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				if r.Observer != nil {
					r.Observer.Observe(res)
				}
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, logger *zap.Logger, combo Combination) (Result, error) {
	correct := cascade.RandomKey(combo.KeySize)
	noisy, err := correct.CopyWithNoise(combo.ErrorRate, combo.ErrorMethod)
	if err != nil {
		return Result{}, err
	}

	channel := cascade.NewMockClassicalChannel(correct)
	rec, err := cascade.New(combo.Variant, channel, noisy, combo.ErrorRate, cascade.WithLogger(logger))
	if err != nil {
		return Result{}, err
	}

	corrected, err := rec.Reconcile(ctx)
	if err != nil {
		return Result{}, err
	}

	remaining, err := correct.Difference(corrected)
	if err != nil {
		return Result{}, err
	}

	stats := rec.Stats()
	stats.RemainingBitErrors = remaining
	stats.RemainingFrameInError = remaining > 0

	return Result{
		Combination:           combo,
		Stats:                 stats,
		RemainingBitErrors:    remaining,
		RemainingFrameInError: remaining > 0,
	}, nil
}
