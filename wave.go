package bucketsort

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxPendingWaveMerges bounds how many wave merges may run behind the sorts.
// Together with the wave size it caps the number of run files open at once.
const maxPendingWaveMerges = 2

// waveResult holds the partials produced by sortAndPartialMerge.
type waveResult struct {
	partials []run
	waves    int
	runs     int // sorted runs produced by bucket sorts
}

// sortAndPartialMerge sorts buckets in waves of cfg.workers and merges each
// wave's runs into one partial file.
//
// Within a wave every bucket sorts on its own goroutine; the wave barrier is
// the errgroup Wait. The wave's runs are then handed to a background merge
// so the next wave can start sorting. A merge only ever sees the runs of its
// own, completed wave. A wave that produced a single run skips the merge.
//
// The result has ceil(len(buckets) / cfg.workers) partials, ordered by the
// lowest letter each one covers.
func sortAndPartialMerge(ctx context.Context, buckets []bucket, workDir string, cfg *config) (waveResult, error) {
	waveSize := cfg.workers
	numWaves := (len(buckets) + waveSize - 1) / waveSize
	partials := make([]run, numWaves)

	sorters := make([]*bucketSorter, min(waveSize, len(buckets)))
	for i := range sorters {
		sorters[i] = &bucketSorter{workDir: workDir, budget: cfg.sortBudget()}
	}

	merges, mctx := errgroup.WithContext(ctx)
	merges.SetLimit(maxPendingWaveMerges)

	totalRuns := 0
	for w := range numWaves {
		wave := buckets[w*waveSize : min((w+1)*waveSize, len(buckets))]

		results := make([][]run, len(wave))
		sorts, sctx := errgroup.WithContext(mctx)
		for i, b := range wave {
			sorts.Go(func() error {
				runs, err := sorters[i].sortBucket(sctx, b)
				if err != nil {
					return fmt.Errorf("sort bucket %c: %w", b.letter, err)
				}
				results[i] = runs
				return nil
			})
		}
		if err := sorts.Wait(); err != nil {
			// A failed background merge cancels mctx, which surfaces here as
			// context.Canceled; prefer the merge's own error.
			if merr := merges.Wait(); merr != nil {
				return waveResult{}, merr
			}
			return waveResult{}, err
		}

		runs := slices.Concat(results...)
		totalRuns += len(runs)
		cfg.logger.Debug("wave sorted",
			zap.Int("wave", w),
			zap.String("from", string(wave[0].letter)),
			zap.String("to", string(wave[len(wave)-1].letter)),
			zap.Int("runs", len(runs)))

		if len(runs) == 1 {
			partials[w] = runs[0]
			continue
		}
		path := filepath.Join(workDir, fmt.Sprintf("wave-%03d.txt", w))
		merges.Go(func() error {
			p, err := mergeToRun(mctx, runs, path)
			if err != nil {
				return fmt.Errorf("merge wave %d: %w", w, err)
			}
			partials[w] = p
			cfg.logger.Debug("wave merged",
				zap.Int("wave", w),
				zap.Int64("records", p.records),
				zap.Int64("bytes", p.size))
			return nil
		})
	}
	if err := merges.Wait(); err != nil {
		return waveResult{}, err
	}

	slices.SortStableFunc(partials, func(a, b run) int {
		return cmp.Compare(a.letter, b.letter)
	})
	return waveResult{partials: partials, waves: numWaves, runs: totalRuns}, nil
}
