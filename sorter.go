package bucketsort

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

// Sort sorts the records of inputPath into outputPath.
//
// The input holds one "<id>. <text>" record per line. The output holds the
// records whose text starts with a letter (case-insensitive), ordered by
// text (byte-ordinal) and then by id.
//
// Sort runs three stages inside a private work directory:
//
//  1. partition: stream the input once into one bucket file per letter
//  2. sort: sort buckets in memory, in waves of WithWorkers buckets, and
//     merge each wave into one partial file
//  3. merge: k-way merge the wave partials into outputPath
//
// The output is written to a temporary file next to outputPath and renamed
// into place, so outputPath is untouched unless Sort succeeds. Any error
// aborts the remaining stages; intermediate files are removed best-effort.
func Sort(ctx context.Context, inputPath, outputPath string, opts ...Option) (*Stats, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if inputPath == "" {
		return nil, sorterrors.ErrNoInput
	}
	if outputPath == "" {
		return nil, sorterrors.ErrNoOutput
	}
	if err := checkDistinct(inputPath, outputPath); err != nil {
		return nil, err
	}

	stats := &Stats{RunID: uuid.NewString()}
	cfg.logger = cfg.logger.With(zap.String("run_id", stats.RunID))
	log := cfg.logger
	begin := time.Now()

	workDir, err := os.MkdirTemp(cfg.tempDir, "bucketsort-*")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("remove work directory", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	log.Info("partition started",
		zap.String("input", inputPath),
		zap.Int("workers", cfg.workers),
		zap.Int("batch_lines", cfg.batchLines))
	start := time.Now()
	part, err := partition(ctx, inputPath, workDir, cfg)
	if err != nil {
		log.Error("partition failed", zap.Error(err))
		return nil, fmt.Errorf("partition: %w", err)
	}
	stats.Partition = time.Since(start)
	stats.Lines = part.lines
	stats.Dropped = part.dropped
	stats.Buckets = len(part.buckets)
	log.Info("partition finished",
		zap.Int64("lines", part.lines),
		zap.Int64("kept", part.kept),
		zap.Int64("dropped", part.dropped),
		zap.Int("buckets", len(part.buckets)),
		zap.Duration("took", stats.Partition))

	start = time.Now()
	waves, err := sortAndPartialMerge(ctx, part.buckets, workDir, cfg)
	if err != nil {
		log.Error("sort failed", zap.Error(err))
		return nil, fmt.Errorf("sort: %w", err)
	}
	stats.Sort = time.Since(start)
	stats.Runs = waves.runs
	stats.Waves = waves.waves
	log.Info("sort finished",
		zap.Int("runs", waves.runs),
		zap.Int("waves", waves.waves),
		zap.Duration("took", stats.Sort))

	start = time.Now()
	res, err := mergeOutput(ctx, waves.partials, outputPath, cfg.verify, part.digest)
	if err != nil {
		log.Error("merge failed", zap.Error(err))
		return nil, fmt.Errorf("merge: %w", err)
	}
	stats.Merge = time.Since(start)
	stats.Records = res.records
	stats.OutputBytes = res.bytes
	stats.Checksum = res.checksum
	stats.Total = time.Since(begin)

	log.Info("sort complete", stats.zapFields()...)
	return stats, nil
}

// mergeOutput merges the wave partials into outputPath through a temporary
// file in the same directory. With verify set, the merged records must
// match want, the digest taken while partitioning.
func mergeOutput(ctx context.Context, partials []run, outputPath string, verify bool, want multisetDigest) (mergeResult, error) {
	dir, base := filepath.Split(outputPath)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return mergeResult{}, fmt.Errorf("create output: %w", err)
	}
	tmpPath := f.Name()

	var reserve int64
	for _, p := range partials {
		reserve += p.size
	}
	w, err := newRunWriter(f, reserve)
	if err != nil {
		return mergeResult{}, errors.Join(err, f.Close(), os.Remove(tmpPath))
	}
	w.enableChecksum()

	res, err := mergeRuns(ctx, partials, w, verify)
	if err != nil {
		// mergeRuns aborts w, which removes tmpPath, unless the failure was
		// removing consumed inputs after the output was complete.
		return mergeResult{}, errors.Join(err, removeIfExists(tmpPath))
	}
	if verify && res.digest != want {
		return mergeResult{}, errors.Join(
			fmt.Errorf("%w: partitioned %d records, merged %d", sorterrors.ErrDigestMismatch, want.count, res.digest.count),
			os.Remove(tmpPath))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return mergeResult{}, errors.Join(fmt.Errorf("chmod output: %w", err), os.Remove(tmpPath))
	}
	if err := replaceFile(tmpPath, outputPath); err != nil {
		return mergeResult{}, errors.Join(fmt.Errorf("rename output: %w", err), os.Remove(tmpPath))
	}
	_ = syncDir(dir)
	return res, nil
}

// checkDistinct rejects an output path that names the input file; in-place
// sorting is not supported.
func checkDistinct(inputPath, outputPath string) error {
	in, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	out, err := os.Stat(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat output: %w", err)
	}
	if os.SameFile(in, out) {
		return sorterrors.ErrSamePath
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
