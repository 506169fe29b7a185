package bucketsort

import (
	"runtime"

	"go.uber.org/zap"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

const (
	// defaultBatchLines is the number of input lines handed to one
	// classification worker at a time.
	defaultBatchLines = 2000

	// defaultMemoryBudget bounds the bytes of bucket data held in memory by
	// all concurrent bucket sorts together.
	defaultMemoryBudget = 1 << 30

	// minSortBudget is the smallest per-sort chunk. Smaller budgets would
	// fragment buckets into runs of a few lines each.
	minSortBudget = 64 << 10
)

// Option is a functional option for configuring a sort.
type Option func(*config)

type config struct {
	workers      int
	batchLines   int
	memoryBudget int64
	tempDir      string
	verify       bool
	logger       *zap.Logger
}

func defaultConfig() *config {
	return &config{
		workers:      runtime.GOMAXPROCS(0),
		batchLines:   defaultBatchLines,
		memoryBudget: defaultMemoryBudget,
		verify:       true,
		logger:       zap.NewNop(),
	}
}

// validate checks option values after all options have been applied.
func (c *config) validate() error {
	if c.workers <= 0 {
		return sorterrors.ErrInvalidWorkers
	}
	if c.batchLines <= 0 {
		return sorterrors.ErrInvalidBatchLines
	}
	if c.sortBudget() < minSortBudget {
		return sorterrors.ErrInvalidMemoryBudget
	}
	return nil
}

// sortBudget is the bucket byte size a single sort worker may load at once.
func (c *config) sortBudget() int64 {
	return c.memoryBudget / int64(c.workers)
}

// WithWorkers sets the parallelism degree: the number of classification
// workers, the number of buckets sorted concurrently, and so the wave size.
// Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithBatchLines sets how many input lines are read per partition batch.
func WithBatchLines(n int) Option {
	return func(c *config) {
		c.batchLines = n
	}
}

// WithMemoryBudget sets the total bytes of bucket data that concurrent sorts
// may hold in memory. The budget is split evenly across workers; a bucket
// larger than its share is sorted in several chunks that the wave merge
// combines.
func WithMemoryBudget(bytes int64) Option {
	return func(c *config) {
		c.memoryBudget = bytes
	}
}

// WithTempDir sets the directory under which the per-run work directory is
// created. Defaults to os.TempDir(). It should be on a local filesystem with
// room for roughly twice the input size.
func WithTempDir(dir string) Option {
	return func(c *config) {
		c.tempDir = dir
	}
}

// WithVerify enables or disables output verification (ordering and
// record-multiset digest checks during the final merge). Enabled by default.
func WithVerify(enabled bool) Option {
	return func(c *config) {
		c.verify = enabled
	}
}

// WithLogger sets the logger for stage progress. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
