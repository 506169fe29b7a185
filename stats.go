package bucketsort

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Stats describes a completed sort.
type Stats struct {
	RunID string // identifies the run in log output

	Lines   int64 // input lines read
	Records int64 // records written to the output
	Dropped int64 // records filtered out (blank text or non-letter start)

	Buckets int // non-empty buckets after partitioning
	Runs    int // sorted runs produced by bucket sorts
	Waves   int // sort waves, equal to the number of partials merged last

	OutputBytes int64
	Checksum    uint64 // xxHash64 of the output file contents

	Partition time.Duration
	Sort      time.Duration // bucket sorts and wave merges
	Merge     time.Duration // final merge
	Total     time.Duration
}

// String renders a multi-line human readable report.
func (s *Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Read %d lines, dropped %d, wrote %d records (%d bytes)\n", s.Lines, s.Dropped, s.Records, s.OutputBytes)
	fmt.Fprintf(&b, "Split into %d buckets, %d runs, %d waves\n", s.Buckets, s.Runs, s.Waves)
	fmt.Fprintf(&b, "Partitioning took %s.\n", s.Partition)
	fmt.Fprintf(&b, "Sorting took %s.\n", s.Sort)
	fmt.Fprintf(&b, "Merging took %s.\n", s.Merge)
	fmt.Fprintf(&b, "Total time %s.\n", s.Total)
	fmt.Fprintf(&b, "Output checksum %016x\n", s.Checksum)
	return b.String()
}

// zapFields returns the stats as structured log fields.
func (s *Stats) zapFields() []zap.Field {
	return []zap.Field{
		zap.Int64("lines", s.Lines),
		zap.Int64("records", s.Records),
		zap.Int64("dropped", s.Dropped),
		zap.Int("buckets", s.Buckets),
		zap.Int("runs", s.Runs),
		zap.Int("waves", s.Waves),
		zap.Int64("output_bytes", s.OutputBytes),
		zap.String("checksum", fmt.Sprintf("%016x", s.Checksum)),
		zap.Duration("total", s.Total),
	}
}
