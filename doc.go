// Package bucketsort sorts text files of "<id>. <text>" records that are
// larger than memory, with bounded RAM usage.
//
// Records are ordered by text (byte-ordinal) and then by numeric id. Only
// records whose text starts with a Latin letter are kept; the rest are
// counted and dropped.
//
// # Basic Usage
//
//	stats, err := bucketsort.Sort(ctx, "input.txt", "sorted.txt",
//	    bucketsort.WithWorkers(8),
//	    bucketsort.WithMemoryBudget(2<<30),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(stats)
//
// # Pipeline
//
// Sort is a three-stage external sort:
//
//   - Partition: the input is read once and every record is appended to the
//     bucket file of its upper-cased first letter (26 buckets).
//   - Sort: buckets are loaded (memory-mapped) and sorted in memory, in waves
//     of WithWorkers buckets. Each wave's runs are merged into one partial
//     while the next wave sorts.
//   - Merge: the partials are k-way merged into the output, which is renamed
//     into place only once complete.
//
// Letter buckets do not align with byte-ordinal text order ("Banana" sorts
// before "apple" but lives in a later bucket), so the final merge always
// compares records rather than concatenating buckets.
//
// # Package Structure
//
//   - Public API: sorter.go (Sort), options.go (Option, With* functions), stats.go
//   - Record codec: record.go (ParseRecord, Compare, Letter)
//   - Stages: partition.go, bucket_sort.go, wave.go, merge.go
//   - Output: run_writer.go (pre-allocated run files), digest.go (verification)
//   - Sorting primitive: internal/msort (stable bottom-up merge sort)
//   - Input generation: internal/gen
//   - Platform: fadvise_*.go, fallocate_*.go, madvise_*.go, replace_*.go
package bucketsort
