package bucketsort

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	sorterrors "github.com/tamirms/bucketsort/errors"
	"github.com/tamirms/bucketsort/internal/msort"
)

// splitChunks cuts data into consecutive ranges of at most budget bytes,
// each ending just after a newline. A single line longer than budget gets a
// range of its own. The returned offsets are range ends.
func splitChunks(data []byte, budget int64) []int {
	var ends []int
	start := 0
	for start < len(data) {
		end := start + int(min(budget, int64(len(data)-start)))
		if end < len(data) {
			if nl := bytes.LastIndexByte(data[start:end], '\n'); nl >= 0 {
				end = start + nl + 1
			} else if nl := bytes.IndexByte(data[end:], '\n'); nl >= 0 {
				end += nl + 1
			} else {
				end = len(data)
			}
		}
		ends = append(ends, end)
		start = end
	}
	return ends
}

// parseChunk appends the records of chunk to recs. Record texts alias chunk.
func parseChunk(chunk []byte, path string, recs []Record) ([]Record, error) {
	for len(chunk) > 0 {
		line := chunk
		if nl := bytes.IndexByte(chunk, '\n'); nl >= 0 {
			line, chunk = chunk[:nl], chunk[nl+1:]
		} else {
			chunk = nil
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return recs, &sorterrors.RecordError{Path: path, Text: string(line), Err: err}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// bucketSorter sorts buckets into runs. One instance per worker goroutine;
// its record and scratch slices are reused across buckets and are not safe
// for concurrent use.
type bucketSorter struct {
	workDir string
	budget  int64
	recs    []Record
	scratch []Record
}

// sortBucket loads b into memory, sorts it with a bottom-up merge sort and
// writes the result as one run, or as several runs when b is larger than the
// sorter's memory budget. The bucket file is memory-mapped read-only so the
// sorted records point into the page cache instead of copied strings.
// The bucket file is removed once every run is written.
func (s *bucketSorter) sortBucket(ctx context.Context, b bucket) (runs []run, err error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("open bucket %c: %w", b.letter, err)
	}
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat bucket %c: %w", b.letter, err), f.Close())
	}
	if st.Size() == 0 {
		return nil, errors.Join(f.Close(), os.Remove(b.path))
	}
	fadviseSequential(f)

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("mmap bucket %c: %w", b.letter, err), f.Close())
	}
	data := []byte(mm)
	madviseSequential(data)

	defer func() {
		// Record texts alias mm; they are dead once the runs are written.
		s.recs = s.recs[:0]
		err = errors.Join(err, mm.Unmap(), f.Close())
		if err != nil {
			for _, r := range runs {
				_ = os.Remove(r.path)
			}
			runs = nil
			return
		}
		if rmErr := os.Remove(b.path); rmErr != nil {
			err = fmt.Errorf("remove sorted bucket: %w", rmErr)
			runs = nil
		}
	}()

	start := 0
	for i, end := range splitChunks(data, s.budget) {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		r, err := s.sortChunk(data[start:end], b, i)
		if err != nil {
			return runs, err
		}
		runs = append(runs, r)
		start = end
	}
	return runs, nil
}

// sortChunk sorts one newline-aligned chunk of bucket b into run number seq.
func (s *bucketSorter) sortChunk(chunk []byte, b bucket, seq int) (run, error) {
	n := bytes.Count(chunk, []byte{'\n'}) + 1
	if cap(s.recs) < n {
		s.recs = make([]Record, 0, n)
	}
	recs, err := parseChunk(chunk, b.path, s.recs[:0])
	s.recs = recs
	if err != nil {
		return run{}, err
	}
	if cap(s.scratch) < len(recs) {
		s.scratch = make([]Record, len(recs))
	}
	msort.Sort(recs, s.scratch[:len(recs)], Compare)
	clear(s.scratch[:len(recs)])

	var size int64
	for _, r := range recs {
		size += int64(r.encodedLen())
	}
	path := filepath.Join(s.workDir, fmt.Sprintf("run-%c-%03d.txt", b.letter, seq))
	w, err := createRunWriter(path, size)
	if err != nil {
		return run{}, err
	}
	for _, r := range recs {
		if err := w.write(r); err != nil {
			return run{}, errors.Join(err, w.abort())
		}
	}
	if err := w.finish(); err != nil {
		return run{}, err
	}
	if w.written != size {
		_ = os.Remove(path)
		return run{}, fmt.Errorf("%w: %s wrote %d of %d bytes", sorterrors.ErrSizeMismatch, path, w.written, size)
	}
	return run{path: path, letter: b.letter, size: w.written, records: w.records}, nil
}
