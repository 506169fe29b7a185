package bucketsort

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

// bucket is an unsorted partition file holding every surviving record whose
// text starts with letter.
type bucket struct {
	letter  byte
	path    string
	size    int64
	records int64
}

// bucketSink is the single append-only stream of one letter. Classification
// workers share it; mu serializes their appends so each batch's lines land
// contiguously. Sinks of different letters never contend.
type bucketSink struct {
	mu      sync.Mutex
	letter  byte
	path    string
	file    *os.File
	bw      *bufio.Writer
	size    int64
	records int64
}

// append writes already-encoded lines holding n records.
func (s *bucketSink) append(lines []byte, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.bw.Write(lines); err != nil {
		return fmt.Errorf("write bucket %c: %w", s.letter, err)
	}
	s.size += int64(len(lines))
	s.records += n
	return nil
}

// bucketSinks owns the 26 letter sinks for one partition pass.
type bucketSinks struct {
	sinks [numLetters]*bucketSink
}

// newBucketSinks creates one empty bucket file per letter in dir.
func newBucketSinks(dir string) (*bucketSinks, error) {
	s := &bucketSinks{}
	for i := range numLetters {
		letter := byte('A' + i)
		path := filepath.Join(dir, fmt.Sprintf("bucket-%c.txt", letter))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("create bucket %c: %w", letter, err), s.abort())
		}
		s.sinks[i] = &bucketSink{
			letter: letter,
			path:   path,
			file:   f,
			bw:     bufio.NewWriterSize(f, writeBufferSize/4),
		}
	}
	return s, nil
}

// sink returns the sink for letter ('A'..'Z').
func (s *bucketSinks) sink(letter byte) *bucketSink {
	return s.sinks[letterIndex(letter)]
}

// close flushes and closes every sink, removes the files that received no
// records, and returns the remaining buckets in letter order.
// Must only be called once all writers have returned.
func (s *bucketSinks) close() ([]bucket, error) {
	var (
		buckets []bucket
		errs    []error
	)
	for _, sk := range s.sinks {
		if err := sk.bw.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush bucket %c: %w", sk.letter, err))
		}
		if err := sk.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bucket %c: %w", sk.letter, err))
		}
		sk.file = nil
		if sk.size == 0 {
			if err := os.Remove(sk.path); err != nil {
				errs = append(errs, fmt.Errorf("remove empty bucket %c: %w", sk.letter, err))
			}
			continue
		}
		buckets = append(buckets, bucket{letter: sk.letter, path: sk.path, size: sk.size, records: sk.records})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, errors.Join(err, s.abort())
	}
	return buckets, nil
}

// abort closes and removes every bucket file. Idempotent.
func (s *bucketSinks) abort() error {
	var errs []error
	for _, sk := range s.sinks {
		if sk == nil {
			continue
		}
		if sk.file != nil {
			errs = append(errs, sk.file.Close())
			sk.file = nil
		}
		if err := os.Remove(sk.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lineBatch is a group of consecutive input lines stored back to back in
// data. Line i spans data[ends[i-1]:ends[i]].
type lineBatch struct {
	firstLine int64 // 1-based number of the first line
	data      []byte
	ends      []int
}

func (b *lineBatch) reset(firstLine int64) {
	b.firstLine = firstLine
	b.data = b.data[:0]
	b.ends = b.ends[:0]
}

func (b *lineBatch) line(i int) []byte {
	start := 0
	if i > 0 {
		start = b.ends[i-1]
	}
	return b.data[start:b.ends[i]]
}

// partitionResult holds the buckets and counters of a partition pass.
type partitionResult struct {
	buckets []bucket
	lines   int64
	kept    int64
	dropped int64
	digest  multisetDigest
}

// workerTally is one classification worker's private counters.
type workerTally struct {
	kept    int64
	dropped int64
	digest  multisetDigest
}

// partition streams inputPath once and routes each surviving record to the
// bucket file of its letter under workDir.
//
// A reader goroutine fills line batches while cfg.workers goroutines
// classify earlier ones, so I/O overlaps parsing. Memory is bounded by
// roughly 2 × workers batches. The first malformed line cancels the pass
// and is returned as a *RecordError; no buckets survive a failed pass.
func partition(ctx context.Context, inputPath, workDir string, cfg *config) (partitionResult, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return partitionResult{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()
	fadviseSequential(in)

	sinks, err := newBucketSinks(workDir)
	if err != nil {
		return partitionResult{}, err
	}

	pool := sync.Pool{
		New: func() any {
			return &lineBatch{
				data: make([]byte, 0, cfg.batchLines*64),
				ends: make([]int, 0, cfg.batchLines),
			}
		},
	}
	batches := make(chan *lineBatch, cfg.workers)
	tallies := make([]workerTally, cfg.workers)
	var lines int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		br := bufio.NewReaderSize(in, readBufferSize)
		var scratch []byte
		next := int64(1)
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := pool.Get().(*lineBatch)
			b.reset(next)
			for len(b.ends) < cfg.batchLines {
				line, err := readLine(br, scratch)
				scratch = line[:0]
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				b.data = append(b.data, line...)
				b.ends = append(b.ends, len(b.data))
			}
			if len(b.ends) == 0 {
				pool.Put(b)
				lines = next - 1
				return nil
			}
			n := len(b.ends)
			next += int64(n)
			select {
			case batches <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
			if n < cfg.batchLines {
				lines = next - 1
				return nil
			}
		}
	})

	for w := range cfg.workers {
		g.Go(func() error {
			tally := &tallies[w]
			var (
				encoded [numLetters][]byte
				counts  [numLetters]int64
				scratch []byte
			)
			for b := range batches {
				if err := gctx.Err(); err != nil {
					return err
				}
				for i := range numLetters {
					encoded[i] = encoded[i][:0]
					counts[i] = 0
				}
				for i := range b.ends {
					line := b.line(i)
					rec, err := ParseRecord(line)
					if err != nil {
						return &sorterrors.RecordError{
							Path: inputPath,
							Line: b.firstLine + int64(i),
							Text: string(line),
							Err:  err,
						}
					}
					letter, ok := rec.Letter()
					if !ok {
						tally.dropped++
						continue
					}
					idx := letterIndex(letter)
					encoded[idx] = append(rec.AppendTo(encoded[idx]), '\n')
					counts[idx]++
					tally.kept++
					if cfg.verify {
						scratch = tally.digest.add(rec, scratch)
					}
				}
				for i := range numLetters {
					if counts[i] == 0 {
						continue
					}
					if err := sinks.sinks[i].append(encoded[i], counts[i]); err != nil {
						return err
					}
				}
				pool.Put(b)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return partitionResult{}, errors.Join(err, sinks.abort())
	}

	buckets, err := sinks.close()
	if err != nil {
		return partitionResult{}, err
	}

	res := partitionResult{buckets: buckets, lines: lines}
	for _, t := range tallies {
		res.kept += t.kept
		res.dropped += t.dropped
		res.digest.combine(t.digest)
	}
	for _, b := range buckets {
		cfg.logger.Debug("bucket written",
			zap.String("letter", string(b.letter)),
			zap.Int64("records", b.records),
			zap.Int64("bytes", b.size))
	}
	return res, nil
}
