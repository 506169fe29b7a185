package bucketsort

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

// contextCheckInterval is how many records a loop processes between
// context cancellation checks.
const contextCheckInterval = 10000

// run is a sorted partial: a file whose lines are non-decreasing under
// Compare. letter is the lowest bucket letter it covers; it only orders the
// inputs of the final merge and never affects correctness.
type run struct {
	path    string
	letter  byte
	size    int64
	records int64
}

// cursor streams the records of one run. head holds the current record;
// its Text aliases buf and is overwritten by the next call to advance.
type cursor struct {
	file *os.File
	br   *bufio.Reader
	path string
	buf  []byte
	head Record
	done bool
}

func openCursor(r run) (*cursor, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open run: %w", err)
	}
	fadviseSequential(f)
	c := &cursor{
		file: f,
		br:   bufio.NewReaderSize(f, readBufferSize),
		path: r.path,
		buf:  make([]byte, 0, 256),
	}
	if err := c.advance(); err != nil {
		return nil, errors.Join(err, c.close())
	}
	return c, nil
}

// advance loads the next record into head, or marks the cursor done at EOF.
func (c *cursor) advance() error {
	line, err := readLine(c.br, c.buf)
	c.buf = line[:0]
	if err == io.EOF {
		c.done = true
		c.head = Record{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", c.path, err)
	}
	rec, err := ParseRecord(line)
	if err != nil {
		return &sorterrors.RecordError{Path: c.path, Text: string(line), Err: err}
	}
	c.head = rec
	return nil
}

func (c *cursor) close() error {
	if c.file == nil {
		return nil
	}
	fadviseDontNeed(c.file)
	err := c.file.Close()
	c.file = nil
	return err
}

// readLine reads one line into dst (reusing its storage) with the trailing
// "\n" or "\r\n" removed. It returns io.EOF only when no bytes remain; a
// final line without a newline is returned with a nil error.
func readLine(br *bufio.Reader, dst []byte) ([]byte, error) {
	dst = dst[:0]
	for {
		chunk, err := br.ReadSlice('\n')
		dst = append(dst, chunk...)
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && len(dst) > 0:
			return trimEOL(dst), nil
		case err != nil:
			return dst, err
		}
		return trimEOL(dst), nil
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// mergeResult describes the output of one merge.
type mergeResult struct {
	records  int64
	bytes    int64
	digest   multisetDigest
	checksum uint64
}

// mergeRuns performs a streaming k-way merge of inputs into w.
//
// Each step scans the heads of all live cursors and emits the least one
// under Compare; the earliest cursor wins ties. k is bounded by the wave
// size or the number of waves, so a linear scan beats a heap here.
//
// With verify set, every emitted record is checked against its predecessor
// (ErrOutOfOrder) and folded into the returned digest. On success w is
// finished and all input files are removed; on failure w is aborted and the
// inputs are left in place for the caller's cleanup.
func mergeRuns(ctx context.Context, inputs []run, w *runWriter, verify bool) (mergeResult, error) {
	var res mergeResult
	live := make([]*cursor, 0, len(inputs))
	closeAll := func() error {
		var errs []error
		for _, c := range live {
			errs = append(errs, c.close())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (mergeResult, error) {
		return mergeResult{}, errors.Join(err, closeAll(), w.abort())
	}

	for _, in := range inputs {
		c, err := openCursor(in)
		if err != nil {
			return fail(err)
		}
		if c.done {
			if err := c.close(); err != nil {
				return fail(fmt.Errorf("close %s: %w", in.path, err))
			}
			continue
		}
		live = append(live, c)
	}

	var (
		prev     Record
		prevBuf  []byte
		havePrev bool
		scratch  []byte
		counter  int
	)
	for len(live) > 0 {
		counter++
		if counter >= contextCheckInterval {
			counter = 0
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}

		best := 0
		for i := 1; i < len(live); i++ {
			if Compare(live[i].head, live[best].head) < 0 {
				best = i
			}
		}
		c := live[best]

		if verify {
			if havePrev && Compare(prev, c.head) > 0 {
				return fail(fmt.Errorf("%w: %q after %q in %s", sorterrors.ErrOutOfOrder,
					c.head.String(), prev.String(), c.path))
			}
			prevBuf = append(prevBuf[:0], c.head.Text...)
			prev = Record{ID: c.head.ID, Text: prevBuf}
			havePrev = true
			scratch = res.digest.add(c.head, scratch)
		}
		if err := w.write(c.head); err != nil {
			return fail(err)
		}

		if err := c.advance(); err != nil {
			return fail(err)
		}
		if c.done {
			if err := c.close(); err != nil {
				return fail(fmt.Errorf("close %s: %w", c.path, err))
			}
			live = slices.Delete(live, best, best+1)
		}
	}

	res.records = w.records
	res.bytes = w.written
	res.checksum = w.checksum()
	if err := w.finish(); err != nil {
		return mergeResult{}, err
	}

	var errs []error
	for _, in := range inputs {
		if err := os.Remove(in.path); err != nil {
			errs = append(errs, fmt.Errorf("remove merged input: %w", err))
		}
	}
	return res, errors.Join(errs...)
}

// mergeToRun merges inputs into a new run at path. The output inherits the
// lowest letter of its inputs.
func mergeToRun(ctx context.Context, inputs []run, path string) (run, error) {
	out := run{path: path, letter: 'Z' + 1}
	for _, in := range inputs {
		out.size += in.size
		out.letter = min(out.letter, in.letter)
	}
	w, err := createRunWriter(path, out.size)
	if err != nil {
		return run{}, err
	}
	res, err := mergeRuns(ctx, inputs, w, false)
	if err != nil {
		return run{}, err
	}
	out.size = res.bytes
	out.records = res.records
	return out, nil
}
