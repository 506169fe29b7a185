package bucketsort

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

const (
	// writeBufferSize is the buffered writer size for bucket, run and output
	// files.
	writeBufferSize = 1 << 20

	// readBufferSize is the buffered reader size for merge cursors and the
	// partition input.
	readBufferSize = 1 << 20
)

// runWriter writes records, one line each, to a sorted run file.
// The file is pre-allocated to the expected size and truncated to the bytes
// actually written on finish.
type runWriter struct {
	file     *os.File
	path     string
	bw       *bufio.Writer
	hasher   *xxhash.Digest // nil unless checksumming is enabled
	line     []byte
	written  int64
	reserved int64
	records  int64
	done     bool
}

// createRunWriter creates path and reserves reserve bytes for it.
func createRunWriter(path string, reserve int64) (*runWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create run file: %w", err)
	}
	w, err := newRunWriter(f, reserve)
	if err != nil {
		return nil, errors.Join(err, f.Close(), os.Remove(path))
	}
	return w, nil
}

// newRunWriter wraps an already created, empty file.
func newRunWriter(f *os.File, reserve int64) (*runWriter, error) {
	if err := fallocateFile(f, reserve); err != nil {
		return nil, fmt.Errorf("reserve %d bytes for %s: %w", reserve, f.Name(), err)
	}
	return &runWriter{
		file:     f,
		path:     f.Name(),
		bw:       bufio.NewWriterSize(f, writeBufferSize),
		line:     make([]byte, 0, 256),
		reserved: reserve,
	}, nil
}

// enableChecksum makes the writer hash every byte it writes.
func (w *runWriter) enableChecksum() {
	w.hasher = xxhash.New()
}

// write appends r as one line.
func (w *runWriter) write(r Record) error {
	w.line = r.AppendTo(w.line[:0])
	w.line = append(w.line, '\n')
	if _, err := w.bw.Write(w.line); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if w.hasher != nil {
		_, _ = w.hasher.Write(w.line) // xxhash.Digest.Write never fails
	}
	w.written += int64(len(w.line))
	w.records++
	return nil
}

// checksum returns the xxHash64 of everything written so far, or 0 when
// checksumming is disabled.
func (w *runWriter) checksum() uint64 {
	if w.hasher == nil {
		return 0
	}
	return w.hasher.Sum64()
}

// finish flushes, trims the reservation to the written size and closes the
// file. On error the file is closed and removed.
func (w *runWriter) finish() error {
	if err := w.bw.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush %s: %w", w.path, err), w.abort())
	}
	if w.written != w.reserved {
		if err := w.file.Truncate(w.written); err != nil {
			return errors.Join(fmt.Errorf("truncate %s: %w", w.path, err), w.abort())
		}
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return errors.Join(fmt.Errorf("close %s: %w", w.path, err), w.abort())
	}
	w.done = true
	return nil
}

// abort closes and removes the file. Idempotent, and a no-op after a
// successful finish.
func (w *runWriter) abort() error {
	if w.done {
		return nil
	}
	var errs []error
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", w.path, err))
		}
		w.file = nil
	}
	if w.path != "" {
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", w.path, err))
		}
		w.path = ""
	}
	return errors.Join(errs...)
}
