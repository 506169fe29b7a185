// Package errors defines all exported error sentinels for the bucketsort library.
//
// This is the single source of truth for error values. Both the top-level
// bucketsort package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import (
	"errors"
	"fmt"
)

// Input errors
var (
	ErrMalformedRecord = errors.New("bucketsort: malformed record")
	ErrNoInput         = errors.New("bucketsort: input path is empty")
	ErrNoOutput        = errors.New("bucketsort: output path is empty")
	ErrSamePath        = errors.New("bucketsort: input and output refer to the same file")
)

// Configuration errors
var (
	ErrInvalidWorkers      = errors.New("bucketsort: worker count must be positive")
	ErrInvalidBatchLines   = errors.New("bucketsort: batch size must be positive")
	ErrInvalidMemoryBudget = errors.New("bucketsort: memory budget is below the minimum")
)

// Verification errors
var (
	ErrOutOfOrder     = errors.New("bucketsort: output record out of order")
	ErrDigestMismatch = errors.New("bucketsort: output records differ from partitioned records")
	ErrSizeMismatch   = errors.New("bucketsort: written size differs from pre-allocated size")
)

// RecordError reports a line that could not be parsed. Line is 1-based;
// zero means the position is unknown (for example a line read back from an
// intermediate file).
type RecordError struct {
	Path string
	Line int64
	Text string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %q: %v", e.Path, e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("%s: %q: %v", e.Path, e.Text, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
