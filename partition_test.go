package bucketsort

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

// bucketContents reads every bucket back as sorted lines keyed by letter.
// Order inside a bucket is unspecified, so lines are sorted for comparison.
func bucketContents(t *testing.T, buckets []bucket) map[string][]string {
	t.Helper()
	got := make(map[string][]string)
	for _, b := range buckets {
		lines := readLines(t, b.path)
		slices.Sort(lines)
		got[string(b.letter)] = lines
		if int64(len(lines)) != b.records {
			t.Errorf("bucket %c: %d lines, records=%d", b.letter, len(lines), b.records)
		}
		st, err := os.Stat(b.path)
		if err != nil {
			t.Fatal(err)
		}
		if st.Size() != b.size {
			t.Errorf("bucket %c: file has %d bytes, size=%d", b.letter, st.Size(), b.size)
		}
	}
	return got
}

func TestPartitionScenario(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	input := writeLines(t, dir, "in.txt", []string{"5. Banana", "2. Apple", "9. apple", "1. cherry"})

	res, err := partition(context.Background(), input, work, testConfig(WithWorkers(2)))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"A": {"2. Apple", "9. apple"},
		"B": {"5. Banana"},
		"C": {"1. cherry"},
	}
	if diff := cmp.Diff(want, bucketContents(t, res.buckets)); diff != "" {
		t.Errorf("buckets (-want +got):\n%s", diff)
	}
	if res.lines != 4 || res.kept != 4 || res.dropped != 0 {
		t.Errorf("lines=%d kept=%d dropped=%d, want 4/4/0", res.lines, res.kept, res.dropped)
	}

	// Only non-empty buckets survive on disk.
	if diff := cmp.Diff([]string{"bucket-A.txt", "bucket-B.txt", "bucket-C.txt"}, dirEntries(t, work)); diff != "" {
		t.Errorf("work dir (-want +got):\n%s", diff)
	}
}

func TestPartitionFiltersRecords(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	input := writeLines(t, dir, "in.txt", []string{
		"1. ",
		"2.    ",
		"3. 42 is the answer",
		"4. -dash",
		"5. Éclair",
		"6.  leading space",
		"7. zebra",
		"8. ıdea",
	})

	res, err := partition(context.Background(), input, work, testConfig(WithWorkers(3), WithBatchLines(2)))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"I": {"8. ıdea"},
		"Z": {"7. zebra"},
	}
	if diff := cmp.Diff(want, bucketContents(t, res.buckets)); diff != "" {
		t.Errorf("buckets (-want +got):\n%s", diff)
	}
	if res.kept != 2 || res.dropped != 6 || res.lines != 8 {
		t.Errorf("lines=%d kept=%d dropped=%d, want 8/2/6", res.lines, res.kept, res.dropped)
	}
}

// TestPartitionCompleteness checks that every surviving record lands in
// exactly one bucket, the one of its upper-cased first letter, across
// worker counts and batch sizes that force heavy per-letter contention.
func TestPartitionCompleteness(t *testing.T) {
	rng := newTestRNG(t)
	lines := randomLines(rng, 20000, 1000)

	want := make(map[string][]string)
	for _, l := range lines {
		r, _ := ParseRecord([]byte(l))
		if letter, ok := r.Letter(); ok {
			want[string(letter)] = append(want[string(letter)], r.String())
		}
	}
	for _, v := range want {
		slices.Sort(v)
	}

	for _, tc := range []struct {
		name    string
		workers int
		batch   int
	}{
		{"serial", 1, 2000},
		{"tiny_batches", 8, 1},
		{"odd_batches", 5, 37},
		{"wide", 16, 500},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeLines(t, dir, "in.txt", lines)
			work := t.TempDir()
			res, err := partition(context.Background(), input, work,
				testConfig(WithWorkers(tc.workers), WithBatchLines(tc.batch)))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, bucketContents(t, res.buckets)); diff != "" {
				t.Errorf("buckets (-want +got):\n%s", diff)
			}
			if res.lines != int64(len(lines)) {
				t.Errorf("lines = %d, want %d", res.lines, len(lines))
			}
			if res.kept+res.dropped != res.lines {
				t.Errorf("kept %d + dropped %d != lines %d", res.kept, res.dropped, res.lines)
			}
			if !slices.IsSortedFunc(res.buckets, func(a, b bucket) int { return int(a.letter) - int(b.letter) }) {
				t.Error("buckets not in letter order")
			}
		})
	}
}

func TestPartitionMalformedAborts(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	lines := make([]string, 0, 5001)
	for range 5000 {
		lines = append(lines, "1. Apple")
	}
	lines = slices.Insert(lines, 3210, "abc. text")
	input := writeLines(t, dir, "in.txt", lines)

	_, err := partition(context.Background(), input, work, testConfig(WithWorkers(4), WithBatchLines(100)))
	if !errors.Is(err, sorterrors.ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
	var re *sorterrors.RecordError
	if !errors.As(err, &re) {
		t.Fatalf("err = %T, want *RecordError", err)
	}
	if re.Line != 3211 || re.Text != "abc. text" || re.Path != input {
		t.Errorf("RecordError = %+v, want line 3211 of %s", re, input)
	}
	if ents := dirEntries(t, work); len(ents) != 0 {
		t.Errorf("bucket files left behind: %v", ents)
	}
}

func TestPartitionLineEndings(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	// CRLF line endings and no trailing newline on the last line.
	if err := os.WriteFile(input, []byte("1. Apple\r\n2. apple\r\n3. Banana"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := partition(context.Background(), input, work, testConfig(WithWorkers(1)))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"A": {"1. Apple", "2. apple"},
		"B": {"3. Banana"},
	}
	if diff := cmp.Diff(want, bucketContents(t, res.buckets)); diff != "" {
		t.Errorf("buckets (-want +got):\n%s", diff)
	}
}

func TestPartitionLongLine(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	long := "7. L" + strings.Repeat("o", 3*readBufferSize) + "ng"
	input := writeLines(t, dir, "in.txt", []string{"1. short", long})

	res, err := partition(context.Background(), input, work, testConfig(WithWorkers(2)))
	if err != nil {
		t.Fatal(err)
	}
	got := bucketContents(t, res.buckets)
	if len(got["L"]) != 1 || got["L"][0] != long {
		t.Errorf("long line not preserved (bucket L has %d lines)", len(got["L"]))
	}
}

func TestPartitionEmptyInput(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	input := writeLines(t, dir, "in.txt", nil)

	res, err := partition(context.Background(), input, work, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.buckets) != 0 || res.lines != 0 {
		t.Errorf("got %d buckets, %d lines from empty input", len(res.buckets), res.lines)
	}
	if ents := dirEntries(t, work); len(ents) != 0 {
		t.Errorf("empty bucket files left behind: %v", ents)
	}
}

func TestPartitionCanceled(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	input := writeLines(t, dir, "in.txt", randomLines(newTestRNG(t), 1000, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := partition(ctx, input, work, testConfig(WithWorkers(2), WithBatchLines(10)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPartitionMissingInput(t *testing.T) {
	_, err := partition(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), t.TempDir(), testConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}
