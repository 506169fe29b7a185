package bucketsort

import (
	"bufio"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const (
	testSeed1 = 0x9E3779B97F4A7C15
	testSeed2 = 0xBF58476D1CE4E5B9
)

// newTestRNG returns a deterministic RNG seeded from the test name.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// testWords covers mixed case, shared prefixes, and texts the bucket filter
// drops.
var testWords = []string{
	"Apple", "apple", "Apricot", "apple pie", "Banana", "banana", "Band",
	"Cherry", "cherry", "cherry. pie", "Date", "Mango", "mango", "Lemon",
	"lemon", "Zebra", "zebra", "Quince", "x-ray", "Xylophone", "yak",
	"", "   ", "42 is the answer", "-dash", "Éclair", "ıdea",
}

// randomLines returns n well-formed lines with ids drawn from [-maxID, maxID].
func randomLines(rng *rand.Rand, n int, maxID int64) []string {
	lines := make([]string, n)
	for i := range lines {
		r := Record{ID: randomID(rng, maxID), Text: []byte(testWords[rng.IntN(len(testWords))])}
		lines[i] = r.String()
	}
	return lines
}

// randomID returns an id drawn uniformly from [-maxID, maxID]. The span is
// computed in uint64 so maxID may be as large as math.MaxInt64.
func randomID(rng *rand.Rand, maxID int64) int64 {
	return int64(rng.Uint64N(2*uint64(maxID)+1) - uint64(maxID))
}

// writeLines writes lines, newline-terminated, to a new file in dir.
func writeLines(t testing.TB, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// readLines returns the lines of path without their newlines.
func readLines(t testing.TB, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), 64<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}

// expectedOutput computes the reference result for lines: parse, filter by
// bucket letter, render canonically, and sort with the package comparator.
func expectedOutput(t testing.TB, lines []string) []string {
	t.Helper()
	var recs []Record
	for _, l := range lines {
		r, err := ParseRecord([]byte(l))
		if err != nil {
			t.Fatalf("reference parse of %q: %v", l, err)
		}
		if _, ok := r.Letter(); ok {
			recs = append(recs, r)
		}
	}
	slices.SortStableFunc(recs, Compare)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.String()
	}
	return out
}

// writeRun writes lines to a run file and returns its descriptor.
func writeRun(t testing.TB, dir, name string, letter byte, lines []string) run {
	t.Helper()
	path := writeLines(t, dir, name, lines)
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return run{path: path, letter: letter, size: st.Size(), records: int64(len(lines))}
}

// dirEntries lists the names in dir.
func dirEntries(t testing.TB, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names
}

func testConfig(opts ...Option) *config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}
