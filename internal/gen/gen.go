// Package gen produces synthetic "<id>. <text>" input files for sorting.
//
// Output is fully determined by the word list and seed: ids and word
// choices are murmur3 hashes of a line counter, so the same seed always
// yields the same file.
package gen

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// DefaultWords is the built-in word list. It mixes case, repeats first
// letters across words, and includes a few entries that the sorter filters
// out (leading digit, leading space, non-Latin first letter).
var DefaultWords = []string{
	"Apple", "apple", "Apricot", "Banana", "banana split", "Blueberry",
	"Cherry", "cherry pie", "Coconut", "Date", "Dragonfruit", "Elderberry",
	"Fig", "fig jam", "Grape", "Grapefruit", "Guava", "Honeydew",
	"Huckleberry", "Jackfruit", "Jujube", "Kiwi", "Kumquat", "Lemon",
	"Lime", "lychee", "Mango", "Mandarin", "Nectarine", "Olive", "Orange",
	"Papaya", "Passion fruit", "Peach", "Pear", "Persimmon", "Pineapple",
	"Plum", "Pomegranate", "Quince", "Raspberry", "Rambutan", "Something something",
	"Strawberry", "Tangerine", "Ugli fruit", "Vanilla", "Watermelon",
	"Xigua", "Yuzu", "Zucchini", "zest", "42 is the answer", " leading space",
	"Éclair",
}

// Generator emits random records.
type Generator struct {
	words [][]byte
	seed  uint32
	n     uint64
	key   [8]byte
	line  []byte
}

// New returns a Generator over words. words must not be empty.
func New(words []string, seed uint32) (*Generator, error) {
	if len(words) == 0 {
		return nil, errors.New("gen: empty word list")
	}
	g := &Generator{seed: seed, words: make([][]byte, len(words))}
	for i, w := range words {
		g.words[i] = []byte(w)
	}
	return g, nil
}

// Next returns the next record as (id, text). Ids are non-negative 31-bit
// values; the text is one entry of the word list.
func (g *Generator) Next() (int64, []byte) {
	binary.LittleEndian.PutUint64(g.key[:], g.n)
	g.n++
	h1, h2 := murmur3.Sum128WithSeed(g.key[:], g.seed)
	id := int64(h1 & math.MaxInt32)
	word := g.words[h2%uint64(len(g.words))]
	return id, word
}

// AppendLine appends the next record's line, including the newline, to dst.
func (g *Generator) AppendLine(dst []byte) []byte {
	id, word := g.Next()
	dst = strconv.AppendInt(dst, id, 10)
	dst = append(dst, ". "...)
	dst = append(dst, word...)
	return append(dst, '\n')
}

// WriteSize writes lines to w until at least size bytes have been written,
// and always at least one line. It returns the number of lines and bytes
// written.
func (g *Generator) WriteSize(w io.Writer, size int64) (lines, written int64, err error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	for {
		g.line = g.AppendLine(g.line[:0])
		if _, err := bw.Write(g.line); err != nil {
			return lines, written, err
		}
		lines++
		written += int64(len(g.line))
		if written >= size {
			break
		}
	}
	return lines, written, bw.Flush()
}

// WriteLines writes exactly n lines to w.
func (g *Generator) WriteLines(w io.Writer, n int64) (written int64, err error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	for range n {
		g.line = g.AppendLine(g.line[:0])
		if _, err := bw.Write(g.line); err != nil {
			return written, err
		}
		written += int64(len(g.line))
	}
	return written, bw.Flush()
}

// LoadWords reads one word per line from r, skipping blank lines.
func LoadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(w) == "" {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.New("gen: word list is empty")
	}
	return words, nil
}
