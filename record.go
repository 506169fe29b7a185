package bucketsort

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

// separator splits a line into its id and text parts.
var separator = []byte(". ")

// numLetters is the number of bucket letters ('A' through 'Z').
const numLetters = 26

// Record is one parsed input line: "<ID>. <Text>".
//
// Text may alias the buffer it was parsed from (a read batch or a mapped
// bucket file); callers that keep a Record beyond the life of that buffer
// must copy it with Clone.
type Record struct {
	ID   int64
	Text []byte
}

// ParseRecord parses a single line without its trailing newline.
// The line is split on the first occurrence of ". ". A missing separator or
// an id that is not a base-10 int64 yields ErrMalformedRecord.
func ParseRecord(line []byte) (Record, error) {
	i := bytes.Index(line, separator)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: missing %q separator", sorterrors.ErrMalformedRecord, separator)
	}
	id, err := parseID(line[:i])
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid id: %w", sorterrors.ErrMalformedRecord, err)
	}
	return Record{ID: id, Text: line[i+len(separator):]}, nil
}

// parseID parses the id prefix. The common case of a short unsigned decimal
// is handled inline to keep strconv's string conversion off the hot path.
func parseID(b []byte) (int64, error) {
	if n := len(b); n > 0 && n < 19 {
		var v int64
		neg := false
		i := 0
		if b[0] == '-' || b[0] == '+' {
			neg = b[0] == '-'
			i = 1
		}
		if i < n {
			ok := true
			for ; i < n; i++ {
				c := b[i] - '0'
				if c > 9 {
					ok = false
					break
				}
				v = v*10 + int64(c)
			}
			if ok {
				if neg {
					v = -v
				}
				return v, nil
			}
		}
	}
	return strconv.ParseInt(string(b), 10, 64)
}

// AppendTo appends the textual form of r, without a newline, to dst.
func (r Record) AppendTo(dst []byte) []byte {
	dst = strconv.AppendInt(dst, r.ID, 10)
	dst = append(dst, separator...)
	return append(dst, r.Text...)
}

// String returns the textual form "<ID>. <Text>".
func (r Record) String() string {
	return string(r.AppendTo(nil))
}

// encodedLen returns the length of r's line including the trailing newline.
func (r Record) encodedLen() int {
	n := len(r.Text) + len(separator) + 1
	id := r.ID
	if id < 0 {
		n++
		if id == -id { // math.MinInt64
			return n + 19
		}
		id = -id
	}
	for {
		n++
		id /= 10
		if id == 0 {
			return n
		}
	}
}

// Clone returns a copy of r whose Text does not alias any external buffer.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Text: bytes.Clone(r.Text)}
}

// Letter returns the bucket letter of r: the first rune of Text, upper-cased.
// ok is false when Text is empty or whitespace-only, or when the upper-cased
// rune is outside 'A'..'Z'. Such records are filtered out of the sort.
func (r Record) Letter() (letter byte, ok bool) {
	if len(bytes.TrimSpace(r.Text)) == 0 {
		return 0, false
	}
	c := r.Text[0]
	if c < utf8.RuneSelf {
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		if 'A' <= c && c <= 'Z' {
			return c, true
		}
		return 0, false
	}
	// Runes such as U+0131 (dotless i) and U+017F (long s) upper-case into ASCII.
	ru, _ := utf8.DecodeRune(r.Text)
	up := unicode.ToUpper(ru)
	if 'A' <= up && up <= 'Z' {
		return byte(up), true
	}
	return 0, false
}

// Compare orders records by Text (byte-ordinal), then by ID ascending.
// It is the single ordering used by parsing, sorting and merging.
func Compare(a, b Record) int {
	if c := bytes.Compare(a.Text, b.Text); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// letterIndex maps 'A'..'Z' to 0..25.
func letterIndex(letter byte) int {
	return int(letter - 'A')
}
