//go:build linux || darwin

package bucketsort

import "golang.org/x/sys/unix"

// madviseSequential hints sequential access on a mapped bucket so the parse
// pass triggers aggressive readahead. Best-effort: errors are ignored.
func madviseSequential(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
}
