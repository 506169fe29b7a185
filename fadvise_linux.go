//go:build linux

package bucketsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fadviseSequential tells the kernel f will be read front to back, which
// doubles readahead for bucket and run files. Best-effort.
func fadviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// fadviseDontNeed drops f's cached pages once a run has been fully consumed.
// Best-effort.
func fadviseDontNeed(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
