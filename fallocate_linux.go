//go:build linux

package bucketsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes for a run file before it is written, so
// a full disk fails the sort up front instead of midway through a merge.
func fallocateFile(file *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	if err := unix.Fallocate(int(file.Fd()), 0, 0, size); err != nil {
		// Filesystems without fallocate (tmpfs on old kernels, NFS) still
		// accept ftruncate.
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return nil
}
