//go:build !linux && !darwin

package bucketsort

import "os"

// fallocateFile is a no-op where no reservation primitive is available; the
// run file simply grows as it is written.
func fallocateFile(file *os.File, size int64) error {
	return nil
}
