//go:build windows

package bucketsort

import "os"

// replaceFile moves tmpPath over dest. os.Rename on Windows uses
// MoveFileEx with MOVEFILE_REPLACE_EXISTING, which is not atomic but does
// replace an existing destination.
func replaceFile(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir is a no-op; directories cannot be fsynced on Windows.
func syncDir(dir string) error {
	return nil
}
