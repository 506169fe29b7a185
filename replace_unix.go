//go:build !windows

package bucketsort

import "os"

// replaceFile atomically moves tmpPath over dest.
func replaceFile(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir fsyncs dir so the rename survives a crash. Best-effort.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
